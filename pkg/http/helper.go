package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"studiobook/pkg/config"
	apperrors "studiobook/pkg/errors"
	"studiobook/pkg/middleware"
	"studiobook/pkg/model"
)

// RequireActor returns the authenticated caller placed on the context by
// middleware.Authenticate.
func RequireActor(r *http.Request) (model.Actor, error) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok || actor.UserID == "" {
		return model.Actor{}, apperrors.Unauthorized("Authentication required")
	}
	return actor, nil
}

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	return config.NormalizePaginationLimit(limit), config.NormalizeOffset(offset), nil
}

// ExtractDate parses an optional YYYY-MM-DD query parameter in loc.
func ExtractDate(r *http.Request, name string, loc *time.Location) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid " + name + " parameter, expected YYYY-MM-DD: " + s)
	}
	return &d, nil
}

// DecodeJSON decodes the request body into v, rejecting unknown fields. An
// empty body leaves v untouched when optional is set.
func DecodeJSON(r *http.Request, v any, optional ...bool) error {
	if r.ContentLength == 0 && len(optional) > 0 && optional[0] {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.InvalidInput("Invalid request body")
	}
	return nil
}
