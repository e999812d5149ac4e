package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"studiobook/pkg/model"
)

type CatalogClient struct {
	httpClient *HttpClient
}

func NewCatalogClient(baseURL, token string) *CatalogClient {
	return &CatalogClient{
		httpClient: NewHttpClient(baseURL, token),
	}
}

func (c *CatalogClient) ListOccurrences(ctx context.Context, req model.ListOccurrencesRequest) ([]*model.Occurrence, *Metadata, error) {
	q := url.Values{}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("class_type", req.ClassType)
	set("level", req.Level)
	set("instructor_id", req.InstructorID)
	set("from", req.From)
	set("to", req.To)
	set("availability", string(req.Availability))
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", strconv.FormatInt(req.Offset, 10))
	}

	path := "/api/v1/occurrences"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	var occurrences []*model.Occurrence
	meta, err := resp.DecodePage(&occurrences)
	if err != nil {
		return nil, nil, err
	}
	return occurrences, meta, nil
}

func (c *CatalogClient) GetOccurrence(ctx context.Context, id string) (*model.Occurrence, error) {
	return c.occurrence(c.httpClient.GET(ctx, "/api/v1/occurrences/id/"+url.PathEscape(id)))
}

func (c *CatalogClient) CreateOccurrence(ctx context.Context, req model.CreateOccurrenceRequest) (*model.Occurrence, error) {
	return c.occurrence(c.httpClient.POST(ctx, "/api/v1/occurrences", req))
}

// UpsertTrainer reports whether the trainer was created rather than replaced.
func (c *CatalogClient) UpsertTrainer(ctx context.Context, id string, req model.UpsertTrainerRequest) (*model.Trainer, bool, error) {
	resp, err := c.httpClient.PUT(ctx, "/api/v1/trainers/id/"+url.PathEscape(id), req)
	if err != nil {
		return nil, false, err
	}
	var trainer model.Trainer
	if err := resp.DecodeData(&trainer); err != nil {
		return nil, false, err
	}
	return &trainer, resp.StatusCode == http.StatusCreated, nil
}

func (c *CatalogClient) TrainerAvailability(ctx context.Context, trainerID, date string) (*model.TrainerAvailability, error) {
	path := "/api/v1/trainers/id/" + url.PathEscape(trainerID) + "/availability?" + url.Values{"date": {date}}.Encode()
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, err
	}
	var availability model.TrainerAvailability
	if err := resp.DecodeData(&availability); err != nil {
		return nil, err
	}
	return &availability, nil
}

func (c *CatalogClient) occurrence(resp *Response, err error) (*model.Occurrence, error) {
	if err != nil {
		return nil, err
	}
	var occ model.Occurrence
	if err := resp.DecodeData(&occ); err != nil {
		return nil, err
	}
	return &occ, nil
}
