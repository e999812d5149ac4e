package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"studiobook/pkg/logger"
	"studiobook/pkg/model"
	"studiobook/pkg/validation"
)

type CatalogValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewCatalogValidator(log *logger.Logger) *CatalogValidator {
	v := validation.New(log)
	log.Debug("Catalog validator initialized successfully")

	return &CatalogValidator{
		validate: v,
		logger:   log,
	}
}

func (v *CatalogValidator) ValidateListRequest(req *model.ListOccurrencesRequest) error {
	if err := validation.Struct(v.validate, req); err != nil {
		return err
	}
	if req.From != "" && req.To != "" && req.To < req.From {
		return validation.ValidationErrors{{Field: "To", Message: "to must not be before from"}}
	}
	return nil
}

func (v *CatalogValidator) ValidateOccurrence(req *model.CreateOccurrenceRequest) error {
	return validation.Struct(v.validate, req)
}

// ValidateTrainer checks the profile and that every weekly window is
// non-empty and does not overlap another window on the same weekday.
func (v *CatalogValidator) ValidateTrainer(req *model.UpsertTrainerRequest) error {
	if err := validation.Struct(v.validate, req); err != nil {
		return err
	}

	var errs validation.ValidationErrors
	if !req.HourlyRate.IsPositive() {
		errs = append(errs, validation.ValidationError{Field: "HourlyRate", Message: "hourly_rate must be positive"})
	}
	for i, w := range req.Availability {
		field := fmt.Sprintf("Availability[%d]", i)
		if w.End <= w.Start {
			errs = append(errs, validation.ValidationError{Field: field, Message: "end must be after start"})
			continue
		}
		for j := range i {
			o := req.Availability[j]
			if o.Weekday == w.Weekday && w.Start < o.End && o.Start < w.End {
				errs = append(errs, validation.ValidationError{
					Field:   field,
					Message: fmt.Sprintf("overlaps availability[%d]", j),
				})
				break
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
