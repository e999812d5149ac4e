package validator

import (
	"github.com/go-playground/validator/v10"

	"studiobook/pkg/logger"
	"studiobook/pkg/model"
	"studiobook/pkg/validation"
)

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validation.New(log)
	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func (v *BookingValidator) ValidateBookClass(req *model.BookClassRequest) error {
	return validation.Struct(v.validate, req)
}

// ValidateTrainerSession also checks that the session ends after it starts.
// Both clocks are HH:MM, so they order lexically.
func (v *BookingValidator) ValidateTrainerSession(req *model.BookTrainerSessionRequest) error {
	if err := validation.Struct(v.validate, req); err != nil {
		return err
	}
	if req.EndTime <= req.StartTime {
		return validation.ValidationErrors{
			validation.ValidationError{
				Field:   "EndTime",
				Message: "end_time must be after start_time",
			},
		}
	}
	return nil
}

func (v *BookingValidator) ValidateCancel(req *model.CancelBookingRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *BookingValidator) ValidateCapacity(req *model.UpdateCapacityRequest) error {
	return validation.Struct(v.validate, req)
}
