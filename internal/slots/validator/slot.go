package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"slotter/pkg/logger"
	"slotter/pkg/model"

	"github.com/go-playground/validator/v10"
)

const (
	MinSlotDuration = 5 * time.Minute
	MaxSlotDuration = 12 * time.Hour
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type SlotValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSlotValidator(log *logger.Logger) *SlotValidator {
	return &SlotValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *SlotValidator) Validate(slot *model.Slot) error {
	var errs ValidationErrors

	if err := v.validate.Struct(slot); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, ValidationError{
					Field:   fe.Field(),
					Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
				})
			}
		} else {
			return fmt.Errorf("slot validation: %w", err)
		}
	}

	if !slot.StartTime.IsZero() && !slot.EndTime.IsZero() {
		duration := slot.EndTime.Sub(slot.StartTime)
		if duration > 0 && duration < MinSlotDuration {
			errs = append(errs, ValidationError{
				Field:   "EndTime",
				Message: fmt.Sprintf("slot must be at least %s long", MinSlotDuration),
			})
		}
		if duration > MaxSlotDuration {
			errs = append(errs, ValidationError{
				Field:   "EndTime",
				Message: fmt.Sprintf("slot must be at most %s long", MaxSlotDuration),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
