package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"smartpark/pkg/logger"
	"smartpark/pkg/model"
	"smartpark/pkg/timeparse"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sanitized plates: letters, digits, single spaces or hyphens between them.
var plateRegex = regexp.MustCompile(`^[A-Z0-9]+(?:[ -][A-Z0-9]+)*$`)

const (
	minPlateLength = 2
	maxPlateLength = 16
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

// Details renders the errors as a field to message map for API responses.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type ParkingValidator struct {
	validate        *validator.Validate
	maxCheckinHours int
}

func NewParkingValidator(log *logger.Logger, maxCheckinHours int) *ParkingValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	for tag, fn := range map[string]validator.Func{
		"plate":  validatePlate,
		"hhmm":   validateHHMM,
		"ddmmyy": validateDDMMYY,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator", "tag", tag, "error", err)
		}
	}

	return &ParkingValidator{
		validate:        v,
		maxCheckinHours: maxCheckinHours,
	}
}

func validatePlate(fl validator.FieldLevel) bool {
	plate := fl.Field().String()
	if len(plate) < minPlateLength || len(plate) > maxPlateLength {
		return false
	}
	return plateRegex.MatchString(plate)
}

func validateHHMM(fl validator.FieldLevel) bool {
	_, _, err := timeparse.Clock(fl.Field().String())
	return err == nil
}

func validateDDMMYY(fl validator.FieldLevel) bool {
	_, err := timeparse.Date(fl.Field().String(), nil)
	return err == nil
}

func (v *ParkingValidator) ValidateCheckIn(req *model.CheckInRequest) error {
	if err := v.validateStruct(req); err != nil {
		return err
	}
	if req.Hours > v.maxCheckinHours {
		return ValidationErrors{{
			Field:   "hours",
			Message: fmt.Sprintf("must be at most %d", v.maxCheckinHours),
		}}
	}
	return nil
}

func (v *ParkingValidator) ValidatePreBooking(req *model.PreBookingRequest) error {
	return v.validateStruct(req)
}

func (v *ParkingValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors
	for _, err := range errs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: messageFor(err),
		})
	}
	return validationErrors
}

func messageFor(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "plate":
		return "must be 2 to 16 letters or digits, optionally separated by single spaces or hyphens"
	case "hhmm":
		return "must be a 24-hour time in HHMM form"
	case "ddmmyy":
		return "must be a date in DD-MM-YY form"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	}
	return fmt.Sprintf("failed %s validation", err.Tag())
}
