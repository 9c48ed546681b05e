package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"healthmatch/pkg/logger"
	"healthmatch/pkg/model"

	"github.com/go-playground/validator/v10"
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

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
	now      func() time.Time
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	return newBookingValidator(log, time.Now)
}

func newBookingValidator(log *logger.Logger, now func() time.Time) *BookingValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	bv := &BookingValidator{
		validate: v,
		logger:   log,
		now:      now,
	}

	if err := v.RegisterValidation("future", bv.validateFuture); err != nil {
		log.Fatal("Failed to register 'future' validator", "error", err)
	}

	log.Debug("Booking validator initialized successfully")
	return bv
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}

// validateFuture accepts only instants strictly after now.
func (bv *BookingValidator) validateFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return t.After(bv.now())
}

func (bv *BookingValidator) Validate(req *model.BookingRequest) error {
	return bv.check(req)
}

func (bv *BookingValidator) ValidateUpdate(update *model.BookingUpdate) error {
	return bv.check(update)
}

func (bv *BookingValidator) check(s any) error {
	if err := bv.validate.Struct(s); err != nil {
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
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param())
		case "alpha":
			message = fmt.Sprintf("%s must contain letters only", err.Field())
		case "nefield":
			message = fmt.Sprintf("%s must differ from %s", err.Field(), jsonName(err.Param()))
		case "future":
			message = fmt.Sprintf("%s must be in the future", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

// jsonName maps the struct field named in a cross-field tag to its JSON name.
func jsonName(structField string) string {
	if f, ok := reflect.TypeOf(model.BookingRequest{}).FieldByName(structField); ok {
		return jsonFieldName(f)
	}
	return structField
}
