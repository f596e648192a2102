package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"classbook/pkg/logger"
	"classbook/pkg/model"
	"classbook/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

// MaxAttendees bounds one admission request.
const MaxAttendees = 50

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

// Details renders the errors as a field -> message map for API responses.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation("payment_method", validatePaymentMethod); err != nil {
		log.Fatal("Failed to register 'payment_method' validator",
			"error", err,
		)
	}

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	method, ok := fl.Field().Interface().(model.PaymentMethod)
	if !ok {
		return false
	}
	return method.Valid()
}

func (v *BookingValidator) ValidateStatusUpdate(update *model.BookingStatusUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors("", validationErrs)
		}
		return err
	}
	return nil
}

// ValidateAttendees checks each attendee and rejects emails that repeat
// after normalization. Errors are reported per attendee index.
func (v *BookingValidator) ValidateAttendees(attendees []model.Attendee) error {
	if len(attendees) == 0 {
		return ValidationErrors{{Field: "attendees", Message: "at least one attendee is required"}}
	}
	if len(attendees) > MaxAttendees {
		return ValidationErrors{{
			Field:   "attendees",
			Message: fmt.Sprintf("at most %d attendees per booking", MaxAttendees),
		}}
	}

	var validationErrors ValidationErrors
	for i := range attendees {
		if err := v.validate.Struct(&attendees[i]); err != nil {
			var validationErrs validator.ValidationErrors
			if !errors.As(err, &validationErrs) {
				return err
			}
			prefix := fmt.Sprintf("attendees[%d].", i)
			validationErrors = append(validationErrors, v.translateValidationErrors(prefix, validationErrs)...)
		}
	}

	emails := make([]string, len(attendees))
	for i, a := range attendees {
		emails[i] = a.Email
	}
	for _, i := range sanitizer.DuplicateIndexes(emails, sanitizer.NormalizeEmail) {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fmt.Sprintf("attendees[%d].email", i),
			Message: "email is already used by another attendee",
		})
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}
	return nil
}

func (v *BookingValidator) ValidatePaymentMethod(method model.PaymentMethod) error {
	if err := v.validate.Var(method, "payment_method"); err != nil {
		return ValidationErrors{{
			Field:   "payment_method",
			Message: "payment_method must be one of: cash card class_pass membership free",
		}}
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(prefix string, errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   prefix + err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
