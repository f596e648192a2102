package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"classbook/pkg/logger"
	"classbook/pkg/model"

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

func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type LessonValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewLessonValidator(log *logger.Logger) *LessonValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	log.Debug("Lesson validator initialized successfully")

	return &LessonValidator{
		validate: v,
		logger:   log,
	}
}

func (v *LessonValidator) ValidateLesson(lesson *model.Lesson) error {
	if err := v.validateStruct(lesson); err != nil {
		return err
	}

	// lock_out_time is either the original window or cleared.
	if orig := lesson.OriginalLockOutTime; orig != nil && lesson.LockOutTime != 0 && lesson.LockOutTime != *orig {
		return ValidationErrors{{
			Field:   "lock_out_time",
			Message: "lock_out_time must be 0 or equal to original_lock_out_time",
		}}
	}
	return nil
}

func (v *LessonValidator) ValidateClassOption(option *model.ClassOption) error {
	if err := v.validateStruct(option); err != nil {
		return err
	}

	if option.DropIn == nil {
		return nil
	}
	seen := make(map[string]bool, len(option.DropIn.DiscountTiers))
	for i, tier := range option.DropIn.DiscountTiers {
		key := fmt.Sprintf("%d/%s", tier.MinQuantity, tier.Type)
		if seen[key] {
			return ValidationErrors{{
				Field:   fmt.Sprintf("drop_in.discount_tiers[%d]", i),
				Message: fmt.Sprintf("duplicate %s tier for min_quantity %d", tier.Type, tier.MinQuantity),
			}}
		}
		seen[key] = true
	}
	return nil
}

func (v *LessonValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *LessonValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after the start time", err.Field())
		case "iso4217":
			message = fmt.Sprintf("%s must be an ISO 4217 currency code", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   namespaceField(err.Namespace()),
			Message: message,
		})
	}

	return validationErrors
}

// namespaceField drops the root struct name: "ClassOption.drop_in.price"
// becomes "drop_in.price".
func namespaceField(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
