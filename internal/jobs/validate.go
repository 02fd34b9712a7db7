package jobs

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
)

const (
	MaxPromptLength    = 2000
	MaxReferenceSize   = 10 << 20
	referenceFieldName = "referenceImage"
)

var referenceContentTypes = []string{"image/png", "image/jpeg"}

// Validator checks submission payloads and reports every failing field.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "veo_model", func(fl validator.FieldLevel) bool {
		return slices.Contains(domain.SupportedModels, fl.Field().String())
	})
	mustRegister(v, "veo_resolution", func(fl validator.FieldLevel) bool {
		return slices.Contains(domain.SupportedResolutions, fl.Field().String())
	})
	mustRegister(v, "veo_aspect", func(fl validator.FieldLevel) bool {
		return slices.Contains(domain.SupportedAspectRatios, fl.Field().String())
	})
	mustRegister(v, "veo_duration", func(fl validator.FieldLevel) bool {
		return slices.Contains(domain.SupportedDurations, int(fl.Field().Int()))
	})
	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// ValidateSubmit validates in after defaults have been applied.
func (val *Validator) ValidateSubmit(in SubmitInput) error {
	var fields []domain.FieldError
	if err := val.v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate submission: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, domain.FieldError{Field: fe.Field(), Message: messageFor(fe)})
		}
	}
	if ref := in.Reference; ref != nil {
		if !slices.Contains(referenceContentTypes, ref.ContentType) {
			fields = append(fields, domain.FieldError{Field: referenceFieldName, Message: "must be a PNG or JPEG image"})
		}
		if ref.Size <= 0 || ref.Size > MaxReferenceSize {
			fields = append(fields, domain.FieldError{Field: referenceFieldName, Message: "must be between 1 byte and 10 MiB"})
		}
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "veo_model":
		return "must be one of: " + strings.Join(domain.SupportedModels, ", ")
	case "veo_resolution":
		return "must be one of: " + strings.Join(domain.SupportedResolutions, ", ")
	case "veo_aspect":
		return "must be one of: " + strings.Join(domain.SupportedAspectRatios, ", ")
	case "veo_duration":
		return "must be one of: 4, 6, 8"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
