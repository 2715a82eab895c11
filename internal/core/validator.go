package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"laborcurve/internal/types"
)

// pretermWeeks is the gestational age below which the term population
// curves are a weaker reference.
const pretermWeeks = 37.0

// ValidationError describes one failed field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult separates blocking errors from advisory warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
}

// IsValid reports whether there are no blocking errors.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator wraps go-playground/validator with the domain tags:
//
//	parity        nullip | multip
//	enc_status    open | delivered | cs
//	event_kind    sve | rom | med | vitals | fetal
//	dilation      0..10 cm
//	station       -5..+5
//	is_timezone   an IANA zone name
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator builds a Validator with the custom tags registered and field
// names reported by their json tag.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "parity", func(fl validator.FieldLevel) bool {
		return types.Parity(fl.Field().String()).IsValid()
	})
	mustRegister(v, "enc_status", func(fl validator.FieldLevel) bool {
		return types.EncounterStatus(fl.Field().String()).IsValid()
	})
	mustRegister(v, "event_kind", func(fl validator.FieldLevel) bool {
		kind := types.EventKind(fl.Field().String())
		for _, k := range types.AllEventKinds {
			if k == kind {
				return true
			}
		}
		return false
	})
	mustRegister(v, "dilation", func(fl validator.FieldLevel) bool {
		return types.IsValidDilation(fl.Field().Float())
	})
	mustRegister(v, "station", func(fl validator.FieldLevel) bool {
		return types.IsValidStation(fl.Field().Float())
	})
	mustRegister(v, "is_timezone", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if name == "" {
			return true
		}
		_, err := time.LoadLocation(name)
		return err == nil
	})

	return &Validator{validate: v, logger: logger}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// ValidateStruct returns nil or an AppError carrying every failed field
// under details["validation_errors"]. The error code follows the first
// failing tag.
func (v *Validator) ValidateStruct(s any) error {
	result := v.ValidateStructWithWarnings(s)
	if result.IsValid() {
		return nil
	}
	first := result.Errors[0]
	return types.NewAppErrorWithDetails(tagToErrorCode(first.Code),
		first.Message, nil,
		map[string]any{"validation_errors": result.Errors})
}

// ValidateStructWithWarnings runs the struct rules and collects advisory
// warnings for structs that implement Warner.
func (v *Validator) ValidateStructWithWarnings(s any) ValidationResult {
	var result ValidationResult

	if err := v.validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			v.logger.Error("validator misuse", "error", err)
			result.Errors = append(result.Errors, ValidationError{
				Field: "", Code: "invalid", Message: "request could not be validated",
			})
			return result
		}
		for _, fe := range fieldErrs {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fe.Field(),
				Code:    fe.Tag(),
				Message: fieldMessage(fe),
			})
		}
	}

	if w, ok := s.(Warner); ok {
		result.Warnings = w.ValidationWarnings()
	}
	return result
}

// Warner is implemented by request types with non-blocking advice.
type Warner interface {
	ValidationWarnings() []string
}

// GestationalAgeWarnings returns advisory notes for a gestational age.
func GestationalAgeWarnings(ga *float64) []string {
	if ga != nil && *ga < pretermWeeks {
		return []string{"reference curves describe term labor; interpret preterm predictions with care"}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "parity":
		return fe.Field() + " must be nullip or multip"
	case "enc_status":
		return fe.Field() + " must be open, delivered or cs"
	case "event_kind":
		return fe.Field() + " must be one of sve, rom, med, vitals, fetal"
	case "dilation":
		return fe.Field() + " must be between 0 and 10"
	case "station":
		return fe.Field() + " must be between -5 and 5"
	case "is_timezone":
		return fe.Field() + " must be an IANA time zone"
	case "min", "gte", "gt":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte", "lt":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}

// tagToErrorCode picks the AppError code for a failed tag.
func tagToErrorCode(tag string) types.ErrorCode {
	switch tag {
	case "required":
		return types.ErrCodeValidationMissingField
	case "parity":
		return types.ErrCodeValidationInvalidParity
	case "enc_status":
		return types.ErrCodeValidationInvalidStatus
	case "event_kind":
		return types.ErrCodeValidationEventKind
	case "dilation":
		return types.ErrCodeValidationDilation
	}
	return types.ErrCodeValidationInvalidRequest
}
