// Package report defines the generated artifacts of a canvas analysis and
// the schema rules every artifact must satisfy before it is accepted.
package report

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate *validator.Validate

// enumRules maps custom tag names to their allowed values.
var enumRules = map[string][]string{
	"level":            {LevelHigh, LevelMedium, LevelLow},
	"competitor_type":  {"Direct", "Indirect"},
	"projection_year":  {"Year 1", "Year 3", "Year 5"},
	"roadmap_status":   {"Planned", "In Progress", "Delayed", "Completed"},
	"budget_type":      {OneTime, Recurring},
	"risk_level":       {"Safe", "Warning", "CRITICAL"},
	"payment_priority": {"Critical", LevelHigh, LevelMedium, LevelLow},
	"trend":            {"Rising", "Falling", "Stable"},
	"stakeholder_type": {"Vendor", "Customer"},
	"cost_type":        {"Low-cost", "Free", "Paid"},
	"panic_category":   {"Money", "Customer", "Fear"},
	"launch_phase":     {"Day 1-3", "Day 4-7", "Day 8-14"},
}

func init() {
	validate = validator.New()

	// Register custom validation for non-empty trimmed strings
	_ = validate.RegisterValidation("nonempty", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	for tag, values := range enumRules {
		_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return slices.Contains(values, fl.Field().String())
		})
	}
}

// ValidationError provides structured error information for schema validation failures
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

// ValidationResult contains the result of schema validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ErrorSummary joins all error messages into one line.
func (r ValidationResult) ErrorSummary() string {
	if r.Valid {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Err returns nil for a valid result, otherwise an error wrapping ErrSchema.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSchema, r.ErrorSummary())
}

// ErrSchema marks an artifact that does not satisfy its schema.
var ErrSchema = errors.New("schema validation failed")

// validateStruct is a helper that validates any struct and returns ValidationResult
func validateStruct(s any) ValidationResult {
	err := validate.Struct(s)
	if err == nil {
		return ValidationResult{Valid: true}
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationResult{Errors: []ValidationError{{Tag: "invalid", Message: err.Error()}}}
	}

	result := ValidationResult{Errors: make([]ValidationError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fe.Namespace(),
			Tag:     fe.Tag(),
			Value:   fe.Value(),
			Message: formatValidationError(fe),
		})
	}
	return result
}

// formatValidationError creates a human-readable error message
func formatValidationError(err validator.FieldError) string {
	field := err.Namespace()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "nonempty":
		return fmt.Sprintf("%s cannot be empty or whitespace", field)
	case "min":
		if err.Kind().String() == "slice" {
			return fmt.Sprintf("%s must have at least %s items", field, err.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, err.Param())
	}
	if values, ok := enumRules[err.Tag()]; ok {
		return fmt.Sprintf("%s must be one of [%s], got %q", field, strings.Join(values, ", "), err.Value())
	}
	return fmt.Sprintf("%s failed validation: %s", field, err.Tag())
}
