package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/oraculo-ai/oraculo/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("context_type", validateContextType); err != nil {
		panic(fmt.Sprintf("failed to register context_type validator: %v", err))
	}
}

// validateContextType validates that a string is a valid ContextType enum value
func validateContextType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.ContextType(value) {
	case models.ContextPreference, models.ContextMetric, models.ContextFeedback, models.ContextOther:
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateContextType validates a ContextType string value
func ValidateContextType(value string) error {
	ct := models.ContextType(value)
	switch ct {
	case models.ContextPreference, models.ContextMetric, models.ContextFeedback, models.ContextOther:
		return nil
	default:
		return fmt.Errorf("invalid context_type: %s (must be 'preference', 'metric', 'feedback', or 'other')", value)
	}
}

// ValidateImportance validates a memory importance value
func ValidateImportance(value int) error {
	if value < models.MinImportance || value > models.MaxImportance {
		return fmt.Errorf("invalid importance: %d (must be between %d and %d)", value, models.MinImportance, models.MaxImportance)
	}
	return nil
}
