package errors

import (
	"math"
	"strings"
	"time"
	"unicode"
)

// maxExternalIDLength bounds identifiers coming from ERP imports.
const maxExternalIDLength = 256

// ValidateExternalID validates an identifier supplied by an external system
// (operation, routing or order id). kind names the identifier in the message.
//
// The rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters or null bytes
//   - No surrounding whitespace
//   - Maximum length of 256 characters
func ValidateExternalID(kind, id string) error {
	if id == "" {
		return Invalid(ErrCodeInvalidInput, kind, id, "%s id cannot be empty", kind)
	}
	if len(id) > maxExternalIDLength {
		return Invalid(ErrCodeInvalidInput, kind, len(id), "%s id too long (max %d characters)", kind, maxExternalIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return Invalid(ErrCodeInvalidInput, kind, id, "%s id contains control characters", kind)
		}
	}
	if strings.TrimSpace(id) != id {
		return Invalid(ErrCodeInvalidInput, kind, id, "%s id has leading or trailing whitespace", kind)
	}
	return nil
}

// ValidateWindow checks that a half-open validity window [from, to) is not
// empty. Zero values are treated as unset and always pass.
func ValidateWindow(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return nil
	}
	if !to.After(from) {
		return Invalid(ErrCodeInvalidValidityWindow, "valid_to", to,
			"validity end must be after start %s", from.Format(time.RFC3339))
	}
	return nil
}

// ValidateFraction checks that v lies within [0,1].
func ValidateFraction(code Code, field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return Invalid(code, field, v, "value must be within [0,1]")
	}
	return nil
}

// ValidateNonNegative checks that a duration is not negative.
func ValidateNonNegative(code Code, field string, d time.Duration) error {
	if d < 0 {
		return Invalid(code, field, d, "duration cannot be negative")
	}
	return nil
}
