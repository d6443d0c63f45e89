package domain

import (
	"math"
	"strconv"
	"strings"
)

// ParsePrice parses user-entered price text into a float64.
// A comma is accepted as the decimal separator ("12,50" == "12.50").
// Returns ErrValidation-wrapped errors for empty, non-numeric, or
// non-finite input. Range checks are left to input validation.
func ParsePrice(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, NewValidationError("price", "required")
	}

	// Accept "12,50" from locales that use a decimal comma, but only when
	// the comma is unambiguous (a single one, no dot).
	if strings.Count(text, ",") == 1 && !strings.Contains(text, ".") {
		text = strings.Replace(text, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, NewValidationError("price", "not a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, NewValidationError("price", "not a finite number")
	}

	return v, nil
}
