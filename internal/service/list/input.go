package list

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/shoplist-sync/internal/domain"
)

// SaveInput holds the parameters for creating or updating a list item.
// A nil ID means create; otherwise the identified item is updated.
type SaveInput struct {
	ID          *uuid.UUID
	Name        string
	Price       float64
	Description *string
	Category    *string
}

// Validate checks all fields and collects all errors.
func (i SaveInput) Validate() error {
	var errs []domain.FieldError

	name := strings.TrimSpace(i.Name)
	switch {
	case name == "":
		errs = append(errs, domain.FieldError{Field: "name", Message: "required"})
	case len([]rune(name)) < 2:
		errs = append(errs, domain.FieldError{Field: "name", Message: "too short (min 2)"})
	case len(name) > 200:
		errs = append(errs, domain.FieldError{Field: "name", Message: "too long (max 200)"})
	}

	switch {
	case math.IsNaN(i.Price) || math.IsInf(i.Price, 0):
		errs = append(errs, domain.FieldError{Field: "price", Message: "not a finite number"})
	case i.Price <= 0:
		errs = append(errs, domain.FieldError{Field: "price", Message: "must be greater than 0"})
	case i.Price > domain.MaxPrice:
		errs = append(errs, domain.FieldError{Field: "price", Message: fmt.Sprintf("too large (max %d)", domain.MaxPrice)})
	}

	if i.ID != nil && *i.ID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "id", Message: "must not be the zero UUID"})
	}

	if i.Description != nil && len(*i.Description) > 2000 {
		errs = append(errs, domain.FieldError{Field: "description", Message: "too long (max 2000)"})
	}

	if i.Category != nil && len(*i.Category) > 100 {
		errs = append(errs, domain.FieldError{Field: "category", Message: "too long (max 100)"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}
