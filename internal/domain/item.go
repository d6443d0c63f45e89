package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxPrice is the upper bound accepted for an item price on submission.
const MaxPrice = 999_999

// Item is a single shopping-list entry owned by one user.
//
// ID and CreatedAt are assigned by the record store on creation; before the
// first persist ID is uuid.Nil and CreatedAt is the zero time. OwnerID never
// changes after creation and scopes every query and subscription.
type Item struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Price       float64
	Description *string
	Category    *string
	CreatedAt   time.Time
}

// CategoryValue returns the trimmed category, or "" if the item has none.
func (i Item) CategoryValue() string {
	if i.Category == nil {
		return ""
	}
	return strings.TrimSpace(*i.Category)
}

// ItemPatch is a partial update to an existing item. Nil fields are left
// unchanged. ID and OwnerID are not patchable.
type ItemPatch struct {
	Name        *string
	Price       *float64
	Description *string
	Category    *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Price == nil && p.Description == nil && p.Category == nil
}
