package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind determines the sign a record contributes to aggregate totals.
	// Amounts themselves are always stored positive.
	Kind string

	// TransactionRecord is one user-entered financial event. ID, OwnerID and
	// CreatedAt are assigned by the store on creation and immutable after.
	TransactionRecord struct {
		ID          string
		OwnerID     string
		Title       string
		Amount      decimal.Decimal
		Kind        Kind
		Category    string
		Description string
		OccurredAt  time.Time
		CreatedAt   time.Time
	}
)

// IsValid reports whether k is a known record kind.
func (k Kind) IsValid() bool {
	return k == Income || k == Expense
}

// Validate checks the user-editable fields and returns a ValidationError
// naming every offending field.
func (r TransactionRecord) Validate() error {
	var fields []string
	if strings.TrimSpace(r.Title) == "" {
		fields = append(fields, FieldTitle)
	}
	if !r.Amount.IsPositive() {
		fields = append(fields, FieldAmount)
	}
	if !r.Kind.IsValid() {
		fields = append(fields, FieldKind)
	}
	if strings.TrimSpace(r.Category) == "" {
		fields = append(fields, FieldCategory)
	}
	if r.OccurredAt.IsZero() {
		fields = append(fields, FieldOccurredAt)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// RecordPatch is a partial update; nil fields are left untouched.
type RecordPatch struct {
	Title       *string
	Amount      *decimal.Decimal
	Kind        *Kind
	Category    *string
	Description *string
	OccurredAt  *time.Time
}

// Apply returns a copy of r with the set fields replaced. ID, OwnerID and
// CreatedAt are never patched.
func (p RecordPatch) Apply(r TransactionRecord) TransactionRecord {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Kind != nil {
		r.Kind = *p.Kind
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.OccurredAt != nil {
		r.OccurredAt = *p.OccurredAt
	}
	return r
}

// Validate checks only the fields the patch sets.
func (p RecordPatch) Validate() error {
	var fields []string
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		fields = append(fields, FieldTitle)
	}
	if p.Amount != nil && !p.Amount.IsPositive() {
		fields = append(fields, FieldAmount)
	}
	if p.Kind != nil && !p.Kind.IsValid() {
		fields = append(fields, FieldKind)
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		fields = append(fields, FieldCategory)
	}
	if p.OccurredAt != nil && p.OccurredAt.IsZero() {
		fields = append(fields, FieldOccurredAt)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// IsEmpty reports whether the patch sets no fields at all.
func (p RecordPatch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Kind == nil &&
		p.Category == nil && p.Description == nil && p.OccurredAt == nil
}
