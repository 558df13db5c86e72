package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldKind names the variant held by a FieldValue.
type FieldKind string

const (
	FieldText    FieldKind = "text"
	FieldNumber  FieldKind = "number"
	FieldDate    FieldKind = "date"
	FieldBoolean FieldKind = "boolean"
	FieldSelect  FieldKind = "select"
)

// FieldValue is one entry in a deal's field bag. The set of implementations is
// closed; switch on the concrete type to handle every variant.
type FieldValue interface {
	Kind() FieldKind
	// IsEmpty reports whether the value fails a required-field check.
	IsEmpty() bool
	fieldValue()
}

type TextValue struct{ Value string }

type NumberValue struct{ Value float64 }

type DateValue struct{ Value time.Time }

// BooleanValue is never empty once present; false is a real answer.
type BooleanValue struct{ Value bool }

// SelectValue holds the chosen option among Options.
type SelectValue struct {
	Value   string
	Options []string
}

func (TextValue) Kind() FieldKind    { return FieldText }
func (NumberValue) Kind() FieldKind  { return FieldNumber }
func (DateValue) Kind() FieldKind    { return FieldDate }
func (BooleanValue) Kind() FieldKind { return FieldBoolean }
func (SelectValue) Kind() FieldKind  { return FieldSelect }

func (v TextValue) IsEmpty() bool   { return strings.TrimSpace(v.Value) == "" }
func (NumberValue) IsEmpty() bool   { return false }
func (v DateValue) IsEmpty() bool   { return v.Value.IsZero() }
func (BooleanValue) IsEmpty() bool  { return false }
func (v SelectValue) IsEmpty() bool { return strings.TrimSpace(v.Value) == "" }

func (TextValue) fieldValue()    {}
func (NumberValue) fieldValue()  {}
func (DateValue) fieldValue()    {}
func (BooleanValue) fieldValue() {}
func (SelectValue) fieldValue()  {}

// ValidOption reports whether the selected value is one of the offered options.
// An empty option list accepts any value.
func (v SelectValue) ValidOption() bool {
	if len(v.Options) == 0 {
		return true
	}
	for _, opt := range v.Options {
		if opt == v.Value {
			return true
		}
	}
	return false
}

// DealSnapshot is the deal service's view of a deal at transition time.
type DealSnapshot struct {
	ID uuid.UUID
	// CurrentStageID is nil for a deal that has never been placed.
	CurrentStageID *uuid.UUID
	Fields         map[string]FieldValue
}

// Value returns the deal value used by stats, read from the "value" number field.
func (d DealSnapshot) Value() float64 {
	if n, ok := d.Fields["value"].(NumberValue); ok {
		return n.Value
	}
	return 0
}

// MissingFields returns the required tokens that are absent or empty on the deal,
// sorted for stable output.
func (d DealSnapshot) MissingFields(required []string) []string {
	var missing []string
	for _, token := range required {
		v, ok := d.Fields[token]
		if !ok || v == nil || v.IsEmpty() {
			missing = append(missing, token)
		}
	}
	sort.Strings(missing)
	return missing
}
