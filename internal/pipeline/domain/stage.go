// Package domain provides the core rules of the pipeline stage bounded context:
// stage shape and validation, transition legality, ordering, auto-advance
// eligibility and aggregate statistics. It has no infrastructure dependencies.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the coarse bucket a stage belongs to.
type Category string

const (
	CategoryOpen Category = "open"
	CategoryWon  Category = "won"
	CategoryLost Category = "lost"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryOpen, CategoryWon, CategoryLost:
		return true
	}
	return false
}

const (
	MaxNameLength   = 100
	MinProbability  = 0
	MaxProbability  = 100
	MaxAutoAdvance  = 365
	DefaultColor    = "#6B7280"
	DefaultCategory = CategoryOpen
)

// Actor is the already-authenticated member performing a change.
type Actor struct {
	ID   uuid.UUID
	Name string
}

// Stage is a named, ordered position in a company's sales pipeline.
type Stage struct {
	ID              uuid.UUID
	CompanyID       uuid.UUID
	Name            string
	Description     *string
	Order           int
	Category        Category
	Probability     int
	Color           string
	IsActive        bool
	IsDefault       bool
	AutoAdvance     bool
	AutoAdvanceDays *int
	NotifyOnEnter   bool
	NotifyOnExit    bool
	NotifyUsers     []uuid.UUID
	RequiredFields  []string
	AllowedStages   []string

	// Supplied by the deal read model, never persisted with the stage.
	DealCount  int64
	TotalValue float64

	CreatedBy     uuid.UUID
	CreatedByName string
	UpdatedBy     uuid.UUID
	UpdatedByName string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AutoAdvanceWindow returns the dwell time after which a deal becomes eligible.
func (s Stage) AutoAdvanceWindow() (time.Duration, bool) {
	if !s.AutoAdvance || s.AutoAdvanceDays == nil || *s.AutoAdvanceDays <= 0 {
		return 0, false
	}
	return time.Duration(*s.AutoAdvanceDays) * 24 * time.Hour, true
}

// Allows reports whether a deal in s may move to a stage called target.
// An empty allowed set means every stage is reachable.
func (s Stage) Allows(target string) bool {
	if len(s.AllowedStages) == 0 {
		return true
	}
	key := NameKey(target)
	for _, name := range s.AllowedStages {
		if NameKey(name) == key {
			return true
		}
	}
	return false
}

// Draft carries the fields of a stage to create.
type Draft struct {
	Name            string
	Description     *string
	Category        Category
	Probability     int
	Color           string
	IsActive        bool
	IsDefault       bool
	AutoAdvance     bool
	AutoAdvanceDays *int
	NotifyOnEnter   bool
	NotifyOnExit    bool
	NotifyUsers     []uuid.UUID
	RequiredFields  []string
	AllowedStages   []string
	// Position, when set, places the stage at that zero-based order.
	Position *int
}

// Patch carries the fields of a stage to change; nil means unchanged.
type Patch struct {
	Name            *string
	Description     *string
	Order           *int
	Category        *Category
	Probability     *int
	Color           *string
	IsActive        *bool
	AutoAdvance     *bool
	AutoAdvanceDays *int
	NotifyOnEnter   *bool
	NotifyOnExit    *bool
	NotifyUsers     *[]uuid.UUID
	RequiredFields  *[]string
	AllowedStages   *[]string
}

// TouchesPosition reports whether the patch changes where the stage sits.
func (p Patch) TouchesPosition() bool {
	return p.Order != nil
}

// NewStage builds a validated stage from a draft. Order is assigned by the store.
func NewStage(companyID uuid.UUID, d Draft, actor Actor, now time.Time) (Stage, error) {
	if d.Category == "" {
		d.Category = DefaultCategory
	}
	if strings.TrimSpace(d.Color) == "" {
		d.Color = DefaultColor
	}

	s := Stage{
		ID:              uuid.New(),
		CompanyID:       companyID,
		Name:            strings.TrimSpace(d.Name),
		Description:     trimOptional(d.Description),
		Category:        d.Category,
		Probability:     d.Probability,
		Color:           strings.TrimSpace(d.Color),
		IsActive:        d.IsActive,
		IsDefault:       d.IsDefault,
		AutoAdvance:     d.AutoAdvance,
		AutoAdvanceDays: d.AutoAdvanceDays,
		NotifyOnEnter:   d.NotifyOnEnter,
		NotifyOnExit:    d.NotifyOnExit,
		NotifyUsers:     NormalizeRecipients(d.NotifyUsers),
		RequiredFields:  NormalizeTokens(d.RequiredFields),
		AllowedStages:   NormalizeNames(d.AllowedStages),
		CreatedBy:       actor.ID,
		CreatedByName:   actor.Name,
		UpdatedBy:       actor.ID,
		UpdatedByName:   actor.Name,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !s.AutoAdvance {
		s.AutoAdvanceDays = nil
	}

	if err := s.Validate(); err != nil {
		return Stage{}, err
	}
	return s, nil
}

// ApplyPatch returns s with patch applied and revalidated. It does not check
// default-stage protection; call CanMutate first. Order is left to the store.
func ApplyPatch(s Stage, p Patch, actor Actor, now time.Time) (Stage, error) {
	next := s
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		next.Description = trimOptional(p.Description)
	}
	if p.Category != nil {
		next.Category = *p.Category
	}
	if p.Probability != nil {
		next.Probability = *p.Probability
	}
	if p.Color != nil {
		next.Color = strings.TrimSpace(*p.Color)
	}
	if p.IsActive != nil {
		next.IsActive = *p.IsActive
	}
	if p.AutoAdvance != nil {
		next.AutoAdvance = *p.AutoAdvance
	}
	if p.AutoAdvanceDays != nil {
		days := *p.AutoAdvanceDays
		next.AutoAdvanceDays = &days
	}
	if p.NotifyOnEnter != nil {
		next.NotifyOnEnter = *p.NotifyOnEnter
	}
	if p.NotifyOnExit != nil {
		next.NotifyOnExit = *p.NotifyOnExit
	}
	if p.NotifyUsers != nil {
		next.NotifyUsers = NormalizeRecipients(*p.NotifyUsers)
	}
	if p.RequiredFields != nil {
		next.RequiredFields = NormalizeTokens(*p.RequiredFields)
	}
	if p.AllowedStages != nil {
		next.AllowedStages = NormalizeNames(*p.AllowedStages)
	}
	if !next.AutoAdvance {
		next.AutoAdvanceDays = nil
	}

	next.UpdatedBy = actor.ID
	next.UpdatedByName = actor.Name
	next.UpdatedAt = now

	if err := next.Validate(); err != nil {
		return Stage{}, err
	}
	return next, nil
}

// Validate enforces the field-level invariants of a stage.
func (s Stage) Validate() error {
	if s.Name == "" {
		return ErrValidation("name is required")
	}
	if len([]rune(s.Name)) > MaxNameLength {
		return ErrValidation("name must be at most 100 characters")
	}
	if !s.Category.Valid() {
		return ErrValidation("category must be one of open, won, lost")
	}
	if s.Probability < MinProbability || s.Probability > MaxProbability {
		return ErrValidation("probability must be between 0 and 100")
	}
	if s.Color == "" {
		return ErrValidation("color is required")
	}
	if s.AutoAdvance {
		if s.AutoAdvanceDays == nil {
			return ErrValidation("autoAdvanceDays is required when autoAdvance is enabled")
		}
		if *s.AutoAdvanceDays <= 0 || *s.AutoAdvanceDays > MaxAutoAdvance {
			return ErrValidation("autoAdvanceDays must be between 1 and 365")
		}
	}
	for _, name := range s.AllowedStages {
		if len([]rune(name)) > MaxNameLength {
			return ErrValidation("allowedStages entries must be at most 100 characters")
		}
	}
	return nil
}

// CheckAllowedReferences verifies every allowed stage name exists among known.
// selfName is accepted so a stage being created may reference itself.
func CheckAllowedReferences(allowed []string, known []Stage, selfName string) error {
	names := make(map[string]struct{}, len(known)+1)
	for _, st := range known {
		names[NameKey(st.Name)] = struct{}{}
	}
	if selfName != "" {
		names[NameKey(selfName)] = struct{}{}
	}

	var unknown []string
	for _, name := range allowed {
		if _, ok := names[NameKey(name)]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return ErrValidation("allowedStages references unknown stages: " + strings.Join(unknown, ", ")).
			WithDetails(map[string][]string{"unknownStages": unknown})
	}
	return nil
}

// NameKey is the case-insensitive comparison key for stage names.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeNames trims, drops empties and removes case-insensitive duplicates,
// keeping the first spelling seen.
func NormalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		key := NameKey(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// NormalizeTokens trims, drops empties and removes exact duplicates.
func NormalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// NormalizeRecipients removes nil and duplicate ids.
func NormalizeRecipients(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
