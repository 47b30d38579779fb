package combinator

import (
	"errors"
	"fmt"

	"github.com/limaJavier/coursecomb/pkg/model"
)

var ErrInvalidQuery = errors.New("invalid query")

// Fixed pins the section at Position (0-based, in section-number order) of Code
type Fixed struct {
	Code     string
	Position int
}

type Combinator interface {
	// Returns every combination (as section ids) holding all fixed sections, exactly one section per required code and at most one per selected code, with no two sections overlapping.
	// Returns nil (with a nil error) if the query is valid but cannot be satisfied, and a *QueryError if it names unknown codes or positions.
	Combine(fixed []Fixed, required, selected []string) ([][]uint64, error)

	// Checks whether combination is a valid answer to the given query
	Verify(combination []uint64, fixed []Fixed, required, selected []string) bool

	// Checks whether two sections share an occupied block
	Conflicts(section1, section2 uint64) bool

	// Returns the ids of the sections of code ordered by section number
	Sections(code string) ([]uint64, bool)

	// Returns the weekly pattern of a section
	Pattern(section uint64) (model.Pattern, bool)

	// Returns the amount of distinct weekly patterns (used slots)
	Slots() int
}

// NewCombinator builds the conflict table for sections. Frontier buffers are recycled across queries when pooled is true.
// It fails with ErrTooManyPatterns when the catalog holds more than Capacity distinct weekly patterns.
func NewCombinator(sections []model.Section, pooled bool) (Combinator, error) {
	table, err := newConflictTable(sections)
	if err != nil {
		return nil, err
	}

	combinator := combinatorImplementation{table: table}
	if pooled {
		combinator.pool = newFramePool()
	}
	return &combinator, nil
}

type QueryErrorKind int

const (
	UnknownFixedCode QueryErrorKind = iota
	InvalidFixedPosition
	UnknownRequiredCode
	UnknownSelectedCode
)

var queryErrorKinds = map[QueryErrorKind]string{
	UnknownFixedCode:     "unknown fixed code",
	InvalidFixedPosition: "invalid fixed position",
	UnknownRequiredCode:  "unknown required code",
	UnknownSelectedCode:  "unknown selected code",
}

func (kind QueryErrorKind) String() string {
	return queryErrorKinds[kind]
}

type QueryError struct {
	Kind     QueryErrorKind
	Code     string
	Position int // Only meaningful for InvalidFixedPosition
}

func (err *QueryError) Error() string {
	if err.Kind == InvalidFixedPosition {
		return fmt.Sprintf("%v: %q has no section at position %v", err.Kind, err.Code, err.Position)
	}
	return fmt.Sprintf("%v: %q", err.Kind, err.Code)
}

func (err *QueryError) Unwrap() error {
	return ErrInvalidQuery
}
