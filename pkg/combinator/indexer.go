package combinator

import (
	"errors"
	"fmt"

	"github.com/limaJavier/coursecomb/pkg/model"
)

var ErrTooManyPatterns = errors.New("too many distinct weekly patterns")

// indexer gives a unique slot to each distinct weekly pattern and vice versa
type indexer interface {
	// Returns the slot of the pattern, assigning the next free one (first-seen order) if the pattern is new
	Index(pattern model.Pattern) (slot, error)
	// Returns the pattern behind a slot
	Pattern(index slot) model.Pattern
	// Returns the amount of slots assigned so far
	Len() int
}

func newIndexer(capacity int) indexer {
	return &indexerImplementation{
		capacity: capacity,
		slots:    make(map[model.Pattern]slot),
		patterns: make([]model.Pattern, 0),
	}
}

type indexerImplementation struct {
	capacity int
	slots    map[model.Pattern]slot
	patterns []model.Pattern
}

func (indexer *indexerImplementation) Index(pattern model.Pattern) (slot, error) {
	if index, ok := indexer.slots[pattern]; ok {
		return index, nil
	}

	if len(indexer.patterns) >= indexer.capacity {
		return 0, fmt.Errorf("%w: capacity is %v", ErrTooManyPatterns, indexer.capacity)
	}

	index := slot(len(indexer.patterns))
	indexer.slots[pattern] = index
	indexer.patterns = append(indexer.patterns, pattern)
	return index, nil
}

func (indexer *indexerImplementation) Pattern(index slot) model.Pattern {
	return indexer.patterns[index]
}

func (indexer *indexerImplementation) Len() int {
	return len(indexer.patterns)
}
