package combinator

import (
	"cmp"
	"slices"

	"github.com/limaJavier/coursecomb/pkg/model"
)

const root = 0 // Index of the empty partial every combination starts from

type combinatorImplementation struct {
	table *conflictTable
	pool  *framePool // nil when buffers are not recycled
}

func (combinator *combinatorImplementation) Combine(fixed []Fixed, required, selected []string) ([][]uint64, error) {
	//** Validate query
	if err := combinator.validate(fixed, required, selected); err != nil {
		return nil, err
	}

	//** Order codes by amount of options (fewest first)
	required = combinator.byOptions(required)
	selected = combinator.byOptions(selected)

	//** Initialize buffers
	frame := combinator.acquire()
	defer combinator.release(frame)

	table := combinator.table
	frame.partials = append(frame.partials, partial{parent: -1})

	//** Seed with fixed sections
	// Fixed sections are never relaxed, a conflict among them leaves the query without solution
	current := root
	for _, f := range fixed {
		index := table.slots[f.Code][f.Position]
		previous := frame.partials[current]
		if !table.fits(index, previous.used) {
			return nil, nil
		}
		frame.partials = append(frame.partials, extend(previous, current, table.ids[f.Code][f.Position], index))
		current = len(frame.partials) - 1
	}
	frame.frontier = append(frame.frontier, current)

	//** Expand required codes
	for _, code := range required {
		slots, ids := table.slots[code], table.ids[code]
		frame.next = frame.next[:0]
		for i, index := range slots {
			for _, node := range frame.frontier {
				previous := frame.partials[node]
				if table.fits(index, previous.used) {
					frame.partials = append(frame.partials, extend(previous, node, ids[i], index))
					frame.next = append(frame.next, len(frame.partials)-1)
				}
			}
		}
		if len(frame.next) == 0 { // The code cannot be satisfied alongside what was already chosen
			return nil, nil
		}
		frame.frontier, frame.next = frame.next, frame.frontier
	}

	//** Expand selected codes
	// Extensions are appended after the unmodified partials, which stay in the frontier
	for _, code := range selected {
		slots, ids := table.slots[code], table.ids[code]
		size := len(frame.frontier)
		for i, index := range slots {
			for _, node := range frame.frontier[:size] {
				previous := frame.partials[node]
				if table.fits(index, previous.used) {
					frame.partials = append(frame.partials, extend(previous, node, ids[i], index))
					frame.frontier = append(frame.frontier, len(frame.partials)-1)
				}
			}
		}
	}

	//** Materialize combinations
	combinations := make([][]uint64, 0, len(frame.frontier))
	for _, node := range frame.frontier {
		combinations = append(combinations, materialize(frame.partials, node))
	}
	return combinations, nil
}

func (combinator *combinatorImplementation) Conflicts(section1, section2 uint64) bool {
	ref1, ok1 := combinator.table.sections[section1]
	ref2, ok2 := combinator.table.sections[section2]
	if !ok1 || !ok2 {
		return false
	}
	return combinator.table.conflict(ref1.slot, ref2.slot)
}

func (combinator *combinatorImplementation) Sections(code string) ([]uint64, bool) {
	ids, ok := combinator.table.ids[code]
	if !ok {
		return nil, false
	}
	return slices.Clone(ids), true
}

func (combinator *combinatorImplementation) Pattern(section uint64) (model.Pattern, bool) {
	ref, ok := combinator.table.sections[section]
	if !ok {
		return model.Pattern{}, false
	}
	return combinator.table.patterns[ref.slot], true
}

func (combinator *combinatorImplementation) Slots() int {
	return len(combinator.table.patterns)
}

// Checks every list in order (fixed, required, selected) and reports the first offending entry
func (combinator *combinatorImplementation) validate(fixed []Fixed, required, selected []string) error {
	table := combinator.table
	for _, f := range fixed {
		options := table.options(f.Code)
		if options < 0 {
			return &QueryError{Kind: UnknownFixedCode, Code: f.Code}
		} else if f.Position < 0 || f.Position >= options {
			return &QueryError{Kind: InvalidFixedPosition, Code: f.Code, Position: f.Position}
		}
	}
	for _, code := range required {
		if table.options(code) < 0 {
			return &QueryError{Kind: UnknownRequiredCode, Code: code}
		}
	}
	for _, code := range selected {
		if table.options(code) < 0 {
			return &QueryError{Kind: UnknownSelectedCode, Code: code}
		}
	}
	return nil
}

// Returns a copy of codes stably ordered by ascending amount of sections
func (combinator *combinatorImplementation) byOptions(codes []string) []string {
	ordered := slices.Clone(codes)
	slices.SortStableFunc(ordered, func(a, b string) int {
		return cmp.Compare(combinator.table.options(a), combinator.table.options(b))
	})
	return ordered
}

func (combinator *combinatorImplementation) acquire() *frame {
	if combinator.pool == nil {
		return newFrame()
	}
	return combinator.pool.Get()
}

func (combinator *combinatorImplementation) release(frame *frame) {
	if combinator.pool != nil {
		combinator.pool.Put(frame)
	}
}

func extend(previous partial, parent int, id uint64, index slot) partial {
	used := previous.used
	used.Set(index)
	return partial{
		parent: parent,
		id:     id,
		depth:  previous.depth + 1,
		used:   used,
	}
}

// Walks back from node to the root collecting section ids in insertion order
func materialize(partials []partial, node int) []uint64 {
	combination := make([]uint64, partials[node].depth)
	for i := len(combination) - 1; i >= 0; i-- {
		combination[i] = partials[node].id
		node = partials[node].parent
	}
	return combination
}
