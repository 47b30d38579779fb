package combinator

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/limaJavier/coursecomb/pkg/model"
	"github.com/samber/lo"
)

var ErrDuplicateSection = errors.New("duplicate section id")

// conflictTable is built once per catalog and only read afterwards, so it can be shared by concurrent queries
type conflictTable struct {
	conflicts [Capacity]Mask      // conflicts[s] holds every slot whose pattern shares a block with the pattern of s
	patterns  []model.Pattern     // Pattern per slot
	slots     map[string][]slot   // Slot of each section of a code, ordered by section number
	ids       map[string][]uint64 // Id of each section of a code, index-aligned with slots
	sections  map[uint64]sectionRef
}

type sectionRef struct {
	code     string
	position int
	slot     slot
}

func newConflictTable(sections []model.Section) (*conflictTable, error) {
	indexer := newIndexer(Capacity)
	table := conflictTable{
		slots:    make(map[string][]slot),
		ids:      make(map[string][]uint64),
		sections: make(map[uint64]sectionRef, len(sections)),
	}

	//** Group sections by code and give every distinct pattern a slot
	grouped := make(map[string][]model.Section)
	sectionSlots := make(map[uint64]slot, len(sections))
	for _, section := range sections {
		if _, ok := sectionSlots[section.Id]; ok {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateSection, section.Id)
		}
		grouped[section.Code] = append(grouped[section.Code], section)

		index, err := indexer.Index(section.Pattern)
		if err != nil {
			return nil, err
		}
		sectionSlots[section.Id] = index
	}

	//** Order each code's sections by number and align slots with ids
	for code, codeSections := range grouped {
		slices.SortStableFunc(codeSections, func(a, b model.Section) int {
			return cmp.Compare(a.Number, b.Number)
		})

		table.slots[code] = lo.Map(codeSections, func(section model.Section, _ int) slot {
			return sectionSlots[section.Id]
		})
		table.ids[code] = lo.Map(codeSections, func(section model.Section, _ int) uint64 {
			return section.Id
		})
		for position, section := range codeSections {
			table.sections[section.Id] = sectionRef{code: code, position: position, slot: sectionSlots[section.Id]}
		}
	}

	//** Pairwise conflicts between distinct patterns
	// The diagonal is included so that a non-empty pattern conflicts with itself
	total := indexer.Len()
	table.patterns = make([]model.Pattern, total)
	for i := range total {
		table.patterns[i] = indexer.Pattern(slot(i))
	}
	for i := range total {
		for j := i; j < total; j++ {
			if table.patterns[i].Intersects(table.patterns[j]) {
				table.conflicts[i].Set(slot(j))
				table.conflicts[j].Set(slot(i))
			}
		}
	}

	return &table, nil
}

// Checks whether the patterns behind both slots share an occupied block
func (table *conflictTable) conflict(slot1, slot2 slot) bool {
	return table.conflicts[slot1].Has(slot2)
}

// Checks whether a section of pattern index can be added to a combination already using the slots in used
func (table *conflictTable) fits(index slot, used Mask) bool {
	return table.conflicts[index].Disjoint(used)
}

// Returns the amount of sections offered for code, or -1 if the code is unknown
func (table *conflictTable) options(code string) int {
	slots, ok := table.slots[code]
	if !ok {
		return -1
	}
	return len(slots)
}
