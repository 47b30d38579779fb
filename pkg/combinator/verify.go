package combinator

import (
	"log"

	"github.com/samber/lo"
)

func (combinator *combinatorImplementation) Verify(combination []uint64, fixed []Fixed, required, selected []string) bool {
	table := combinator.table

	//** Every section must exist and be used once
	if duplicates := lo.FindDuplicates(combination); len(duplicates) > 0 {
		log.Printf("sections %v are present more than once", duplicates)
		return false
	}
	for _, section := range combination {
		if _, ok := table.sections[section]; !ok {
			log.Printf("section %v is not present in the catalog", section)
			return false
		}
	}

	//** Every fixed section must be present
	remaining := lo.SliceToMap(combination, func(section uint64) (uint64, bool) {
		return section, true
	})
	for _, f := range fixed {
		ids, ok := table.ids[f.Code]
		if !ok || f.Position < 0 || f.Position >= len(ids) {
			log.Printf("fixed section %v#%v does not exist", f.Code, f.Position)
			return false
		}
		if !remaining[ids[f.Position]] {
			log.Printf("fixed section %v#%v is missing", f.Code, f.Position)
			return false
		}
		delete(remaining, ids[f.Position])
	}

	//** Non-fixed sections must match required (exactly) and selected (at most) codes
	counts := make(map[string]int)
	for section := range remaining {
		counts[table.sections[section].code]++
	}
	requiredCounts := lo.CountValues(required)
	selectedCounts := lo.CountValues(selected)
	for code, count := range counts {
		if count < requiredCounts[code] || count > requiredCounts[code]+selectedCounts[code] {
			log.Printf("code %v is present %v times out of the expected range [%v, %v]", code, count, requiredCounts[code], requiredCounts[code]+selectedCounts[code])
			return false
		}
	}
	for code, expected := range requiredCounts {
		if counts[code] < expected {
			log.Printf("required code %v is missing", code)
			return false
		}
	}

	//** No pair of sections may overlap
	for i := range combination {
		for j := i + 1; j < len(combination); j++ {
			if combinator.Conflicts(combination[i], combination[j]) {
				log.Printf("sections %v and %v overlap", combination[i], combination[j])
				return false
			}
		}
	}

	return true
}
