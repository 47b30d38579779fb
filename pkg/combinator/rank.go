package combinator

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// Rank orders combinations by the total amount of occupied half-hour blocks (fewest first, stable) and keeps the first limit of them.
// A limit of zero (or beyond the amount of combinations) keeps them all. The input slice is not modified.
func Rank(combinator Combinator, combinations [][]uint64, limit int) [][]uint64 {
	type scored struct {
		combination []uint64
		blocks      int
	}

	ranked := lo.Map(combinations, func(combination []uint64, _ int) scored {
		return scored{combination: combination, blocks: Occupancy(combinator, combination)}
	})
	slices.SortStableFunc(ranked, func(a, b scored) int {
		return cmp.Compare(a.blocks, b.blocks)
	})

	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return lo.Map(ranked, func(item scored, _ int) []uint64 {
		return item.combination
	})
}

// Occupancy returns the amount of half-hour blocks occupied by the sections of a combination.
// Sections of a valid combination never overlap, so this is the sum of their individual blocks.
func Occupancy(combinator Combinator, combination []uint64) int {
	return lo.SumBy(combination, func(section uint64) int {
		pattern, _ := combinator.Pattern(section)
		return pattern.Blocks()
	})
}
