package combinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	combinator, err := NewCombinator(exampleCatalog(t), false)
	require.NoError(t, err)

	testCases := []struct {
		name        string
		combination []uint64
		fixed       []Fixed
		required    []string
		selected    []string
		valid       bool
	}{
		{"Valid with optional", []uint64{1, 2}, nil, []string{"A"}, []string{"B"}, true},
		{"Valid without optional", []uint64{0}, nil, []string{"A"}, []string{"B"}, true},
		{"Overlapping sections", []uint64{0, 2}, nil, []string{"A"}, []string{"B"}, false},
		{"Missing required", []uint64{2}, nil, []string{"A"}, []string{"B"}, false},
		{"Two sections of a required code", []uint64{0, 1}, nil, []string{"A"}, nil, false},
		{"Code not asked for", []uint64{1, 2}, nil, []string{"A"}, nil, false},
		{"Unknown section", []uint64{1, 9}, nil, []string{"A"}, nil, false},
		{"Repeated section", []uint64{1, 1}, nil, []string{"A"}, nil, false},
		{"Fixed present", []uint64{1, 2}, []Fixed{{Code: "B", Position: 0}}, []string{"A"}, nil, true},
		{"Fixed missing", []uint64{1}, []Fixed{{Code: "B", Position: 0}}, []string{"A"}, nil, false},
		{"Fixed out of range", []uint64{1}, []Fixed{{Code: "A", Position: 5}}, nil, nil, false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.valid, combinator.Verify(testCase.combination, testCase.fixed, testCase.required, testCase.selected))
		})
	}
}
