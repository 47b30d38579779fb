package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimePlace(t *testing.T) {
	t.Run("Single fragment", func(t *testing.T) {
		// Act
		parsed, err := ParseTimePlace("월10:30-12:00(E7-101)")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{"E7-101"}, parsed.Rooms)
		assert.Equal(t, uint64(1<<3|1<<4|1<<5), parsed.Pattern[0])
		assert.Equal(t, []Interval{{Start: 630, End: 720}}, parsed.Occupancy[0])
		for day := 1; day < Weekdays; day++ {
			assert.Zero(t, parsed.Pattern[day])
			assert.Empty(t, parsed.Occupancy[day])
		}
	})

	t.Run("Several days in one fragment", func(t *testing.T) {
		// Act
		parsed, err := ParseTimePlace("월수09:00-10:00(E7-101)")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, uint64(0b11), parsed.Pattern[0])
		assert.Equal(t, uint64(0b11), parsed.Pattern[2])
		assert.Zero(t, parsed.Pattern[1])
	})

	t.Run("English day names and whitespace", func(t *testing.T) {
		// Act
		parsed, err := ParseTimePlace(" Tue 13:00-15:00 (E1-201) Fri09:00-09:30(E1-202)")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Tue13:00-15:00(E1-201)Fri09:00-09:30(E1-202)", parsed.Normalized)
		assert.Equal(t, uint64(0b1111<<8), parsed.Pattern[1])
		assert.Equal(t, uint64(1), parsed.Pattern[4])
		assert.Equal(t, []string{"E1-201", "E1-202"}, parsed.Rooms)
	})

	t.Run("Adjacent intervals do not overlap", func(t *testing.T) {
		// Act
		parsed, err := ParseTimePlace("월10:30-12:00(R1)월09:00-10:30(R1)")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, uint64(0b111111), parsed.Pattern[0])
		assert.Equal(t, []Interval{{Start: 540, End: 630}, {Start: 630, End: 720}}, parsed.Occupancy[0])
	})

	t.Run("Partial block is truncated", func(t *testing.T) {
		// Act
		parsed, err := ParseTimePlace("Mon09:00-10:15(R1)")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, uint64(0b11), parsed.Pattern[0])
	})

	t.Run("Weekend fragments keep their room only", func(t *testing.T) {
		// Act
		parsed, err := ParseTimePlace("토10:00-12:00(Field)")

		// Assert
		require.NoError(t, err)
		assert.True(t, parsed.Pattern.Empty())
		assert.Equal(t, []string{"Field"}, parsed.Rooms)
	})

	t.Run("Unrecognized text is ignored", func(t *testing.T) {
		// Act
		parsed, err := ParseTimePlace("TBA")

		// Assert
		require.NoError(t, err)
		assert.True(t, parsed.Pattern.Empty())
		assert.Empty(t, parsed.Rooms)
	})

	t.Run("Self overlap is rejected", func(t *testing.T) {
		// Act
		_, err := ParseTimePlace("월09:00-10:30(R1)월10:00-11:00(R2)")

		// Assert
		assert.ErrorIs(t, err, ErrSelfOverlap)
	})

	t.Run("Times before the first block are rejected", func(t *testing.T) {
		// Act
		_, err := ParseTimePlace("월08:00-10:00(R1)")

		// Assert
		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("Reversed interval is rejected", func(t *testing.T) {
		// Act
		_, err := ParseTimePlace("월11:00-10:00(R1)")

		// Assert
		assert.ErrorIs(t, err, ErrOutOfRange)
	})
}

func TestPattern(t *testing.T) {
	a := Pattern{0b0111}
	b := Pattern{0b1000}
	c := Pattern{0b0100, 0, 1}

	assert.False(t, a.Intersects(b))
	assert.True(t, a.Intersects(c))
	assert.True(t, c.Intersects(a))
	assert.True(t, a.Intersects(a))
	assert.False(t, Pattern{}.Intersects(Pattern{}))

	merged, ok := a.Merge(b)
	assert.True(t, ok)
	assert.Equal(t, Pattern{0b1111}, merged)
	assert.Equal(t, 4, merged.Blocks())

	_, ok = a.Merge(c)
	assert.False(t, ok)
}
