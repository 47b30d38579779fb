package model

import "math/bits"

const (
	BlockStart   = 9 * 60 // Minute of the day at which block 0 starts (09:00)
	BlockSize    = 30     // Minutes per block
	BlocksPerDay = 64     // One bit per block in a day's mask
	Weekdays     = 5      // Monday..Friday
)

var DayNames = [Weekdays]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// Interval is a [Start, End) range expressed in minutes of the day
type Interval struct {
	Start uint64
	End   uint64
}

// Pattern is a section's weekly occupancy: Pattern[day] has bit k set iff the block starting at BlockStart+BlockSize*k is occupied
type Pattern [Weekdays]uint64

// Intersects reports whether both patterns share an occupied block on any weekday
func (pattern Pattern) Intersects(other Pattern) bool {
	for day := range Weekdays {
		if pattern[day]|other[day] != pattern[day]^other[day] {
			return true
		}
	}
	return false
}

// Empty reports whether the pattern occupies no block at all (e.g. online or unscheduled sections)
func (pattern Pattern) Empty() bool {
	return pattern == Pattern{}
}

// Blocks counts the occupied half-hour blocks over the week
func (pattern Pattern) Blocks() int {
	total := 0
	for _, mask := range pattern {
		total += bits.OnesCount64(mask)
	}
	return total
}

// Merge returns the union of both patterns and false if they overlap
func (pattern Pattern) Merge(other Pattern) (Pattern, bool) {
	if pattern.Intersects(other) {
		return Pattern{}, false
	}
	var merged Pattern
	for day := range Weekdays {
		merged[day] = pattern[day] | other[day]
	}
	return merged, true
}

type Section struct {
	Id        uint64
	Code      string // Course code shared by every section of the same course
	Number    uint64 // Section (class) number, orders the sections of a code
	Name      string
	Professor string
	Credit    uint64
	TimePlace string // Raw schedule text the occupancy was derived from
	Rooms     []string
	Occupancy [Weekdays][]Interval
	Pattern   Pattern
}

// NewSection parses timePlace and builds an immutable section out of it
func NewSection(id uint64, code string, number uint64, name, professor string, credit uint64, timePlace string) (Section, error) {
	parsed, err := ParseTimePlace(timePlace)
	if err != nil {
		return Section{}, err
	}

	return Section{
		Id:        id,
		Code:      code,
		Number:    number,
		Name:      name,
		Professor: professor,
		Credit:    credit,
		TimePlace: parsed.Normalized,
		Rooms:     parsed.Rooms,
		Occupancy: parsed.Occupancy,
		Pattern:   parsed.Pattern,
	}, nil
}
