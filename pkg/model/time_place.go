package model

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	ErrSelfOverlap = errors.New("section overlaps itself")
	ErrOutOfRange  = errors.New("interval outside the representable week")
)

var (
	fragmentRegex = regexp.MustCompile(`((?:[월화수목금토일]|Mon|Tue|Wed|Thu|Fri|Sat|Sun)+)(\d{1,2}):(\d{2})-(\d{1,2}):(\d{2})\(([^)]*)\)`)
	dayRegex      = regexp.MustCompile(`[월화수목금토일]|Mon|Tue|Wed|Thu|Fri|Sat|Sun`)
)

// Weekend days map to -1: they are recognized but the week representation has no slot for them
var dayIndices = map[string]int{
	"월": 0, "Mon": 0,
	"화": 1, "Tue": 1,
	"수": 2, "Wed": 2,
	"목": 3, "Thu": 3,
	"금": 4, "Fri": 4,
	"토": -1, "Sat": -1,
	"일": -1, "Sun": -1,
}

type TimePlace struct {
	Normalized string // Input with whitespace removed
	Rooms      []string
	Occupancy  [Weekdays][]Interval
	Pattern    Pattern
}

// ParseTimePlace turns a raw schedule text such as "월10:30-12:00(E7-101)수10:30-12:00(E7-101)" into per-weekday intervals and block masks.
// Text that does not match the fragment grammar is ignored, Saturday and Sunday fragments only contribute their room.
// A section whose own intervals overlap is rejected with ErrSelfOverlap since it signals malformed source data.
func ParseTimePlace(raw string) (TimePlace, error) {
	normalized := strings.Join(strings.Fields(raw), "")
	result := TimePlace{
		Normalized: normalized,
		Rooms:      make([]string, 0),
	}

	for _, match := range fragmentRegex.FindAllStringSubmatch(normalized, -1) {
		fragment := match[0]
		start, err := minutes(match[2], match[3])
		if err != nil {
			return TimePlace{}, fmt.Errorf("fragment %q: %w", fragment, err)
		}
		end, err := minutes(match[4], match[5])
		if err != nil {
			return TimePlace{}, fmt.Errorf("fragment %q: %w", fragment, err)
		}

		result.Rooms = append(result.Rooms, match[6])

		interval := Interval{Start: start, End: end}
		mask, err := intervalMask(interval)
		if err != nil {
			return TimePlace{}, fmt.Errorf("fragment %q: %w", fragment, err)
		}

		for _, token := range dayRegex.FindAllString(match[1], -1) {
			day := dayIndices[token]
			if day < 0 {
				continue
			}
			// Bit-OR must equal bit-sum, otherwise the section double-books itself
			if result.Pattern[day]&mask != 0 {
				return TimePlace{}, fmt.Errorf("fragment %q on %v: %w", fragment, DayNames[day], ErrSelfOverlap)
			}
			result.Pattern[day] |= mask
			result.Occupancy[day] = append(result.Occupancy[day], interval)
		}
	}

	for day := range result.Occupancy {
		slices.SortFunc(result.Occupancy[day], func(a, b Interval) int {
			return int(a.Start) - int(b.Start)
		})
	}

	return result, nil
}

// Bits for the blocks in [(start-BlockStart)/BlockSize, (end-BlockStart)/BlockSize)
func intervalMask(interval Interval) (uint64, error) {
	if interval.Start < BlockStart || interval.End < interval.Start {
		return 0, fmt.Errorf("%v-%v: %w", clock(interval.Start), clock(interval.End), ErrOutOfRange)
	}

	first := (interval.Start - BlockStart) / BlockSize
	last := (interval.End - BlockStart) / BlockSize
	if last > BlocksPerDay {
		return 0, fmt.Errorf("%v-%v: %w", clock(interval.Start), clock(interval.End), ErrOutOfRange)
	}

	var mask uint64
	for block := first; block < last; block++ {
		mask |= 1 << block
	}
	return mask, nil
}

func minutes(hours, mins string) (uint64, error) {
	h, err := strconv.ParseUint(hours, 10, 64)
	if err != nil {
		return 0, err
	}
	m, err := strconv.ParseUint(mins, 10, 64)
	if err != nil {
		return 0, err
	}
	if h > 24 || m > 59 {
		return 0, fmt.Errorf("%v:%v: %w", hours, mins, ErrOutOfRange)
	}
	return h*60 + m, nil
}

func clock(minutes uint64) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
