package export

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/limaJavier/coursecomb/pkg/model"
)

const productId = "-//coursecomb//timetable//EN"

// Calendar renders the sections of a combination as weekly recurring events.
// Events start on the week of firstWeek (any day of it) and repeat weeks times.
func Calendar(sections []model.Section, firstWeek time.Time, weeks int) (string, error) {
	if weeks <= 0 {
		return "", fmt.Errorf("a calendar needs at least one week, got %v", weeks)
	}

	monday := mondayOf(firstWeek)
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productId)

	for _, section := range sections {
		location := strings.Join(lo.Uniq(section.Rooms), ", ")
		for day, intervals := range section.Occupancy {
			for _, interval := range intervals {
				// Stable uid so that re-exports update events instead of duplicating them
				name := fmt.Sprintf("%v-%v-%v-%v", section.Id, day, interval.Start, interval.End)
				event := cal.AddEvent(uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String())

				date := monday.AddDate(0, 0, day)
				event.SetDtStampTime(monday)
				event.SetStartAt(date.Add(time.Duration(interval.Start) * time.Minute))
				event.SetEndAt(date.Add(time.Duration(interval.End) * time.Minute))
				event.SetSummary(fmt.Sprintf("%v (%v-%v)", section.Name, section.Code, section.Number))
				if location != "" {
					event.SetLocation(location)
				}
				if section.Professor != "" {
					event.SetDescription(section.Professor)
				}
				event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%v", weeks))
			}
		}
	}

	return cal.Serialize(), nil
}

// Midnight of the monday starting the week of t, in t's location
func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	year, month, day := t.AddDate(0, 0, -offset).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
