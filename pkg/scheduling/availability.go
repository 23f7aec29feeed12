package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	slotDuration   = 30 * time.Minute
	searchHorizon  = 21 // days scanned past the requested date
	maxSlotsPerDay = 3
)

// SlotFilter narrows a slot search.
type SlotFilter struct {
	FromDate  time.Time // first day to consider; zero = today
	PartOfDay string    // "morning", "afternoon", "evening" or ""
	Limit     int       // max slots returned; 0 = no cap beyond the horizon
}

// FindSlots walks a doctor's weekly availability windows starting at the
// requested date and returns open 30-minute slots, skipping intervals that
// overlap existing appointments. At most three slots per day are returned,
// scanning up to three weeks ahead.
func (s *Store) FindSlots(ctx context.Context, doctorID int64, filter SlotFilter) ([]Slot, error) {
	day := filter.FromDate.UTC().Truncate(24 * time.Hour)
	if day.IsZero() {
		day = time.Now().UTC().Truncate(24 * time.Hour)
	}

	var slots []Slot
	for offset := 0; offset <= searchHorizon; offset++ {
		current := day.AddDate(0, 0, offset)

		windows, err := s.availabilityWindows(ctx, doctorID, current.Weekday())
		if err != nil {
			return nil, err
		}
		if len(windows) == 0 {
			continue
		}

		booked, err := s.appointmentsBetween(ctx, doctorID, current, current.Add(24*time.Hour))
		if err != nil {
			return nil, err
		}

		perDay := 0
		for _, w := range windows {
			startH, startM, err := parseClock(w.Start)
			if err != nil {
				return nil, err
			}
			endH, endM, err := parseClock(w.End)
			if err != nil {
				return nil, err
			}

			cursor := time.Date(current.Year(), current.Month(), current.Day(), startH, startM, 0, 0, time.UTC)
			windowEnd := time.Date(current.Year(), current.Month(), current.Day(), endH, endM, 0, 0, time.UTC)

			for !cursor.Add(slotDuration).After(windowEnd) && perDay < maxSlotsPerDay {
				slot := Slot{Start: cursor, End: cursor.Add(slotDuration)}
				cursor = cursor.Add(slotDuration)

				if !matchesPartOfDay(slot.Start, filter.PartOfDay) {
					continue
				}
				if overlapsAny(slot, booked) {
					continue
				}

				slots = append(slots, slot)
				perDay++
				if filter.Limit > 0 && len(slots) >= filter.Limit {
					return slots, nil
				}
			}
		}
	}
	return slots, nil
}

// matchesPartOfDay buckets a slot start by its hour. Morning is 06:00-12:00,
// afternoon 12:00-17:00, evening 17:00-21:00 with a 21:00 start allowed.
func matchesPartOfDay(start time.Time, part string) bool {
	h := start.Hour()
	switch strings.ToLower(strings.TrimSpace(part)) {
	case "":
		return true
	case "morning":
		return h >= 6 && h < 12
	case "afternoon":
		return h >= 12 && h < 17
	case "evening":
		return h >= 17 && (h < 21 || (h == 21 && start.Minute() == 0))
	default:
		return true
	}
}

func overlapsAny(slot Slot, booked []Appointment) bool {
	for _, a := range booked {
		if slot.Start.Before(a.EndAt) && slot.End.After(a.StartAt) {
			return true
		}
	}
	return false
}

// SlotStrings renders slots in the wire format.
func SlotStrings(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

// ParseSlot parses the wire format back into a Slot.
func ParseSlot(s string) (Slot, error) {
	const layout = "2006-01-02T15:04Z"
	parts := strings.SplitN(s, "Z-", 2)
	if len(parts) != 2 {
		return Slot{}, fmt.Errorf("invalid slot %q", s)
	}
	start, err := time.Parse(layout, parts[0]+"Z")
	if err != nil {
		return Slot{}, fmt.Errorf("invalid slot start in %q", s)
	}
	end, err := time.Parse(layout, parts[1])
	if err != nil {
		return Slot{}, fmt.Errorf("invalid slot end in %q", s)
	}
	return Slot{Start: start.UTC(), End: end.UTC()}, nil
}
