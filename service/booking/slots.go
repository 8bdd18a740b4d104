package booking

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const slotLayout = "03:04 PM"

// Schedule is the gym's enumerated list of session start times. Every
// booking_time must be drawn from it.
type Schedule struct {
	slots []string
	index map[string]int
}

// NewSchedule builds a schedule from 12-hour slot labels ("09:00 AM").
// Labels that do not parse are rejected.
func NewSchedule(times []string) (*Schedule, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("schedule requires at least one slot")
	}
	s := &Schedule{index: make(map[string]int, len(times))}
	for _, t := range times {
		label := strings.TrimSpace(t)
		if _, err := time.Parse(slotLayout, label); err != nil {
			return nil, fmt.Errorf("invalid slot time %q: %w", label, err)
		}
		if _, dup := s.index[label]; dup {
			return nil, fmt.Errorf("duplicate slot time %q", label)
		}
		s.index[label] = len(s.slots)
		s.slots = append(s.slots, label)
	}
	return s, nil
}

// DefaultSchedule is the hourly 09:00 AM through 07:00 PM grid, 11 slots.
func DefaultSchedule() *Schedule {
	times := make([]string, 0, 11)
	for h := 9; h <= 19; h++ {
		times = append(times, time.Date(0, 1, 1, h, 0, 0, 0, time.UTC).Format(slotLayout))
	}
	s, err := NewSchedule(times)
	if err != nil {
		panic(err)
	}
	return s
}

// ScheduleFromEnv reads GYM_SLOT_TIMES (comma-separated labels) and falls
// back to the default grid when unset or unparseable.
func ScheduleFromEnv() *Schedule {
	raw := os.Getenv("GYM_SLOT_TIMES")
	if raw == "" {
		return DefaultSchedule()
	}
	s, err := NewSchedule(strings.Split(raw, ","))
	if err != nil {
		return DefaultSchedule()
	}
	return s
}

func (s *Schedule) Contains(label string) bool {
	_, ok := s.index[label]
	return ok
}

func (s *Schedule) Slots() []string {
	out := make([]string, len(s.slots))
	copy(out, s.slots)
	return out
}

// SlotStatus annotates one schedule slot with its bookability for a given
// trainer and date. Callers receive the full grid, booked slots included,
// so the UI can render "booked" rather than omit them.
type SlotStatus struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Annotate marks every schedule slot, flagging the ones claimed by the given
// booked times as unavailable. A fully booked day still yields the complete
// grid, never an empty list.
func (s *Schedule) Annotate(booked []string) []SlotStatus {
	taken := make(map[string]bool, len(booked))
	for _, b := range booked {
		taken[b] = true
	}
	out := make([]SlotStatus, len(s.slots))
	for i, slot := range s.slots {
		out[i] = SlotStatus{Time: slot, Available: !taken[slot]}
	}
	return out
}

// sessionStart combines a civil booking date with a slot label into the
// moment the session begins, in the gym's local timezone.
func sessionStart(date time.Time, slot string, loc *time.Location) time.Time {
	clock, err := time.Parse(slotLayout, slot)
	if err != nil {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
}
