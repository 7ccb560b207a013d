// Package calendar computes which days of a property's booking calendar can be selected.
package calendar

import (
	"fmt"
	"time"
)

// Midnight truncates t to 00:00 UTC of its calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsDateAvailable reports whether day/month/year can be booked. The date must not
// be before today; when dates is non-empty it must also match one of them by
// day, month and year.
func IsDateAvailable(day int, month time.Month, year int, today time.Time, dates []time.Time) bool {
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises overflow (Feb 30 -> Mar 2); reject those.
	if date.Day() != day || date.Month() != month {
		return false
	}
	if date.Before(Midnight(today)) {
		return false
	}
	if len(dates) == 0 {
		return true
	}
	for _, d := range dates {
		if Midnight(d).Equal(date) {
			return true
		}
	}
	return false
}

// View is the month shown by the calendar.
type View struct {
	Month time.Month
	Year  int
}

// ViewOf returns the view containing t.
func ViewOf(t time.Time) View {
	t = t.UTC()
	return View{Month: t.Month(), Year: t.Year()}
}

func (v View) first() time.Time {
	return time.Date(v.Year, v.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next moves one month forward. Forward navigation is unbounded.
func (v View) Next() View {
	return ViewOf(v.first().AddDate(0, 1, 0))
}

// CanGoBack reports whether a month before v may be shown.
func (v View) CanGoBack(today time.Time) bool {
	return v.first().After(ViewOf(today).first())
}

// Prev moves one month back, never before the month containing today.
func (v View) Prev(today time.Time) View {
	if !v.CanGoBack(today) {
		return ViewOf(today)
	}
	return ViewOf(v.first().AddDate(0, -1, 0))
}

// DaysInMonth returns the number of days in the viewed month.
func (v View) DaysInMonth() int {
	return v.first().AddDate(0, 1, -1).Day()
}

// Cell is one calendar slot. Day is 0 for leading blanks.
type Cell struct {
	Day       int  `json:"day"`
	Available bool `json:"available"`
}

// MonthCells lays out v starting on Sunday, with leading blank cells.
func MonthCells(v View, today time.Time, dates []time.Time) []Cell {
	offset := int(v.first().Weekday())
	n := v.DaysInMonth()
	cells := make([]Cell, 0, offset+n)
	for i := 0; i < offset; i++ {
		cells = append(cells, Cell{})
	}
	for day := 1; day <= n; day++ {
		cells = append(cells, Cell{
			Day:       day,
			Available: IsDateAvailable(day, v.Month, v.Year, today, dates),
		})
	}
	return cells
}

// Visit slots run hourly in UTC.
const (
	FirstSlotHour = 8
	LastSlotHour  = 20
)

// TimeSlots returns the bookable visit times, "08:00" through "20:00".
func TimeSlots() []string {
	slots := make([]string, 0, LastSlotHour-FirstSlotHour+1)
	for h := FirstSlotHour; h <= LastSlotHour; h++ {
		slots = append(slots, fmt.Sprintf("%02d:00", h))
	}
	return slots
}

// IsValidSlot reports whether s is one of TimeSlots.
func IsValidSlot(s string) bool {
	for _, slot := range TimeSlots() {
		if slot == s {
			return true
		}
	}
	return false
}

// Selection is the date and time picked for a visit.
type Selection struct {
	Date *time.Time
	Time string
}

// SelectDay records day in view if it is available; it reports whether the selection changed.
func (s *Selection) SelectDay(v View, day int, today time.Time, dates []time.Time) bool {
	if !IsDateAvailable(day, v.Month, v.Year, today, dates) {
		return false
	}
	d := time.Date(v.Year, v.Month, day, 0, 0, 0, 0, time.UTC)
	s.Date = &d
	return true
}

// SelectTime records slot if it is a valid time slot.
func (s *Selection) SelectTime(slot string) bool {
	if !IsValidSlot(slot) {
		return false
	}
	s.Time = slot
	return true
}

// Ready reports whether both a date and a time were chosen.
func (s *Selection) Ready() bool {
	return s.Date != nil && s.Time != ""
}
