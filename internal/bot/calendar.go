package bot

import (
	"strconv"
	"time"

	"github.com/Alias1177/TokenPredictor/internal/interval"
)

const (
	monthLayout = "2006-01"
	// Telegram rejects blank button labels
	fillerLabel = "·"
)

var weekdayLabels = [7]string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func parseMonth(s string) (time.Time, error) {
	return time.ParseInLocation(monthLayout, s, time.UTC)
}

// calendarKeyboard renders the month containing month as an inline grid,
// weeks starting on Monday. Days before earliest are not selectable and
// navigation does not go to months before it.
func calendarKeyboard(month, earliest time.Time) Keyboard {
	minMonth := monthStart(earliest)
	first := monthStart(month)
	if first.Before(minMonth) {
		first = minMonth
	}
	earliestDay := time.Date(earliest.Year(), earliest.Month(), earliest.Day(), 0, 0, 0, 0, time.UTC)

	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)

	prevBtn := Button{Label: "<<", Data: prefixCalendar + prev.Format(monthLayout)}
	if prev.Before(minMonth) {
		prevBtn = Button{Label: fillerLabel, Data: dataNoop}
	}

	keyboard := Keyboard{
		{
			prevBtn,
			{Label: first.Format("January 2006"), Data: dataNoop},
			{Label: ">>", Data: prefixCalendar + next.Format(monthLayout)},
		},
	}

	weekdays := make([]Button, 0, 7)
	for _, label := range weekdayLabels {
		weekdays = append(weekdays, Button{Label: label, Data: dataNoop})
	}
	keyboard = append(keyboard, weekdays)

	row := make([]Button, 0, 7)
	offset := (int(first.Weekday()) + 6) % 7
	for i := 0; i < offset; i++ {
		row = append(row, Button{Label: fillerLabel, Data: dataNoop})
	}

	daysInMonth := first.AddDate(0, 1, -1).Day()
	for d := 1; d <= daysInMonth; d++ {
		day := first.AddDate(0, 0, d-1)
		if day.Before(earliestDay) {
			row = append(row, Button{Label: fillerLabel, Data: dataNoop})
		} else {
			row = append(row, Button{Label: strconv.Itoa(d), Data: prefixDate + day.Format(interval.DateLayout)})
		}
		if len(row) == 7 {
			keyboard = append(keyboard, row)
			row = make([]Button, 0, 7)
		}
	}
	if len(row) > 0 {
		for len(row) < 7 {
			row = append(row, Button{Label: fillerLabel, Data: dataNoop})
		}
		keyboard = append(keyboard, row)
	}

	return keyboard
}
