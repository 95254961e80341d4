package interval

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the only accepted date format
const DateLayout = "2006-01-02"

// DefaultDays is the bucketing constant the deployed model was fit with
const DefaultDays = 4

var (
	ErrInvalidFormat   = errors.New("invalid date format")
	ErrBeforeReference = errors.New("date is before reference date")
)

// Translator converts calendar dates into model intervals counted from
// Reference, the last date present in the training data.
type Translator struct {
	Reference time.Time
	Days      int
}

// ParseReference validates a configured reference date
func ParseReference(reference string) (time.Time, error) {
	ref, err := ParseDate(reference)
	if err != nil {
		return time.Time{}, fmt.Errorf("reference date: %w", err)
	}
	return ref, nil
}

// New validates the reference date and builds a Translator
func New(reference string, days int) (Translator, error) {
	ref, err := ParseReference(reference)
	if err != nil {
		return Translator{}, err
	}
	if days <= 0 {
		return Translator{}, fmt.Errorf("interval days must be positive, got %d", days)
	}
	return Translator{Reference: ref, Days: days}, nil
}

// ParseDate parses a YYYY-MM-DD calendar date at UTC midnight
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD)", ErrInvalidFormat, s)
	}
	return t, nil
}

// DaysBetween returns the number of calendar days from ref to t
func DaysBetween(t, ref time.Time) int {
	a := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	return int(a.Sub(b).Hours() / 24)
}

// ToInterval maps a date string to the model's interval unit
func (tr Translator) ToInterval(date string) (int, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	days := DaysBetween(t, tr.Reference)
	if days < 0 {
		return 0, fmt.Errorf("%w: %s precedes %s", ErrBeforeReference, t.Format(DateLayout), tr.ReferenceString())
	}
	return days / tr.Days, nil
}

// ReferenceString formats the reference date for user messages
func (tr Translator) ReferenceString() string {
	return tr.Reference.Format(DateLayout)
}
