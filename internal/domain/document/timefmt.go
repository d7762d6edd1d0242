package document

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire layouts. Dates and times feed the fiscal fingerprint, so their
// textual form is part of the authority contract.
const (
	DateLayout      = "2006-01-02"
	ClockLayout     = "15:04:05"
	EventTimeLayout = "2006-01-02 15:04:05"
)

// Date is a calendar date serialized as yyyy-MM-dd
type Date struct {
	time.Time
}

// NewDate builds a Date at midnight UTC
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// String formats the date using DateLayout
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	s, null, err := unquote(data)
	if err != nil || null {
		return err
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// Clock is a time of day serialized as HH:mm:ss
type Clock struct {
	time.Time
}

// NewClock builds a Clock on the zero date
func NewClock(hour, minute, second int) Clock {
	return Clock{Time: time.Date(0, 1, 1, hour, minute, second, 0, time.UTC)}
}

// String formats the time of day using ClockLayout
func (c Clock) String() string {
	return c.Format(ClockLayout)
}

// MarshalJSON implements json.Marshaler
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts HH:mm:ss and HH:mm (upstream drops zero seconds)
func (c *Clock) UnmarshalJSON(data []byte) error {
	s, null, err := unquote(data)
	if err != nil || null {
		return err
	}
	for _, layout := range []string{ClockLayout, "15:04"} {
		if t, perr := time.Parse(layout, s); perr == nil {
			c.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid time of day %q", s)
}

// EventTime is the event timestamp serialized as yyyy-MM-dd HH:mm:ss
type EventTime struct {
	time.Time
}

// MarshalJSON implements json.Marshaler
func (e EventTime) MarshalJSON() ([]byte, error) {
	if e.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(e.Format(EventTimeLayout))
}

// UnmarshalJSON implements json.Unmarshaler
func (e *EventTime) UnmarshalJSON(data []byte) error {
	s, null, err := unquote(data)
	if err != nil || null {
		return err
	}
	t, err := time.Parse(EventTimeLayout, s)
	if err != nil {
		return fmt.Errorf("invalid event timestamp %q: %w", s, err)
	}
	e.Time = t
	return nil
}

func unquote(data []byte) (string, bool, error) {
	if string(data) == "null" {
		return "", true, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", false, err
	}
	return s, s == "", nil
}
