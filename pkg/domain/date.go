package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	dErrors "longtrees/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// Date is a calendar date with no time of day or zone. It is comparable, so
// two documents holding the same day compare equal.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a strict YYYY-MM-DD date for the named field.
func ParseDate(field, raw string) (Date, error) {
	if len(raw) != len(dateLayout) {
		return Date{}, dErrors.InvalidDate(field, raw)
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return Date{}, dErrors.InvalidDate(field, raw)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText renders the zero Date as an empty string.
func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate("date", string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalBSONValue stores the date as its YYYY-MM-DD string.
func (d Date) MarshalBSONValue() (bsontype.Type, []byte, error) {
	text, _ := d.MarshalText()
	return bson.MarshalValue(string(text))
}

func (d *Date) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var raw string
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&raw); err != nil {
		return fmt.Errorf("decode date: %w", err)
	}
	return d.UnmarshalText([]byte(raw))
}
