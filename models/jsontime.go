package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the millisecond UTC form declarations are stamped with.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// JSONTime wraps time.Time so a declaration's submission time keeps its
// millisecond "…Z" form in JSON while being stored as TIMESTAMPTZ.
type JSONTime time.Time

var parseLayouts = []string{
	time.RFC3339Nano,
	TimestampLayout,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

// ParseJSONTime accepts RFC3339 and the shorter forms without a zone, which
// are read as UTC.
func ParseJSONTime(s string) (JSONTime, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return JSONTime(t.UTC()), nil
		}
	}
	return JSONTime{}, fmt.Errorf("JSONTime: cannot parse %q", s)
}

func (jt JSONTime) Time() time.Time { return time.Time(jt) }

// String formats with TimestampLayout.
func (jt JSONTime) String() string {
	return time.Time(jt).UTC().Format(TimestampLayout)
}

func (jt *JSONTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("JSONTime.UnmarshalJSON: %w", err)
	}
	t, err := ParseJSONTime(s)
	if err != nil {
		return err
	}
	*jt = t
	return nil
}

func (jt JSONTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(jt.String())
}

// Value implements driver.Valuer.
func (jt JSONTime) Value() (driver.Value, error) {
	return time.Time(jt), nil
}

// Scan implements sql.Scanner.
func (jt *JSONTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*jt = JSONTime{}
		return nil
	case time.Time:
		*jt = JSONTime(v)
		return nil
	case []byte:
		t, err := ParseJSONTime(string(v))
		if err != nil {
			return err
		}
		*jt = t
		return nil
	case string:
		t, err := ParseJSONTime(v)
		if err != nil {
			return err
		}
		*jt = t
		return nil
	default:
		return fmt.Errorf("JSONTime.Scan: unsupported type %T", src)
	}
}
