package ghostdb

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Flag is a boolean column that older Ghost databases store as integers,
// '0'/'1' text or true/false words.
type Flag bool

// Scan implements sql.Scanner. NULL scans as false.
func (f *Flag) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(v)
	case int64:
		*f = v != 0
	case float64:
		*f = v != 0
	case []byte:
		return f.parse(string(v))
	case string:
		return f.parse(v)
	default:
		return fmt.Errorf("ghostdb: cannot scan %T into Flag", src)
	}
	return nil
}

func (f *Flag) parse(text string) error {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "1", "t", "true", "y", "yes":
		*f = true
	case "", "0", "f", "false", "n", "no":
		*f = false
	default:
		return fmt.Errorf("ghostdb: cannot scan %q into Flag", text)
	}
	return nil
}

// Value implements driver.Valuer.
func (f Flag) Value() (driver.Value, error) {
	if f {
		return int64(1), nil
	}
	return int64(0), nil
}

// Timestamp is a nullable datetime column normalized to UTC.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// millisecond epochs are told apart from second epochs by magnitude.
const epochMillisThreshold = 1e12

// Scan implements sql.Scanner.
func (ts *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*ts = Timestamp{}
	case time.Time:
		*ts = Timestamp{Time: v.UTC(), Valid: true}
	case int64:
		*ts = fromEpoch(v)
	case float64:
		*ts = fromEpoch(int64(v))
	case []byte:
		return ts.parse(string(v))
	case string:
		return ts.parse(v)
	default:
		return fmt.Errorf("ghostdb: cannot scan %T into Timestamp", src)
	}
	return nil
}

func (ts *Timestamp) parse(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		*ts = Timestamp{}
		return nil
	}
	if epoch, err := strconv.ParseInt(text, 10, 64); err == nil {
		*ts = fromEpoch(epoch)
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			*ts = Timestamp{Time: parsed.UTC(), Valid: true}
			return nil
		}
	}
	return fmt.Errorf("ghostdb: cannot scan %q into Timestamp", text)
}

func fromEpoch(v int64) Timestamp {
	if v > epochMillisThreshold || v < -epochMillisThreshold {
		return Timestamp{Time: time.UnixMilli(v).UTC(), Valid: true}
	}
	return Timestamp{Time: time.Unix(v, 0).UTC(), Valid: true}
}

// Value implements driver.Valuer.
func (ts Timestamp) Value() (driver.Value, error) {
	if !ts.Valid {
		return nil, nil
	}
	return ts.Time.UTC().Format("2006-01-02 15:04:05"), nil
}

// Ptr returns the time or nil when the column was NULL.
func (ts Timestamp) Ptr() *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC(), Valid: true}
}
