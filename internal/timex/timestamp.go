package timex

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Timestamp is a point in time as it appears in export files and the state
// document. Parsing accepts the layouts the journaling service has been seen
// to emit. Values are normalized to UTC with millisecond precision, so two
// Timestamps naming the same instant compare Equal regardless of input format.
type Timestamp struct {
	time.Time
}

// NewTimestamp normalizes t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: normalize(t)}
}

// ParseTimestamp parses s using the known layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimestamp(t), nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Equal reports whether both timestamps name the same instant. Two zero
// timestamps are equal.
func (t Timestamp) Equal(o Timestamp) bool {
	return normalize(t.Time).Equal(normalize(o.Time))
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return normalize(t.Time).Format("2006-01-02T15:04:05.000Z07:00")
}

// MarshalJSON writes null for the zero value.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func normalize(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Millisecond)
}
