package apachelog

import (
	"slices"
	"strings"
	"time"
)

// Record holds the fields of one parsed log line, keyed by field name.
type Record map[string]string

// Keys returns the record's field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Time returns the parsed value of the record's Time field.
// ok is false if the field is missing or not an Apache timestamp.
func (r Record) Time() (t time.Time, ok bool) {
	v, present := r["Time"]
	if !present {
		return time.Time{}, false
	}
	t, err := ParseTime(v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TimeLayout is the Go time layout of the default %t timestamp,
// e.g. "10/Oct/2023:13:55:36 -0700".
const TimeLayout = "02/Jan/2006:15:04:05 -0700"

// ParseTime converts an Apache %t timestamp into a time.Time. The
// surrounding brackets are optional.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	return time.Parse(TimeLayout, s)
}
