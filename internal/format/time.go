// Package format renders timestamps in the user's local timezone for
// conversational replies and reminder pushes.
package format

import "time"

const layout = "2006/01/02 15:04"

type TimeFormatter struct {
	loc *time.Location
}

// NewTimeFormatter loads the given IANA timezone, falling back to UTC if it
// is unknown on the host.
func NewTimeFormatter(tz string) *TimeFormatter {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return &TimeFormatter{loc: loc}
}

func (f *TimeFormatter) Format(t time.Time) string {
	return t.In(f.loc).Format(layout)
}
