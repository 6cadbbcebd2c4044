package typeinfer

import (
	"strings"
	"time"
)

// dateLayouts are tried in order. Day-first slash dates come after the
// month-first ones so 03/04/2024 reads as March 4th.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"02/01/2006",
	"2/1/2006",
	"01-02-2006",
	"02-01-2006",
	"01/02/06",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"Jan-02-2006",
	"15:04:05.999999999",
	"15:04:05",
	"15:04",
	"3:04 PM",
	"3:04PM",
	"3:04:05 PM",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.RFC822Z,
	time.RFC822,
	time.ANSIC,
	time.UnixDate,
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006 15:04",
	"2 Jan 2006 15:04:05",
	"2 January 2006 15:04",
}

// isDatetime reports whether s parses as a date, a time or both. Strings
// without any of the separators - / : are rejected up front so that bare
// digit runs never count as dates.
func isDatetime(s string) bool {
	if !strings.ContainsAny(s, "-/:") {
		return false
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
