package usecase

import (
	"strconv"
	"strings"
	"time"
)

// NormalizePhone strips everything but digits and drops common trunk
// and country prefixes: a leading "1" on 11 digits (US), a leading
// "91" on 12 digits (India). This is a matching heuristic, not a
// validator; callers must not assume the result is dialable.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return digits[1:]
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return digits[2:]
	default:
		return digits
	}
}

// excelEpoch is day zero of Excel's serial date system.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var isoLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"2006/01/02",
}

// ParseFlexibleDate accepts Excel serial numbers, ISO-parseable
// strings, and D/M/YYYY or D-M-YYYY. Unparseable input yields
// ok=false, which disables the name+DOB duplicate check for that row
// without failing it.
func ParseFlexibleDate(raw string) (time.Time, bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial <= 0 || serial > 200000 {
			return time.Time{}, false
		}
		ms := serial * 86400000
		return excelEpoch.Add(time.Duration(ms) * time.Millisecond), true
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}

	return parseDayMonthYear(v)
}

func parseDayMonthYear(v string) (time.Time, bool) {
	sep := "/"
	if strings.Contains(v, "-") {
		sep = "-"
	}
	parts := strings.Split(v, sep)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	day, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	month, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	year, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if day < 1 || day > 31 || month < 1 || month > 12 || year < 1000 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}
