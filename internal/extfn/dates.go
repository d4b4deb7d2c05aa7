package extfn

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"xsltrace/internal/xdm"
)

// Dates, times and date-times use the ISO-8601 local forms: 2024-01-31,
// 10:15 or 10:15:30(.fraction), and their combination joined by "T". Offset
// date-times append "Z" or ±hh:mm.

var (
	dateTimeLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04"}
	timeLayouts     = []string{"15:04:05", "15:04"}
	offsetLayouts   = []string{"2006-01-02T15:04:05Z07:00", "2006-01-02T15:04Z07:00"}
)

func dateDefs() []def {
	return []def{
		{"addToDate", 4, 4, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			d, err := parseDate(stringArg(args, 0))
			if err != nil {
				return nil, err
			}
			n, err := ints(args, 1)
			if err != nil {
				return nil, err
			}
			return str(formatDate(plusMonths(d, n[0]*12+n[1]).AddDate(0, 0, n[2]))), nil
		}},
		{"addToDateTime", 7, 7, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			t, err := parseLayouts(dateTimeLayouts, stringArg(args, 0))
			if err != nil {
				return nil, err
			}
			n, err := ints(args, 1)
			if err != nil {
				return nil, err
			}
			t = plusMonths(t, n[0]*12+n[1]).AddDate(0, 0, n[2])
			t = t.Add(clock(n[3], n[4], n[5]))
			return str(formatDateTime(t)), nil
		}},
		{"addToTime", 4, 4, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			t, err := parseLayouts(timeLayouts, stringArg(args, 0))
			if err != nil {
				return nil, err
			}
			n, err := ints(args, 1)
			if err != nil {
				return nil, err
			}
			return str(formatTime(t.Add(clock(n[0], n[1], n[2])))), nil
		}},
		{"compareDate", 2, 2, comparing(parseDate)},
		{"compareDateTime", 2, 2, comparing(func(s string) (time.Time, error) { return parseLayouts(dateTimeLayouts, s) })},
		{"compareTime", 2, 2, comparing(func(s string) (time.Time, error) { return parseLayouts(timeLayouts, s) })},
		{"createDate", 3, 3, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			n, err := ints(args, 0)
			if err != nil {
				return nil, err
			}
			t, err := civil(n[0], n[1], n[2], 0, 0, 0, 0, time.UTC)
			if err != nil {
				return nil, err
			}
			return str(formatDate(t)), nil
		}},
		{"createDateTime", 6, 7, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			n, err := ints(args, 0)
			if err != nil {
				return nil, err
			}
			n = append(n, 0)
			t, err := civil(n[0], n[1], n[2], n[3], n[4], n[5], n[6], time.UTC)
			if err != nil {
				return nil, err
			}
			return str(formatDateTime(t)), nil
		}},
		{"createDateTimeTimezone", 9, 9, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			n, err := ints(args, 0)
			if err != nil {
				return nil, err
			}
			zone, err := fixedZone(n[7], n[8])
			if err != nil {
				return nil, err
			}
			t, err := civil(n[0], n[1], n[2], n[3], n[4], n[5], n[6], zone)
			if err != nil {
				return nil, err
			}
			return str(formatOffset(t)), nil
		}},
		{"createTime", 3, 4, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			n, err := ints(args, 0)
			if err != nil {
				return nil, err
			}
			n = append(n, 0)
			t, err := civil(2000, 1, 1, n[0], n[1], n[2], n[3], time.UTC)
			if err != nil {
				return nil, err
			}
			return str(formatTime(t)), nil
		}},
		{"currentDateTimeTimezone", 2, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			n, err := ints(args, 0)
			if err != nil {
				return nil, err
			}
			zone, err := fixedZone(n[0], n[1])
			if err != nil {
				return nil, err
			}
			return str(formatOffset(now().In(zone))), nil
		}},
		{"getCenturyFromDate", 1, 1, century(parseDate)},
		{"getCenturyFromDateTime", 1, 1, century(func(s string) (time.Time, error) { return parseLayouts(dateTimeLayouts, s) })},
		{"parseDate", 2, 2, withPattern(formatDate)},
		{"parseDateTime", 2, 2, withPattern(func(t time.Time) string {
			return formatOffset(time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local))
		})},
		{"parseTime", 2, 2, withPattern(formatTime)},
		{"validateDateTime", 2, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			layout, err := goLayout(stringArg(args, 0))
			if err != nil {
				return boolean(false), nil
			}
			_, err = time.Parse(layout, stringArg(args, 1))
			return boolean(err == nil), nil
		}},
		{"translateTimezone", 2, 2, func(args []*xdm.Sequence) (*xdm.Sequence, error) {
			t, err := parseLayouts(offsetLayouts, stringArg(args, 0))
			if err != nil {
				return nil, err
			}
			zone, err := parseZone(stringArg(args, 1))
			if err != nil {
				return nil, err
			}
			return str(formatOffset(t.In(zone))), nil
		}},
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, strings.TrimSpace(s))
}

func parseLayouts(layouts []string, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q", s)
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// formatTime drops zero seconds and prints the fraction in groups of three
// digits.
func formatTime(t time.Time) string {
	out := t.Format("15:04")
	ns := t.Nanosecond()
	if t.Second() == 0 && ns == 0 {
		return out
	}
	out += t.Format(":05")
	switch {
	case ns == 0:
	case ns%1_000_000 == 0:
		out += fmt.Sprintf(".%03d", ns/1_000_000)
	case ns%1_000 == 0:
		out += fmt.Sprintf(".%06d", ns/1_000)
	default:
		out += fmt.Sprintf(".%09d", ns)
	}
	return out
}

func formatDateTime(t time.Time) string {
	return formatDate(t) + "T" + formatTime(t)
}

func formatOffset(t time.Time) string {
	return formatDateTime(t) + t.Format("Z07:00")
}

// plusMonths adds months, clamping the day to the end of the target month.
func plusMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + months
	y += total / 12
	mi := total % 12
	if mi < 0 {
		mi += 12
		y--
	}
	month := time.Month(mi + 1)
	if last := daysIn(y, month); d > last {
		d = last
	}
	return time.Date(y, month, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func clock(h, m, s int) time.Duration {
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

// civil builds a time from fields, rejecting out-of-range ones instead of
// normalizing them.
func civil(y, mo, d, h, mi, s, ms int, loc *time.Location) (time.Time, error) {
	switch {
	case mo < 1 || mo > 12:
		return time.Time{}, fmt.Errorf("month %d out of range", mo)
	case d < 1 || d > daysIn(y, time.Month(mo)):
		return time.Time{}, fmt.Errorf("day %d out of range", d)
	case h < 0 || h > 23, mi < 0 || mi > 59, s < 0 || s > 59:
		return time.Time{}, fmt.Errorf("time %02d:%02d:%02d out of range", h, mi, s)
	case ms < 0 || ms > 999:
		return time.Time{}, fmt.Errorf("millisecond %d out of range", ms)
	}
	return time.Date(y, time.Month(mo), d, h, mi, s, ms*int(time.Millisecond), loc), nil
}

func fixedZone(h, m int) (*time.Location, error) {
	if h < -18 || h > 18 || m < -59 || m > 59 || (h > 0 && m < 0) || (h < 0 && m > 0) {
		return nil, fmt.Errorf("offset %d:%d out of range", h, m)
	}
	return time.FixedZone("", h*3600+m*60), nil
}

// parseZone accepts Z, ±hh, ±hhmm and ±hh:mm.
func parseZone(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if s == "Z" {
		return time.UTC, nil
	}
	if len(s) < 3 || (s[0] != '+' && s[0] != '-') {
		return nil, fmt.Errorf("invalid offset %q", s)
	}
	digits := strings.ReplaceAll(s[1:], ":", "")
	if len(digits) != 2 && len(digits) != 4 {
		return nil, fmt.Errorf("invalid offset %q", s)
	}
	h, err := strconv.Atoi(digits[:2])
	if err != nil {
		return nil, fmt.Errorf("invalid offset %q", s)
	}
	m := 0
	if len(digits) == 4 {
		if m, err = strconv.Atoi(digits[2:]); err != nil {
			return nil, fmt.Errorf("invalid offset %q", s)
		}
	}
	if s[0] == '-' {
		h, m = -h, -m
	}
	return fixedZone(h, m)
}

func comparing(parse func(string) (time.Time, error)) impl {
	return func(args []*xdm.Sequence) (*xdm.Sequence, error) {
		a, err := parse(stringArg(args, 0))
		if err != nil {
			return nil, err
		}
		b, err := parse(stringArg(args, 1))
		if err != nil {
			return nil, err
		}
		return integer(a.Compare(b)), nil
	}
}

func century(parse func(string) (time.Time, error)) impl {
	return func(args []*xdm.Sequence) (*xdm.Sequence, error) {
		t, err := parse(stringArg(args, 0))
		if err != nil {
			return nil, err
		}
		return str(strconv.Itoa(t.Year() / 100)), nil
	}
}

// withPattern parses the second argument with the pattern in the first and
// formats the result with format.
func withPattern(format func(time.Time) string) impl {
	return func(args []*xdm.Sequence) (*xdm.Sequence, error) {
		layout, err := goLayout(stringArg(args, 0))
		if err != nil {
			return nil, err
		}
		t, err := time.Parse(layout, stringArg(args, 1))
		if err != nil {
			return nil, err
		}
		return str(format(t)), nil
	}
}

// patternFields maps runs of pattern letters to layout elements.
var patternFields = map[string]string{
	"yyyy": "2006", "uuuu": "2006", "yy": "06",
	"MMMM": "January", "MMM": "Jan", "MM": "01", "M": "1",
	"dd": "02", "d": "2",
	"EEEE": "Monday", "EEE": "Mon",
	"HH": "15", "H": "15", "hh": "03", "h": "3",
	"mm": "04", "m": "4",
	"ss": "05", "s": "5",
	"SSS": "000", "SSSSSS": "000000", "SSSSSSSSS": "000000000",
	"a":   "PM",
	"XXX": "Z07:00", "xxx": "-07:00", "Z": "-0700",
}

// goLayout converts a letter-based date pattern such as "dd/MM/yyyy HH:mm"
// into a time layout. Text in single quotes is literal; "''" is a quote.
func goLayout(pattern string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch {
		case c == '\'':
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				return "", fmt.Errorf("unterminated quote in pattern %q", pattern)
			}
			if end == 0 {
				sb.WriteByte('\'')
			} else {
				sb.WriteString(pattern[i+1 : i+1+end])
			}
			i += end + 2
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			j := i
			for j < len(pattern) && pattern[j] == c {
				j++
			}
			field, ok := patternFields[pattern[i:j]]
			if !ok {
				return "", fmt.Errorf("unsupported pattern letters %q", pattern[i:j])
			}
			sb.WriteString(field)
			i = j
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), nil
}
