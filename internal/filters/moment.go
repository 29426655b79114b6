package filters

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/goodsign/monday"
)

const defaultMomentFormat = "YYYY-MM-DDTHH:mm:ssZ"

var momentLocales = map[string]monday.Locale{
	"de": monday.LocaleDeDE,
	"en": monday.LocaleEnUS,
	"fr": monday.LocaleFrFR,
	"it": monday.LocaleItIT,
	"es": monday.LocaleEsES,
	"nl": monday.LocaleNlNL,
	"pt": monday.LocalePtPT,
}

// Moment formats a date with a moment.js style format string, localised for
// the default language. Numeric input is read as unix seconds.
func (s *Set) Moment(input any, param any) (any, error) {
	ts, ok := toTime(input)
	if !ok {
		return input, nil
	}
	format, _ := param.(string)
	if format == "" {
		format = defaultMomentFormat
	}
	return monday.Format(ts, MomentLayout(format), localeFor(s.language)), nil
}

func localeFor(language string) monday.Locale {
	if locale, ok := momentLocales[strings.ToLower(language)]; ok {
		return locale
	}
	return monday.LocaleEnUS
}

func toTime(input any) (time.Time, bool) {
	switch v := input.(type) {
	case time.Time:
		return v, true
	case interface{ Unix() int64 }:
		return time.Unix(v.Unix(), 0).UTC(), true
	case int:
		return time.Unix(int64(v), 0).UTC(), true
	case int64:
		return time.Unix(v, 0).UTC(), true
	case float64:
		return time.Unix(int64(v), 0).UTC(), true
	case json.Number:
		seconds, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(int64(seconds), 0).UTC(), true
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	case fmt.Stringer:
		return toTime(v.String())
	default:
		return time.Time{}, false
	}
}

// momentTokens is ordered so longer tokens win over their prefixes.
var momentTokens = []struct {
	token  string
	layout string
}{
	{"YYYY", "2006"},
	{"YY", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dddd", "Monday"},
	{"ddd", "Mon"},
	{"DD", "02"},
	{"D", "2"},
	{"HH", "15"},
	{"H", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"SSS", "000"},
	{"A", "PM"},
	{"a", "pm"},
	{"ZZ", "-0700"},
	{"Z", "-07:00"},
}

// MomentLayout converts a moment.js format string into a Go time layout.
// Text inside square brackets is copied literally.
func MomentLayout(format string) string {
	var b strings.Builder
	for i := 0; i < len(format); {
		if format[i] == '[' {
			end := strings.IndexByte(format[i:], ']')
			if end > 0 {
				b.WriteString(format[i+1 : i+end])
				i += end + 1
				continue
			}
		}
		matched := false
		for _, tok := range momentTokens {
			if strings.HasPrefix(format[i:], tok.token) {
				b.WriteString(tok.layout)
				i += len(tok.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}
	return b.String()
}
