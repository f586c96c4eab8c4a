package catalog

import (
	"regexp"
	"strconv"
)

var (
	dayFirst   = regexp.MustCompile(`(\d{1,2})\s*(?:de\s*)?(\p{L}+)`)
	monthFirst = regexp.MustCompile(`(\p{L}+)\s*(\d{1,2})`)
)

var monthNames = map[string]int{
	"enero": 1, "january": 1,
	"febrero": 2, "february": 2,
	"marzo": 3, "march": 3,
	"abril": 4, "april": 4,
	"mayo": 5, "may": 5,
	"junio": 6, "june": 6,
	"julio": 7, "july": 7,
	"agosto": 8, "august": 8,
	"septiembre": 9, "setiembre": 9, "september": 9,
	"octubre": 10, "october": 10,
	"noviembre": 11, "november": 11,
	"diciembre": 12, "december": 12,
}

// ParseDate extracts a day and month from free text such as "21 de marzo",
// "5 june" or "march 21". Month names are Spanish or English.
func ParseDate(s string) (MonthDay, bool) {
	text := Fold(s)

	if m := dayFirst.FindStringSubmatch(text); m != nil {
		if md, ok := toMonthDay(m[1], m[2]); ok {
			return md, true
		}
	}
	if m := monthFirst.FindStringSubmatch(text); m != nil {
		if md, ok := toMonthDay(m[2], m[1]); ok {
			return md, true
		}
	}
	return MonthDay{}, false
}

func toMonthDay(dayStr, monthStr string) (MonthDay, bool) {
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return MonthDay{}, false
	}
	month, ok := monthNames[monthStr]
	if !ok {
		return MonthDay{}, false
	}
	return MonthDay{Month: month, Day: day}, true
}
