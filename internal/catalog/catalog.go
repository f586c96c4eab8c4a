// Package catalog holds the fixed table of the twelve zodiac signs and the
// name and date lookups over it.
package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MonthDay is a calendar day without a year.
type MonthDay struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

func (md MonthDay) before(o MonthDay) bool {
	if md.Month != o.Month {
		return md.Month < o.Month
	}
	return md.Day < o.Day
}

// Sign is one entry of the zodiac table. Token is the lowercase value sent
// to providers.
type Sign struct {
	ID      int      `json:"id"`
	Token   string   `json:"token"`
	Name    string   `json:"name"`
	English string   `json:"english"`
	From    MonthDay `json:"from"`
	To      MonthDay `json:"to"`
}

// Label renders the sign's date range, e.g. "21 Mar - 19 Abr".
func (s Sign) Label() string {
	return fmt.Sprintf("%d %s - %d %s", s.From.Day, shortMonths[s.From.Month-1], s.To.Day, shortMonths[s.To.Month-1])
}

// Contains reports whether md falls inside the sign's range. Capricornio's
// range wraps the year end.
func (s Sign) Contains(md MonthDay) bool {
	if s.To.before(s.From) {
		return !md.before(s.From) || !s.To.before(md)
	}
	return !md.before(s.From) && !s.To.before(md)
}

var shortMonths = [12]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

var signs = []Sign{
	{0, "aries", "Aries", "Aries", MonthDay{3, 21}, MonthDay{4, 19}},
	{1, "tauro", "Tauro", "Taurus", MonthDay{4, 20}, MonthDay{5, 20}},
	{2, "geminis", "Géminis", "Gemini", MonthDay{5, 21}, MonthDay{6, 20}},
	{3, "cancer", "Cáncer", "Cancer", MonthDay{6, 21}, MonthDay{7, 22}},
	{4, "leo", "Leo", "Leo", MonthDay{7, 23}, MonthDay{8, 22}},
	{5, "virgo", "Virgo", "Virgo", MonthDay{8, 23}, MonthDay{9, 22}},
	{6, "libra", "Libra", "Libra", MonthDay{9, 23}, MonthDay{10, 22}},
	{7, "escorpio", "Escorpio", "Scorpio", MonthDay{10, 23}, MonthDay{11, 21}},
	{8, "sagitario", "Sagitario", "Sagittarius", MonthDay{11, 22}, MonthDay{12, 21}},
	{9, "capricornio", "Capricornio", "Capricorn", MonthDay{12, 22}, MonthDay{1, 19}},
	{10, "acuario", "Acuario", "Aquarius", MonthDay{1, 20}, MonthDay{2, 18}},
	{11, "piscis", "Piscis", "Pisces", MonthDay{2, 19}, MonthDay{3, 20}},
}

// All returns the signs in chronological order starting with Aries. The
// slice is a copy.
func All() []Sign {
	out := make([]Sign, len(signs))
	copy(out, signs)
	return out
}

// ByID returns the sign with the given ID (0-11).
func ByID(id int) (Sign, bool) {
	if id < 0 || id >= len(signs) {
		return Sign{}, false
	}
	return signs[id], true
}

// ByToken resolves a Spanish token, display name or English name, ignoring
// case and accents.
func ByToken(s string) (Sign, bool) {
	key := Fold(s)
	if key == "" {
		return Sign{}, false
	}
	for _, sg := range signs {
		if key == sg.Token || key == Fold(sg.Name) || key == Fold(sg.English) {
			return sg, true
		}
	}
	return Sign{}, false
}

// ForDate returns the sign whose range contains month/day.
func ForDate(month, day int) (Sign, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Sign{}, false
	}
	md := MonthDay{month, day}
	for _, sg := range signs {
		if sg.Contains(md) {
			return sg, true
		}
	}
	return Sign{}, false
}

// Search is SearchIn over the chronological list.
func Search(q string) (Sign, bool) {
	return SearchIn(signs, q)
}

// SearchIn returns the first sign in list, in list order, whose Spanish or
// English name starts with q. Failing that it tries the date labels, then
// parses q as a date. Callers showing a reordered list (favorites first)
// pass that list so the match is the first one the user sees.
func SearchIn(list []Sign, q string) (Sign, bool) {
	key := Fold(q)
	if key == "" {
		return Sign{}, false
	}
	for _, sg := range list {
		if strings.HasPrefix(Fold(sg.Name), key) || strings.HasPrefix(Fold(sg.English), key) {
			return sg, true
		}
	}
	for _, sg := range list {
		if strings.Contains(Fold(sg.Label()), key) {
			return sg, true
		}
	}
	if md, ok := ParseDate(q); ok {
		return ForDate(md.Month, md.Day)
	}
	return Sign{}, false
}

var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and strips diacritics so "Géminis" matches "geminis".
func Fold(s string) string {
	out, _, err := transform.String(folder, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
