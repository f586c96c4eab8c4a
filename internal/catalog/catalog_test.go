package catalog

import "testing"

func TestAll_TwelveSignsInOrder(t *testing.T) {
	all := All()
	if len(all) != 12 {
		t.Fatalf("expected 12 signs, got %d", len(all))
	}
	for i, s := range all {
		if s.ID != i {
			t.Errorf("sign %s has ID %d at index %d", s.Token, s.ID, i)
		}
	}
	all[0].Token = "mutated"
	if s, _ := ByID(0); s.Token != "aries" {
		t.Error("All must return a copy")
	}
}

func TestForDate_Boundaries(t *testing.T) {
	tests := []struct {
		month, day int
		want       string
	}{
		{3, 20, "piscis"},
		{3, 21, "aries"},
		{4, 19, "aries"},
		{4, 20, "tauro"},
		{6, 21, "cancer"},
		{7, 22, "cancer"},
		{7, 23, "leo"},
		{11, 21, "escorpio"},
		{11, 22, "sagitario"},
		{12, 21, "sagitario"},
		{12, 22, "capricornio"},
		{12, 31, "capricornio"},
		{1, 1, "capricornio"},
		{1, 19, "capricornio"},
		{1, 20, "acuario"},
		{2, 18, "acuario"},
		{2, 19, "piscis"},
		{2, 29, "piscis"},
	}
	for _, tt := range tests {
		got, ok := ForDate(tt.month, tt.day)
		if !ok {
			t.Errorf("ForDate(%d, %d): no sign", tt.month, tt.day)
			continue
		}
		if got.Token != tt.want {
			t.Errorf("ForDate(%d, %d) = %s, want %s", tt.month, tt.day, got.Token, tt.want)
		}
	}

	if _, ok := ForDate(13, 1); ok {
		t.Error("month 13 should not resolve")
	}
	if _, ok := ForDate(1, 0); ok {
		t.Error("day 0 should not resolve")
	}
}

func TestEveryDayHasExactlyOneSign(t *testing.T) {
	days := []int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	for m, n := range days {
		for d := 1; d <= n; d++ {
			count := 0
			for _, s := range All() {
				if s.Contains(MonthDay{m + 1, d}) {
					count++
				}
			}
			if count != 1 {
				t.Errorf("%d/%d matched %d signs", d, m+1, count)
			}
		}
	}
}

func TestByToken(t *testing.T) {
	tests := map[string]string{
		"geminis":   "geminis",
		"Géminis":   "geminis",
		"GEMINI":    "geminis",
		"cáncer":    "cancer",
		"Scorpio":   "escorpio",
		" piscis ":  "piscis",
		"capricorn": "capricornio",
	}
	for in, want := range tests {
		got, ok := ByToken(in)
		if !ok || got.Token != want {
			t.Errorf("ByToken(%q) = %q, %v; want %q", in, got.Token, ok, want)
		}
	}
	for _, in := range []string{"", "ofiuco", "ari"} {
		if _, ok := ByToken(in); ok {
			t.Errorf("ByToken(%q) should not resolve", in)
		}
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"ari", "aries"},
		{"Tau", "tauro"},
		{"gém", "geminis"},
		{"ca", "cancer"},
		{"capri", "capricornio"},
		{"sagit", "sagitario"},
		{"aqua", "acuario"},
		{"21 Mar", "aries"},
		{"23 Oct", "escorpio"},
		{"21 de marzo", "aries"},
		{"15 de agosto", "leo"},
		{"march 21", "aries"},
		{"1 january", "capricornio"},
	}
	for _, tt := range tests {
		got, ok := Search(tt.query)
		if !ok {
			t.Errorf("Search(%q): no match", tt.query)
			continue
		}
		if got.Token != tt.want {
			t.Errorf("Search(%q) = %s, want %s", tt.query, got.Token, tt.want)
		}
	}

	for _, q := range []string{"", "   ", "zzz", "40 de marzo"} {
		if _, ok := Search(q); ok {
			t.Errorf("Search(%q) should not match", q)
		}
	}
}

func TestSearchIn_RespectsListOrder(t *testing.T) {
	all := All()
	reordered := append([]Sign{all[10]}, append(all[:10:10], all[11])...)

	if got, _ := Search("a"); got.Token != "aries" {
		t.Errorf("Search(a) = %s, want aries", got.Token)
	}
	if got, _ := SearchIn(reordered, "a"); got.Token != "acuario" {
		t.Errorf("SearchIn(favorites first, a) = %s, want acuario", got.Token)
	}
	if got, _ := SearchIn(reordered, "21 de marzo"); got.Token != "aries" {
		t.Errorf("date search should not depend on order, got %s", got.Token)
	}
	if _, ok := SearchIn(nil, "aries"); ok {
		t.Error("SearchIn over an empty list should not match by name")
	}
}

func TestLabel(t *testing.T) {
	s, _ := ByID(9)
	if got := s.Label(); got != "22 Dic - 19 Ene" {
		t.Errorf("Label = %q", got)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in    string
		month int
		day   int
		ok    bool
	}{
		{"21 de marzo", 3, 21, true},
		{"5 junio", 6, 5, true},
		{"Nací el 3 de Septiembre", 9, 3, true},
		{"december 25", 12, 25, true},
		{"32 de enero", 0, 0, false},
		{"marzo", 0, 0, false},
		{"21 de smarch", 0, 0, false},
	}
	for _, tt := range tests {
		md, ok := ParseDate(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && (md.Month != tt.month || md.Day != tt.day) {
			t.Errorf("ParseDate(%q) = %+v", tt.in, md)
		}
	}
}
