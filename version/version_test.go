package version

import "testing"

func TestParse_RoundTripsString(t *testing.T) {
	for _, s := range []string{"1.2.3", "1.0-alpha-1", "2.0.0-SNAPSHOT", "", "1-1"} {
		v, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", s, err)
		}
		if v.String() != s {
			t.Fatalf("String() round trip: got %q, want %q", v.String(), s)
		}
		if v.AsString() != v.String() {
			t.Fatalf("AsString() disagrees with String()")
		}
	}
}

func TestCompare_Canonicalizations(t *testing.T) {
	equalPairs := [][2]string{
		{"1", "1.0"},
		{"1", "1.0.0"},
		{"1", "1-ga"},
		{"1", "1-release"},
		{"1.0", "1-ga"},
		{"1.0-0", "1.0"},
		{"1.0.0", "1.0.0-0"},
	}
	for _, p := range equalPairs {
		a, b := MustParse(p[0]), MustParse(p[1])
		if !Equal(a, b) {
			t.Errorf("expected %q == %q, got Compare=%d", p[0], p[1], Compare(a, b))
		}
	}
}

func TestCompare_PreReleaseOrdering(t *testing.T) {
	ordered := []string{
		"1.0-alpha-1",
		"1.0-alpha1",
		"1.0-alpha-2",
		"1.0-beta-1",
		"1.0-milestone-1",
		"1.0-rc-1",
		"1.0-cr-1",
		"1.0-SNAPSHOT",
		"1.0",
		"1.0-sp",
		"1.0-foo",
		"1.0-1",
	}
	for i := 1; i < len(ordered); i++ {
		a, b := MustParse(ordered[i-1]), MustParse(ordered[i])
		if Compare(a, b) > 0 {
			t.Errorf("expected %q <= %q, got Compare=%d", ordered[i-1], ordered[i], Compare(a, b))
		}
	}
}

func TestCompare_AlphaBetaAbbreviations(t *testing.T) {
	if !Equal(MustParse("1.0a1"), MustParse("1.0-alpha-1")) {
		t.Errorf("expected 1.0a1 == 1.0-alpha-1")
	}
	if !Equal(MustParse("1.0b1"), MustParse("1.0-beta-1")) {
		t.Errorf("expected 1.0b1 == 1.0-beta-1")
	}
	if !Equal(MustParse("1.0m1"), MustParse("1.0-milestone-1")) {
		t.Errorf("expected 1.0m1 == 1.0-milestone-1")
	}
	// a lone letter NOT immediately followed by a digit is a plain qualifier.
	if Equal(MustParse("1.0-a"), MustParse("1.0-alpha")) {
		t.Errorf("expected 1.0-a != 1.0-alpha (no digit follows 'a')")
	}
}

func TestCompare_MinMaxSentinels(t *testing.T) {
	min, max := MustParse("1.0-min"), MustParse("1.0-max")
	mid := MustParse("1.0")
	if Compare(min, mid) >= 0 {
		t.Errorf("expected min < 1.0")
	}
	if Compare(max, mid) <= 0 {
		t.Errorf("expected max > 1.0")
	}
	// "min"/"max" only act as sentinels as the final token.
	if Equal(MustParse("min-1.0"), MustParse("1.0")) {
		t.Errorf("leading 'min' should not be a sentinel")
	}
}

func TestCompare_BigIntegers(t *testing.T) {
	a := MustParse("99999999999999999999")
	b := MustParse("100000000000000000000")
	if Compare(a, b) >= 0 {
		t.Errorf("expected %v < %v", a, b)
	}
}

func TestCompare_PaddingAcrossKindTransition(t *testing.T) {
	if Compare(MustParse("1-alpha"), MustParse("1.0-alpha")) != 0 {
		t.Errorf("expected 1-alpha == 1.0-alpha: the inert .0 padding must not shift the qualifier comparison")
	}
}

func TestVersion_AsItems(t *testing.T) {
	v := MustParse("1.2-beta")
	items := v.AsItems()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Kind() != KindInt || items[0].IntValue() != 1 {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if items[1].Kind() != KindInt || items[1].IntValue() != 2 {
		t.Errorf("unexpected second item: %+v", items[1])
	}
	if items[2].Kind() != KindQualifier || items[2].IntValue() != weightBeta {
		t.Errorf("unexpected third item: %+v", items[2])
	}

	items[0] = Item{}
	if v.AsItems()[0].IntValue() != 1 {
		t.Errorf("expected AsItems to return a copy, mutation leaked into Version")
	}
}

func TestCompare_CaseInsensitiveQualifiers(t *testing.T) {
	if !Equal(MustParse("1.0-SNAPSHOT"), MustParse("1.0-snapshot")) {
		t.Errorf("expected case-insensitive qualifier match")
	}
}

func TestParseRange_ContainsBasic(t *testing.T) {
	cases := []struct {
		rng      string
		version  string
		expected bool
	}{
		{"[1.0,2.0)", "1.0", true},
		{"[1.0,2.0)", "2.0", false},
		{"[1.0,2.0]", "2.0", true},
		{"(1.0,2.0)", "1.0", false},
		{"(,2.0]", "0.5", true},
		{"[2.0,)", "1.9", false},
		{"[1.0]", "1.0", true},
		{"[1.0]", "1.0.0", true},
		{"[1.0]", "1.1", false},
	}
	for _, c := range cases {
		r, err := ParseRange(c.rng)
		if err != nil {
			t.Fatalf("ParseRange(%q) failed: %v", c.rng, err)
		}
		got := Contains(r, MustParse(c.version))
		if got != c.expected {
			t.Errorf("Contains(%q, %q) = %v, want %v", c.rng, c.version, got, c.expected)
		}
	}
}

func TestParseRange_Wildcard(t *testing.T) {
	r, err := ParseRange("[1.0.*]")
	if err != nil {
		t.Fatalf("ParseRange wildcard failed: %v", err)
	}
	if !Contains(r, MustParse("1.0.5")) {
		t.Errorf("expected 1.0.5 within [1.0.*]")
	}
	if Contains(r, MustParse("1.1")) {
		t.Errorf("expected 1.1 outside [1.0.*]")
	}
}

func TestParseRange_WildcardContainsOwnPrerelease(t *testing.T) {
	r, err := ParseRange("[1.2.*]")
	if err != nil {
		t.Fatalf("ParseRange wildcard failed: %v", err)
	}
	if !Contains(r, MustParse("1.2-alpha-1")) {
		t.Errorf("expected [1.2.*] to contain 1.2-alpha-1")
	}
}

func TestParseRange_RejectsMultiInterval(t *testing.T) {
	if _, err := ParseRange("(,1.0),(1.0,)"); err == nil {
		t.Fatalf("expected multi-interval range to be rejected")
	}
}

func TestParseRange_RejectsExtraComma(t *testing.T) {
	if _, err := ParseRange("[1,2,3]"); err == nil {
		t.Fatalf("expected a bare extra comma to be rejected")
	}
}

func TestParseRange_RoundTrip(t *testing.T) {
	for _, s := range []string{"[1.0,2.0)", "(1.0,2.0)", "[1.0]"} {
		r, err := ParseRange(s)
		if err != nil {
			t.Fatalf("ParseRange(%q) failed: %v", s, err)
		}
		r2, err := ParseRange(r.String())
		if err != nil {
			t.Fatalf("ParseRange(%q) (round trip) failed: %v", r.String(), err)
		}
		if !rangesEqual(r, r2) {
			t.Errorf("range round trip mismatch for %q: got %q", s, r.String())
		}
	}
}

func rangesEqual(a, b Range) bool {
	if a.lowerInclusive != b.lowerInclusive || a.upperInclusive != b.upperInclusive {
		return false
	}
	if (a.lower == nil) != (b.lower == nil) || (a.upper == nil) != (b.upper == nil) {
		return false
	}
	if a.lower != nil && !Equal(*a.lower, *b.lower) {
		return false
	}
	if a.upper != nil && !Equal(*a.upper, *b.upper) {
		return false
	}
	return true
}
