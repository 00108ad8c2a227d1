package version

import (
	"math/big"
	"strings"
)

// Range is a single bounded or half-bounded interval of Versions. Unions of
// multiple intervals (e.g. "(,1.0),(1.0,)") are rejected by ParseRange; see
// the accompanying design notes for why that grammar was dropped rather
// than supported.
type Range struct {
	lower          *Version
	lowerInclusive bool
	upper          *Version
	upperInclusive bool
}

// ParseRange parses a single-interval range expression: "[1.0,2.0)",
// "(,1.0]", "[1.0]" (exact version) or "[1.0.*]" (wildcard, expanded to a
// half-open interval over the last numeric component).
func ParseRange(s string) (Range, error) {
	if len(s) < 2 {
		return Range{}, newParseError(s, "range too short")
	}

	open := s[0]
	closeByte := s[len(s)-1]

	var lowerInclusive bool
	switch open {
	case '[':
		lowerInclusive = true
	case '(':
		lowerInclusive = false
	default:
		return Range{}, newParseError(s, "must start with '[' or '('")
	}

	var upperInclusive bool
	switch closeByte {
	case ']':
		upperInclusive = true
	case ')':
		upperInclusive = false
	default:
		return Range{}, newParseError(s, "must end with ']' or ')'")
	}

	body := s[1 : len(s)-1]
	if strings.ContainsAny(body, "[]()") {
		return Range{}, newParseError(s, "multi-interval version ranges are not supported")
	}

	if !strings.Contains(body, ",") {
		if body == "" {
			return Range{}, newParseError(s, "single-bound range must name a version")
		}
		if strings.HasSuffix(body, ".*") {
			return parseWildcardRange(s, strings.TrimSuffix(body, ".*"))
		}
		v, err := Parse(body)
		if err != nil {
			return Range{}, err
		}
		return Range{lower: &v, lowerInclusive: true, upper: &v, upperInclusive: true}, nil
	}

	if strings.Count(body, ",") > 1 {
		return Range{}, newParseError(s, "a single interval takes at most one comma")
	}
	parts := strings.SplitN(body, ",", 2)
	lowerText, upperText := parts[0], parts[1]

	var lower, upper *Version
	if lowerText != "" {
		v, err := Parse(lowerText)
		if err != nil {
			return Range{}, err
		}
		lower = &v
	}
	if upperText != "" {
		v, err := Parse(upperText)
		if err != nil {
			return Range{}, err
		}
		upper = &v
	}
	if lower == nil && upper == nil {
		return Range{}, newParseError(s, "range has no bounds")
	}

	return Range{
		lower:          lower,
		lowerInclusive: lowerInclusive,
		upper:          upper,
		upperInclusive: upperInclusive,
	}, nil
}

// parseWildcardRange expands "[1.0.*]" into [1.0-min, 1.1-min): the base
// version, floored with the MIN sentinel, is the inclusive lower bound, and
// the exclusive upper bound increments the last numeric item of the base
// and floors it the same way. The sentinel matters because without it
// "[1.2.*]" would not contain a prerelease-qualified version of its own
// base, like "1.2-alpha-1", which orders below plain "1.2".
func parseWildcardRange(original, base string) (Range, error) {
	baseItems, err := parseItems(base)
	if err != nil {
		return Range{}, err
	}
	upperItems, err := incrementLastNumeric(baseItems)
	if err != nil {
		return Range{}, newParseError(original, "%v", err)
	}

	lower, err := Parse(base + "-min")
	if err != nil {
		return Range{}, err
	}
	upper, err := Parse(stringifyItems(upperItems) + "-min")
	if err != nil {
		return Range{}, err
	}
	return Range{lower: &lower, lowerInclusive: true, upper: &upper, upperInclusive: false}, nil
}

// incrementLastNumeric increments the rightmost INT/BIGINT item of items,
// discarding everything after it, and returns the resulting prefix. Used to
// compute a wildcard range's exclusive upper bound from its literal base
// version, before any padding-trim canonicalization would shift which item
// is "last".
func incrementLastNumeric(items []Item) ([]Item, error) {
	idx := -1
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].kind == KindInt || items[i].kind == KindBigInt {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, newParseError(stringifyItems(items), "wildcard range requires a numeric version component")
	}

	result := make([]Item, idx+1)
	copy(result, items[:idx+1])

	switch result[idx].kind {
	case KindInt:
		result[idx] = intItem(result[idx].intValue + 1)
	case KindBigInt:
		incremented := new(big.Int).Add(&result[idx].bigValue, big.NewInt(1))
		result[idx] = bigIntItem(incremented)
	}

	return result, nil
}

func stringifyItems(items []Item) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(it.String())
	}
	return b.String()
}

// Contains reports whether v falls within r, respecting bound inclusivity.
func Contains(r Range, v Version) bool {
	if r.lower != nil {
		cmp := Compare(v, *r.lower)
		if cmp < 0 || (cmp == 0 && !r.lowerInclusive) {
			return false
		}
	}
	if r.upper != nil {
		cmp := Compare(v, *r.upper)
		if cmp > 0 || (cmp == 0 && !r.upperInclusive) {
			return false
		}
	}
	return true
}

// String reconstructs a canonical textual form of the range. It is not
// guaranteed to equal the string originally passed to ParseRange (e.g. a
// wildcard range round-trips as its expanded interval), but re-parsing it
// with ParseRange yields a structurally equal Range.
func (r Range) String() string {
	if r.lower != nil && r.upper != nil && r.lowerInclusive && r.upperInclusive && Equal(*r.lower, *r.upper) {
		return "[" + r.lower.String() + "]"
	}

	var b strings.Builder
	if r.lowerInclusive {
		b.WriteByte('[')
	} else {
		b.WriteByte('(')
	}
	if r.lower != nil {
		b.WriteString(r.lower.String())
	}
	b.WriteByte(',')
	if r.upper != nil {
		b.WriteString(r.upper.String())
	}
	if r.upperInclusive {
		b.WriteByte(']')
	} else {
		b.WriteByte(')')
	}
	return b.String()
}
