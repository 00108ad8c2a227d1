// Package version implements the generic, Maven-style version scheme: a
// tokenizer and lockstep-with-padding comparator (Version, Compare) plus a
// single-interval range grammar (Range, ParseRange).
package version

import (
	"math/big"
	"strconv"
)

// Version is a parsed, ordered version. Its original textual form is
// preserved verbatim for String/AsString; only Compare canonicalizes.
type Version struct {
	raw   string
	items []Item
}

// Parse tokenizes and classifies s into a Version. Parse never rejects a
// string outright — per the scheme's tolerant grammar almost any input is a
// valid version — but returns a *ParseError for a token that claims to be
// numeric yet cannot be read as one (not reachable through the tokenizer as
// currently written, kept as a defensive boundary check).
func Parse(s string) (Version, error) {
	items, err := parseItems(s)
	if err != nil {
		return Version{}, err
	}
	return Version{raw: s, items: trimPadding(items)}, nil
}

// parseItems tokenizes and classifies s into its untrimmed item sequence,
// preserving every token's positional index. Range wildcard expansion needs
// this untrimmed form to increment the item at the literal position the
// caller named, rather than one shifted by canonicalization.
func parseItems(s string) ([]Item, error) {
	tokens := tokenize(s)
	items := make([]Item, 0, len(tokens))
	for _, tok := range tokens {
		if tok.isNumber {
			it, err := numericItem(tok.text)
			if err != nil {
				return nil, newParseError(s, "%v", err)
			}
			items = append(items, it)
			continue
		}
		items = append(items, qualifierOrStringItem(tok.text, tok.terminatedByNumber, tok.last))
	}
	return items, nil
}

// AsItems exposes the parsed, padding-trimmed item sequence underlying v.
// The slice is a copy; mutating it does not affect v.
func (v Version) AsItems() []Item {
	items := make([]Item, len(v.items))
	copy(items, v.items)
	return items
}

// trimPadding drops a zero item from the tail of each same-kind-class run,
// walking backward across kind-transition boundaries rather than stopping
// at the first non-zero item in the physical suffix. This matters across a
// kind transition: in "1.0-alpha-2" the interior "0" pads away even though
// the version's true last item, "2", does not, so the trimmed form must
// still equal "1-alpha-2"'s own items. The first item (index 0) is never
// removed. Ported from GenericVersion.trimPadding.
func trimPadding(items []Item) []Item {
	if len(items) == 0 {
		return items
	}

	var numberSet, number bool
	end := len(items) - 1
	for i := end; i > 0; i-- {
		item := items[i]
		isNum := item.isNumberClass()
		if !numberSet || number != isNum {
			end = i
			number = isNum
			numberSet = true
		}
		if end == i &&
			(i == len(items)-1 || items[i-1].isNumberClass() == isNum) &&
			item.compareToPadding() == 0 {
			items = append(items[:i], items[i+1:]...)
			end--
		}
	}
	return items
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level constant-like versions, never for untrusted input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the original version string exactly as parsed.
func (v Version) String() string { return v.raw }

// AsString is an alias of String kept for parity with the scheme's
// canonical accessor name.
func (v Version) AsString() string { return v.raw }

// Compare orders a relative to b: negative if a < b, zero if equal order
// (not necessarily equal String()), positive if a > b. Shorter item lists
// are padded against the implicit zero/"ga" element of the longer list's
// remaining items, per the lockstep comparator in §4.A.5.
func Compare(a, b Version) int {
	i, j := 0, 0
	number := true
	for i < len(a.items) || j < len(b.items) {
		if i >= len(a.items) {
			return signum(-paddingComparisonAll(b.items, j))
		}
		if j >= len(b.items) {
			return signum(paddingComparisonAll(a.items, i))
		}

		ai, bi := a.items[i], b.items[j]
		aNum, bNum := ai.isNumberClass(), bi.isNumberClass()
		if aNum == bNum {
			if cmp := ai.compareTo(bi); cmp != 0 {
				return signum(cmp)
			}
			number = aNum
			i++
			j++
			continue
		}

		// Kind-class transition.
		if i == 0 && j == 0 {
			return signum(ai.compareTo(bi))
		}
		if aNum == number {
			return signum(paddingComparisonFrom(a.items, i, number))
		}
		return signum(-paddingComparisonFrom(b.items, j, number))
	}
	return 0
}

// paddingComparisonFrom walks items starting at i; for each item whose
// kind-class (numeric vs non-numeric) equals class, it compares the item
// against null padding and returns the first non-zero result, else 0. Per
// §4.A.5's definition, used when a kind-class transition requires singling
// out one side's remaining items of a specific class.
func paddingComparisonFrom(items []Item, i int, class bool) int {
	for ; i < len(items); i++ {
		if items[i].isNumberClass() != class {
			continue
		}
		if cmp := items[i].compareToPadding(); cmp != 0 {
			return cmp
		}
	}
	return 0
}

// paddingComparisonAll is paddingComparisonFrom with no class restriction,
// used once one side is fully exhausted: every remaining item of the other
// side, of whichever kind, compares against its own null padding.
func paddingComparisonAll(items []Item, i int) int {
	for ; i < len(items); i++ {
		if cmp := items[i].compareToPadding(); cmp != 0 {
			return cmp
		}
	}
	return 0
}

// Equal reports whether a and b order identically, which is not the same as
// their String() forms matching: "1", "1.0" and "1-ga" are Equal but have
// distinct String() values.
func Equal(a, b Version) bool { return Compare(a, b) == 0 }

// Less reports whether a orders strictly before b.
func Less(a, b Version) bool { return Compare(a, b) < 0 }

func numericItem(text string) (Item, error) {
	if len(text) <= 18 {
		if v, err := strconv.ParseInt(text, 10, 64); err == nil {
			return intItem(int(v)), nil
		}
	}
	bi := new(big.Int)
	if _, ok := bi.SetString(text, 10); !ok {
		return Item{}, newParseError(text, "not a valid integer token")
	}
	return bigIntItem(bi), nil
}

// qualifierOrStringItem classifies a non-digit token into a QUALIFIER,
// STRING, MIN or MAX item, per the scheme's abbreviation and sentinel
// rules: known qualifier names map to fixed weights; a lone "a", "b" or
// "m" immediately followed by a digit (no separator) abbreviates
// alpha/beta/milestone; "min"/"max" are sentinels only when they are the
// final token of the whole version.
func qualifierOrStringItem(text string, terminatedByNumber, isLast bool) Item {
	lower := caseFold(text)

	if w, ok := qualifierWeights[lower]; ok {
		return qualifierItem(w)
	}

	if terminatedByNumber && len(lower) == 1 {
		switch lower {
		case "a":
			return qualifierItem(weightAlpha)
		case "b":
			return qualifierItem(weightBeta)
		case "m":
			return qualifierItem(weightMilestone)
		}
	}

	if isLast {
		switch lower {
		case "min":
			return minItem
		case "max":
			return maxItem
		}
	}

	return stringItem(text)
}
