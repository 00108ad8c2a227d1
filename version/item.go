package version

import (
	"math/big"
	"strings"
)

// ItemKind tags the variant an Item holds. Ordering of the constants below
// is significant: it defines the cross-kind comparison order from §4.A.4
// (MIN < QUALIFIER < STRING < INT < BIGINT < MAX).
type ItemKind uint8

const (
	KindMin ItemKind = iota
	KindQualifier
	KindString
	KindInt
	KindBigInt
	KindMax
)

func (k ItemKind) String() string {
	switch k {
	case KindMin:
		return "MIN"
	case KindQualifier:
		return "QUALIFIER"
	case KindString:
		return "STRING"
	case KindInt:
		return "INT"
	case KindBigInt:
		return "BIGINT"
	case KindMax:
		return "MAX"
	default:
		return "UNKNOWN"
	}
}

// Known qualifier weights (§3). A qualifier's weight determines its order
// relative to the implicit "ga"/"0" padding and to other qualifiers.
const (
	weightAlpha     = -5
	weightBeta      = -4
	weightMilestone = -3
	weightRC        = -2 // cr, rc
	weightSnapshot  = -1
	weightGA        = 0 // ga, final, release, ""
	weightSP        = 1
)

var qualifierWeights = map[string]int{
	"alpha":     weightAlpha,
	"beta":      weightBeta,
	"milestone": weightMilestone,
	"cr":        weightRC,
	"rc":        weightRC,
	"snapshot":  weightSnapshot,
	"ga":        weightGA,
	"final":     weightGA,
	"release":   weightGA,
	"":          weightGA,
	"sp":        weightSP,
}

// Item is a single tokenized element of a Version, tagged by kind. It is
// immutable once constructed.
type Item struct {
	kind     ItemKind
	intValue int     // valid for KindQualifier and KindInt
	bigValue big.Int // valid for KindBigInt
	strValue string  // valid for KindString (lower-cased, root case folding)
}

// Kind reports which tagged variant the Item holds.
func (it Item) Kind() ItemKind { return it.kind }

// IntValue returns the stored integer for a KindQualifier or KindInt item
// (the qualifier weight or the numeric value, respectively). It is zero for
// any other kind.
func (it Item) IntValue() int { return it.intValue }

// BigValue returns the stored arbitrary-precision integer for a KindBigInt
// item. It is the zero value for any other kind.
func (it Item) BigValue() big.Int { return it.bigValue }

// StringValue returns the stored lower-cased text for a KindString item. It
// is empty for any other kind.
func (it Item) StringValue() string { return it.strValue }

// minItem and maxItem are the sentinel Items produced by the literal tokens
// "min" and "max" at the end of input.
var (
	minItem = Item{kind: KindMin}
	maxItem = Item{kind: KindMax}
)

func qualifierItem(weight int) Item {
	return Item{kind: KindQualifier, intValue: weight}
}

func intItem(v int) Item {
	return Item{kind: KindInt, intValue: v}
}

func bigIntItem(v *big.Int) Item {
	it := Item{kind: KindBigInt}
	it.bigValue.Set(v)
	return it
}

func stringItem(s string) Item {
	return Item{kind: KindString, strValue: foldCase(s)}
}

// foldCase applies Unicode-aware case folding so that qualifiers containing
// non-ASCII letters still compare case-insensitively, not just ASCII ones.
func foldCase(s string) string {
	return strings.ToLower(caseFold(s))
}

// isNumberClass reports whether the Item belongs to the "numeric" kind
// class used by the lockstep comparator in §4.A.5: MIN, INT, BIGINT and MAX
// all pad/compare as numbers, while QUALIFIER and STRING do not.
func (it Item) isNumberClass() bool {
	switch it.kind {
	case KindMin, KindInt, KindBigInt, KindMax:
		return true
	default:
		return false
	}
}

// compareToPadding compares the Item against the conceptual zero/"ga" pad
// element, per §4.A.3.
func (it Item) compareToPadding() int {
	switch it.kind {
	case KindMin:
		return -1
	case KindMax, KindBigInt, KindString:
		return 1
	case KindInt, KindQualifier:
		return signum(it.intValue)
	default:
		panic("version: unknown item kind")
	}
}

// compareTo compares two Items directly, per §4.A.4: different kinds order
// by kind ordinal, equal kinds compare by value.
func (it Item) compareTo(other Item) int {
	if it.kind != other.kind {
		return int(it.kind) - int(other.kind)
	}
	switch it.kind {
	case KindMin, KindMax:
		return 0
	case KindBigInt:
		return it.bigValue.Cmp(&other.bigValue)
	case KindInt, KindQualifier:
		return it.intValue - other.intValue
	case KindString:
		return strings.Compare(it.strValue, other.strValue)
	default:
		panic("version: unknown item kind")
	}
}

func (it Item) String() string {
	switch it.kind {
	case KindMin:
		return "min"
	case KindMax:
		return "max"
	case KindBigInt:
		return it.bigValue.String()
	case KindInt, KindQualifier:
		return itoa(it.intValue)
	case KindString:
		return it.strValue
	default:
		return ""
	}
}

func signum(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func itoa(v int) string {
	neg := v < 0
	if neg {
		v = -v
	}
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
