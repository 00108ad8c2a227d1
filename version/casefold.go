package version

import "golang.org/x/text/cases"

// caseFolder performs Unicode-aware case folding under the root locale, so
// qualifier comparisons are insensitive to case beyond plain ASCII.
var caseFolder = cases.Fold(cases.Compact)

func caseFold(s string) string {
	return caseFolder.String(s)
}
