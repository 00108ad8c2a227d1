package version

// rawToken is one lexical element produced by scanning a version string: a
// maximal run of digits or a maximal run of non-digits, with leading zeros
// of a digit run already stripped and separators ('.', '-', '_') consumed
// between runs but not included in either run.
type rawToken struct {
	text                string
	isNumber            bool
	terminatedByNumber  bool // a non-digit run immediately followed by a digit, no separator
	last                bool // this is the final token of the input
}

// tokenize performs a single forward pass over s, splitting it into
// alternating digit/non-digit runs exactly as GenericVersion's Tokenizer
// does: runs are separated either by one of '.', '-', '_' (consumed) or by
// a bare digit/non-digit boundary (not consumed, and in the digit-follows
// case flagged via terminatedByNumber).
func tokenize(s string) []rawToken {
	if s == "" {
		s = "0"
	}

	var tokens []rawToken
	n := len(s)
	index := 0

	for index < n {
		start := index
		end := n
		state := -2 // -2: not yet started, -1: in non-digit run, 0: in digit run (all zero so far), 1: in digit run (nonzero seen)
		consumedSeparator := false

	scan:
		for ; index < n; index++ {
			c := s[index]
			switch {
			case c == '.' || c == '-' || c == '_':
				end = index
				index++
				consumedSeparator = true
				break scan
			case c >= '0' && c <= '9':
				digit := int(c - '0')
				switch {
				case state == -1:
					end = index
					goto doneRun
				case state == 0:
					start++
					if digit > 0 {
						state = 1
					}
				default:
					if digit > 0 {
						state = 1
					} else if state == -2 {
						state = 0
					}
				}
			default:
				if state >= 0 {
					end = index
					goto doneRun
				}
				state = -1
			}
		}

	doneRun:
		terminatedByNumber := false
		if !consumedSeparator && end < n && end > start {
			// loop exited via a bare boundary (goto doneRun) rather than end-of-string
			// or a consumed separator; a digit boundary following a non-digit run
			// means this run is "terminated by number".
			if state == -1 {
				terminatedByNumber = true
			}
		}

		var text string
		isNumber := state >= 0
		if end > start {
			text = s[start:end]
		} else {
			text = "0"
			isNumber = true
		}

		tokens = append(tokens, rawToken{
			text:               text,
			isNumber:           isNumber,
			terminatedByNumber: terminatedByNumber,
			last:               index >= n,
		})
	}

	return tokens
}
