package tally

import "regexp"

// Tally embeds characters that XML 1.0 forbids: numeric references to ASCII
// control points (e.g. &#4;) and the raw control bytes themselves. Both must
// be removed, not replaced, before parsing.
// XML 1.0 allows #x9 | #xA | #xD | [#x20-#xD7FF].
var (
	illegalCharRefs = regexp.MustCompile(`&#(?:[0-8]|1[0-1]|1[4-9]|2[0-9]|3[01]);`)
	illegalRawChars = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f]")
)

// Sanitize strips XML-illegal numeric character references and raw control
// characters from a Tally response. Sanitizing is idempotent.
func Sanitize(raw string) string {
	raw = illegalCharRefs.ReplaceAllString(raw, "")
	raw = illegalRawChars.ReplaceAllString(raw, "")
	return raw
}
