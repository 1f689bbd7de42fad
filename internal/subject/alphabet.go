package subject

import "regexp"

// Alphabets a substituted parameter value (and therefore every token of a
// concrete subject) must respect. Lenient is the default; strict is an
// opt-in, registry-wide configuration.
var (
	lenientAlphabet = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	strictAlphabet  = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

func alphabetFor(strict bool) *regexp.Regexp {
	if strict {
		return strictAlphabet
	}
	return lenientAlphabet
}
