package command

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mythosmud/mudserver/internal/apperr"
)

var dangerousSubstrings = []string{
	"--", "/*", "*/", "xp_cmdshell",
	"union select", "drop table", "insert into", "delete from",
	"<script", "javascript:", "onerror=", "onload=",
}

var shellMetacharacters = ";|&"

// sanitize strips control characters, collapses whitespace, enforces a
// max length, and rejects lines carrying shell metacharacters, SQL
// injection signatures, script injection substrings, or raw format
// specifiers. Unicode letters/marks are preserved.
func sanitize(line string, maxLength int) (string, error) {
	var b strings.Builder
	for _, r := range line {
		if r == '\t' || r == ' ' {
			b.WriteRune(' ')
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := collapseWhitespace(b.String())

	if len(cleaned) > maxLength {
		return "", apperr.New(apperr.CommandTooLong, "command exceeds %d characters", maxLength)
	}

	lower := strings.ToLower(cleaned)
	for _, ch := range shellMetacharacters {
		if strings.ContainsRune(cleaned, ch) {
			return "", apperr.New(apperr.InvalidCharacters, "command contains disallowed character %q", string(ch))
		}
	}
	for _, sig := range dangerousSubstrings {
		if strings.Contains(lower, sig) {
			return "", apperr.New(apperr.InvalidCharacters, "command contains a disallowed substring")
		}
	}
	if formatSpecifier.MatchString(cleaned) {
		return "", apperr.New(apperr.InvalidCharacters, "command contains a disallowed format specifier")
	}

	return cleaned, nil
}

var formatSpecifier = regexp.MustCompile(`%[sdxXofeEgGqvTn]`)

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
