package look

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	trailingSuffix = regexp.MustCompile(`^(.+)-(\d+)$`)
	trailingSpace  = regexp.MustCompile(`^(.+)\s+(\d+)$`)
)

// parseInstance splits "sword-2" or "sword 2" into ("sword", 2). Absent an
// instance selector it returns instance 0, meaning "unspecified" (callers
// default unspecified to the first match).
func parseInstance(raw string) (base string, instance int) {
	text := strings.TrimSpace(raw)
	if m := trailingSuffix.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			return strings.TrimSpace(m[1]), n
		}
	}
	if m := trailingSpace.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
			return strings.TrimSpace(m[1]), n
		}
	}
	return text, 0
}
