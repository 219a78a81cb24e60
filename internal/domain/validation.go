package domain

import (
	"regexp"
	"strings"
)

var spaceRe = regexp.MustCompile(`\s+`)

// BranchIDFromName — id филиала из названия: нижний регистр без пробелов.
func BranchIDFromName(name string) string {
	return spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "")
}

// NormalizeUsername — логины храним в нижнем регистре без пробелов по краям.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
