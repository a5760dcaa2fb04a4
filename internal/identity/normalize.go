// Package identity canonicalizes researcher display names into join keys.
package identity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Honorifics is the ordered prefix list checked by Normalize. The first match
// wins, so longer titles must come before any title that is a prefix of them
// ("Associate Professor " before "Professor ", "A/Prof " before "Prof ").
var Honorifics = []string{
	"Honorary Associate Professor ",
	"Hon Assoc Prof ",
	"Hon A/Prof ",
	"Hon Prof ",
	"Associate Professor ",
	"Associate Prof ",
	"Assoc Professor ",
	"Assoc Prof ",
	"A/Prof ",
	"Emeritus Professor ",
	"Emeritus Prof ",
	"Professor ",
	"Prof. ",
	"Prof ",
	"Doctor ",
	"Dr. ",
	"Dr ",
}

// Normalize trims raw, strips at most one leading honorific and lower-cases the
// remainder. Nothing else is folded: spelling variants stay distinct so two
// different people are never merged by accident.
//
// Honorific matching is exact and case-sensitive, including the single ASCII
// space after the title. "Dr\tJane" and "PROFESSOR Jane" keep their title and
// so do not match "Jane".
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	for _, prefix := range Honorifics {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}
	// Casers carry state, so each call gets its own.
	return cases.Lower(language.Und).String(s)
}
