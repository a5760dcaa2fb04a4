// Package prompt holds the instructions sent to classification oracles.
package prompt

import (
	"strings"
)

// Mode selects which pass a prompt is for.
type Mode int

const (
	// Search asks for a web-search-grounded profile.
	Search Mode = iota
	// NameOnly asks for a guess from the name alone.
	NameOnly
)

func (m Mode) String() string {
	if m == NameOnly {
		return "name_only"
	}
	return "search"
}

const searchSystem = "You are an academic profile analyzer with web search capabilities. Always be honest about what you find and what you do not find. Return only valid JSON."

const nameOnlySystem = "You are a name analysis expert. You analyze names for likely gender associations based on linguistic and cultural patterns. You do NOT have web search access and must base the analysis purely on the name provided. Be honest about uncertainty. Return only valid JSON."

// System returns the system instruction for m.
func System(m Mode) string {
	if m == NameOnly {
		return nameOnlySystem
	}
	return searchSystem
}

// User returns the per-entity request for m.
func User(m Mode, name string, affiliations []string) string {
	if m == NameOnly {
		return nameOnly(name)
	}
	return search(name, affiliations)
}

func search(name string, affiliations []string) string {
	where := "an unknown institution"
	if len(affiliations) > 0 {
		where = strings.Join(affiliations, ", ")
	}
	return strings.TrimSpace(`
Search the web for information about academic researcher "` + name + `" who is affiliated with ` + where + `.

Find real, current information about this person:
1. Research areas and specializations
2. Recent publications or achievements
3. Academic background and career highlights

Return ONLY a single JSON object with these keys:
- classification (string; one of: female, male, unknown; from name and any pronouns found)
- confidence (string; one of: high, medium, low; for the classification)
- summary (string; 2-3 sentences based on what the search actually found)
- topics (list of 2-3 research areas found, or an empty list)
- evidence_count (integer 0-5; relevant web sources actually found)
- search_successful (boolean; true only if specific information about this person was found)
- notes (string; brief note on what was or was not found)

Rules:
- Only report information you actually found.
- Do not invent research areas or achievements.
- If nothing specific was found, say so in notes and set search_successful to false.
- Do not include extra keys or any text outside the JSON object.
`)
}

func nameOnly(name string) string {
	return strings.TrimSpace(`
Analyze the name "` + name + `" and make your best educated guess about the person's gender based solely on the name.

Consider common gender associations of given names, cultural and linguistic patterns, and name variations and origins.

You do NOT have access to web search or any information about this specific person.

Return ONLY a single JSON object with these keys:
- classification (string; one of: female, male, unknown)
- confidence (string; one of: high, medium, low; for this name-based guess)
- reasoning (string; brief explanation, including the likely origin of the name and any ambiguity)

If the name is ambiguous or you are unsure, use "unknown" and explain why.
`)
}
