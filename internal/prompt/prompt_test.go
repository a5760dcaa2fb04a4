package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser(t *testing.T) {
	got := User(Search, "Jane Doe", []string{"UNSW", "CSIRO"})
	assert.Contains(t, got, `"Jane Doe" who is affiliated with UNSW, CSIRO.`)
	assert.Contains(t, got, "evidence_count")

	got = User(Search, "Jane Doe", nil)
	assert.Contains(t, got, "an unknown institution")

	got = User(NameOnly, "Jane Doe", []string{"UNSW"})
	assert.NotContains(t, got, "UNSW", "name-only prompt must not carry affiliations")
	assert.Contains(t, got, "reasoning")
	assert.Contains(t, got, "do NOT have access to web search")
}

func TestSystem(t *testing.T) {
	assert.NotEqual(t, System(Search), System(NameOnly))
	assert.Equal(t, "name_only", NameOnly.String())
	assert.Equal(t, "search", Search.String())
}
