package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shpitdev/researcher-enrichment/internal/identity"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Jane Doe", want: "jane doe"},
		{name: "already normalized", in: "jane doe", want: "jane doe"},
		{name: "professor", in: "Professor Jane Doe", want: "jane doe"},
		{name: "surrounding whitespace", in: "  Dr Jane Doe \t", want: "jane doe"},
		{name: "associate professor beats professor", in: "Associate Professor Jane Doe", want: "jane doe"},
		{name: "a/prof beats prof", in: "A/Prof Jane Doe", want: "jane doe"},
		{name: "honorary chain", in: "Hon A/Prof Jane Doe", want: "jane doe"},
		{name: "only one prefix stripped", in: "Prof Dr Jane Doe", want: "dr jane doe"},
		{name: "prefix needs word boundary", in: "Drew Barry", want: "drew barry"},
		{name: "lowercase title is not a prefix", in: "prof jane doe", want: "prof jane doe"},
		{name: "uppercase title is not a prefix", in: "PROFESSOR Jane", want: "professor jane"},
		{name: "title needs an ascii space", in: "Dr\tJane", want: "dr\tjane"},
		{name: "no diacritic folding", in: "Prof José Núñez", want: "josé núñez"},
		{name: "no punctuation stripping", in: "Mary-Jane O'Neil", want: "mary-jane o'neil"},
		{name: "empty", in: "", want: ""},
		{name: "title only", in: "Professor ", want: "professor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identity.Normalize(tt.in))
		})
	}
}

func TestNormalize_ProfessorMatchesBareName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, identity.Normalize("jane doe"), identity.Normalize("Professor Jane Doe"))
	assert.Equal(t, "jane doe", identity.Normalize("Professor Jane Doe"))
}

func TestHonorifics_LongerTitlesFirst(t *testing.T) {
	t.Parallel()

	// A title that is a prefix of a later title would mask it.
	for i, earlier := range identity.Honorifics {
		for _, later := range identity.Honorifics[i+1:] {
			assert.Falsef(t, len(earlier) < len(later) && later[:len(earlier)] == earlier,
				"%q masks %q", earlier, later)
		}
	}
}
