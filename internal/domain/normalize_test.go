package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"João Gabriel", "joao gabriel"},
		{"  MARCUS   ALMEIDA ", "marcus almeida"},
		{"O'Brien, Seán", "o brien sean"},
		{"André Galvão Jr.", "andre galvao jr"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeName(tc.in), tc.in)
	}
}

func TestSlugCandidates(t *testing.T) {
	t.Run("first and last name first", func(t *testing.T) {
		got := SlugCandidates("joao gabriel rocha")
		assert.Equal(t, []string{"joao-rocha", "joao-gabriel-rocha"}, got)
	})

	t.Run("suffixes are ignored", func(t *testing.T) {
		got := SlugCandidates("roberto silva jr")
		assert.Equal(t, []string{"roberto-silva"}, got)
	})

	t.Run("middle names accrete one at a time", func(t *testing.T) {
		got := SlugCandidates("ana maria de souza")
		assert.Equal(t, []string{"ana-souza", "ana-maria-souza", "ana-maria-de-souza"}, got)
	})

	t.Run("single name", func(t *testing.T) {
		assert.Equal(t, []string{"rickson"}, SlugCandidates("rickson"))
	})

	t.Run("empty name", func(t *testing.T) {
		assert.Nil(t, SlugCandidates(""))
	})
}

func TestNumberedSlug(t *testing.T) {
	assert.Equal(t, "joao-rocha-2", NumberedSlug("joao-rocha", 2))
}
