package advisor

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "a b c", clean("  a\n\tb   c  "))

	long := strings.Repeat("x", maxRationaleLen+10)
	assert.Len(t, clean(long), maxRationaleLen)
}

func TestClean_CutsOnRuneBoundary(t *testing.T) {
	// one ASCII byte then two-byte runes, so the limit lands mid-rune
	text := "a" + strings.Repeat("é", maxRationaleLen)
	out := clean(text)

	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), maxRationaleLen)
	assert.Equal(t, maxRationaleLen-1, len(out))
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(Request{Category: "rainfall", SourceName: "noaa", KnownSource: true})
	assert.Contains(t, p, "Category: rainfall")
	assert.Contains(t, p, "Source: noaa")
	assert.Contains(t, p, "Source known: true")
}
