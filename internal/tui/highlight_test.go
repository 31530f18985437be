package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchIndexes(t *testing.T) {
	titles := []string{"News Channel 1", "Sports Channel 2", "Kids Channel 3"}

	matched := matchIndexes("NEWS", titles)
	assert.Equal(t, []int{0, 1, 2, 3}, matched[0])
	assert.NotContains(t, matched, 2)

	assert.Nil(t, matchIndexes("  ", titles))
}

func TestHighlightWithoutMatches(t *testing.T) {
	assert.Equal(t, "Movie", highlight("Movie", nil))
}
