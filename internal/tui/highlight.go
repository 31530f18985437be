package tui

import (
	"strings"

	"github.com/mmcdole/rebootv/internal/tui/styles"
	"github.com/sahilm/fuzzy"
)

// matchIndexes fuzzily matches term against titles and returns, per
// title index, the byte offsets of the matched characters
func matchIndexes(term string, titles []string) map[int][]int {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}

	lowerTitles := make([]string, len(titles))
	for i, t := range titles {
		lowerTitles[i] = strings.ToLower(t)
	}

	out := make(map[int][]int)
	for _, match := range fuzzy.Find(strings.ToLower(term), lowerTitles) {
		out[match.Index] = match.MatchedIndexes
	}
	return out
}

// highlight renders title with the characters at matched offsets styled
func highlight(title string, matched []int) string {
	if len(matched) == 0 {
		return title
	}
	set := make(map[int]bool, len(matched))
	for _, i := range matched {
		set[i] = true
	}

	var b strings.Builder
	for i, r := range title {
		if set[i] {
			b.WriteString(styles.MatchStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
