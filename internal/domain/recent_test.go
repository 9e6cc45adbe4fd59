package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecentSearchList_Push(t *testing.T) {
	var l RecentSearchList

	l = l.Push("London", MaxRecentSearches)
	l = l.Push("Paris", MaxRecentSearches)
	assert.Equal(t, RecentSearchList{"Paris", "London"}, l)

	// Existing entry moves to the front without growing the list
	l = l.Push("London", MaxRecentSearches)
	assert.Equal(t, RecentSearchList{"London", "Paris"}, l)

	// Matching is case-sensitive
	l = l.Push("london", MaxRecentSearches)
	assert.Equal(t, RecentSearchList{"london", "London", "Paris"}, l)
}

func TestRecentSearchList_PushBounded(t *testing.T) {
	var l RecentSearchList
	for _, c := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		l = l.Push(c, MaxRecentSearches)
		assert.LessOrEqual(t, len(l), MaxRecentSearches)
	}
	assert.Equal(t, RecentSearchList{"G", "F", "E", "D", "C"}, l)
}

func TestRecentSearchList_PushDoesNotAlias(t *testing.T) {
	orig := RecentSearchList{"A", "B"}
	next := orig.Push("C", MaxRecentSearches)
	next[1] = "X"
	assert.Equal(t, RecentSearchList{"A", "B"}, orig)

	same := orig.Push("", MaxRecentSearches)
	same[0] = "Y"
	assert.Equal(t, "A", orig[0])
}

func TestRecentSearchList_Normalize(t *testing.T) {
	l := RecentSearchList{"A", "", "B", "A", "C", "D", "E", "F"}
	assert.Equal(t, RecentSearchList{"A", "B", "C", "D", "E"}, l.Normalize(MaxRecentSearches))
}
