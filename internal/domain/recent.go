package domain

// MaxRecentSearches bounds the recent-search list
const MaxRecentSearches = 5

// RecentSearchList is an ordered, most-recent-first list of unique city names
type RecentSearchList []string

// Push returns a new list with name at the front, any earlier occurrence
// removed and the tail dropped beyond limit. Matching is case-sensitive.
func (l RecentSearchList) Push(name string, limit int) RecentSearchList {
	if name == "" {
		return l.clone()
	}

	out := make(RecentSearchList, 0, len(l)+1)
	out = append(out, name)
	for _, c := range l {
		if c != name {
			out = append(out, c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Normalize drops blanks and duplicates and enforces limit, keeping order
func (l RecentSearchList) Normalize(limit int) RecentSearchList {
	seen := make(map[string]struct{}, len(l))
	out := make(RecentSearchList, 0, len(l))
	for _, c := range l {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (l RecentSearchList) clone() RecentSearchList {
	out := make(RecentSearchList, len(l))
	copy(out, l)
	return out
}
