package entities

import (
	"sort"

	"trendscout/domain/core/valueobjects"
)

// UserKeywordHistory holds what a user has already searched, tracked and
// explored. It is loaded once at the start of a run and only read afterwards.
type UserKeywordHistory struct {
	UserID   string
	searched map[string]struct{}
	tracked  map[string]struct{}
	clicked  map[string]struct{}
}

// NewUserKeywordHistory builds a history from raw keyword lists. Keywords are
// normalized on the way in.
func NewUserKeywordHistory(userID string, searched, tracked, clicked []string) *UserKeywordHistory {
	return &UserKeywordHistory{
		UserID:   userID,
		searched: toKeywordSet(searched),
		tracked:  toKeywordSet(tracked),
		clicked:  toKeywordSet(clicked),
	}
}

// HasSearched reports whether the user searched for the keyword
func (h *UserKeywordHistory) HasSearched(keyword string) bool {
	return h.contains(h.searched, keyword)
}

// HasTracked reports whether the user tracks the keyword
func (h *UserKeywordHistory) HasTracked(keyword string) bool {
	return h.contains(h.tracked, keyword)
}

// HasClicked reports whether the user clicked on or explored the keyword
func (h *UserKeywordHistory) HasClicked(keyword string) bool {
	return h.contains(h.clicked, keyword)
}

// Searched returns the searched keywords in sorted order
func (h *UserKeywordHistory) Searched() []string { return sortedKeys(h.searched) }

// Tracked returns the tracked keywords in sorted order
func (h *UserKeywordHistory) Tracked() []string { return sortedKeys(h.tracked) }

// Clicked returns the clicked/explored keywords in sorted order
func (h *UserKeywordHistory) Clicked() []string { return sortedKeys(h.clicked) }

// IsEmpty reports whether the history has no keywords at all
func (h *UserKeywordHistory) IsEmpty() bool {
	return h == nil || len(h.searched)+len(h.tracked)+len(h.clicked) == 0
}

func (h *UserKeywordHistory) contains(set map[string]struct{}, keyword string) bool {
	if h == nil {
		return false
	}
	_, ok := set[valueobjects.NormalizeKeyword(keyword)]
	return ok
}

func toKeywordSet(keywords []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		if n := valueobjects.NormalizeKeyword(k); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
