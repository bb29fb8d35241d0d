package calendar

import (
	"sort"

	"github.com/oremband/oremband/pkg/occurrence"
)

// Store holds the occurrences of the last successful load. It is owned by a
// single Controller and is not safe for concurrent use on its own.
type Store struct {
	occurrences []occurrence.Occurrence
}

func NewStore() *Store {
	return &Store{}
}

// Replace swaps the content for a freshly loaded period. Duplicate instance
// ids keep their first occurrence.
func (s *Store) Replace(occurrences []occurrence.Occurrence) {
	seen := make(map[string]struct{}, len(occurrences))
	kept := make([]occurrence.Occurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		if _, ok := seen[occ.InstanceId]; ok {
			continue
		}
		seen[occ.InstanceId] = struct{}{}
		kept = append(kept, occ)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].StartsAt.Before(kept[j].StartsAt)
	})
	s.occurrences = kept
}

// RemoveEvent drops every occurrence of the event and returns how many were removed.
func (s *Store) RemoveEvent(originalEventId string) int {
	kept := s.occurrences[:0]
	removed := 0
	for _, occ := range s.occurrences {
		if occ.OriginalEventId == originalEventId {
			removed++
			continue
		}
		kept = append(kept, occ)
	}
	s.occurrences = kept
	return removed
}

func (s *Store) All() []occurrence.Occurrence {
	out := make([]occurrence.Occurrence, len(s.occurrences))
	copy(out, s.occurrences)
	return out
}

func (s *Store) Len() int {
	return len(s.occurrences)
}

