package calendar

import (
	"sort"

	"github.com/oremband/oremband/pkg/occurrence"
)

// DateIndex groups occurrences by date. Every occurrence of a date is kept,
// in start order.
type DateIndex map[string][]occurrence.Occurrence

func BuildIndex(occurrences []occurrence.Occurrence) DateIndex {
	index := make(DateIndex)
	for _, occ := range occurrences {
		index[occ.Date] = append(index[occ.Date], occ)
	}
	for _, list := range index {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].StartsAt.Before(list[j].StartsAt)
		})
	}
	return index
}

// Dates returns the indexed dates in ascending order.
func (idx DateIndex) Dates() []string {
	dates := make([]string, 0, len(idx))
	for date := range idx {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

func (idx DateIndex) On(date string) []occurrence.Occurrence {
	return idx[date]
}
