package inmemdb

import (
	"sort"
	"strings"
	"time"

	"github.com/trezcool/examhall/core"
)

type comparator[T any] func(a, b T) int

// orderBy sorts items by the orderings whose field has a comparator, in priority order.
// Unknown fields are ignored like in the SQL repositories.
func orderBy[T any](items []T, ordering []core.DBOrdering, cmps map[string]comparator[T], def ...core.DBOrdering) {
	known := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if _, ok := cmps[ord.Field]; ok {
			known = append(known, ord)
		}
	}
	if len(known) == 0 {
		known = def
	}
	if len(known) == 0 {
		return
	}

	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range known {
			c := cmps[ord.Field](items[i], items[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func cmpString(a, b string) int { return strings.Compare(strings.ToLower(a), strings.ToLower(b)) }

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func cmpInt(a, b int) int { return a - b }
