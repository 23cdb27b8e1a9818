package core

import (
	"sort"
	"strings"
	"time"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// AllowedOrderings keeps the orderings whose field is in fields.
func AllowedOrderings(ordering []DBOrdering, fields []string) []DBOrdering {
	allowed := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		for _, f := range fields {
			if ord.Field == f {
				allowed = append(allowed, ord)
				break
			}
		}
	}
	return allowed
}

// SortBy stable-sorts slice with cmp(i, j, field) applied to each ordering in turn.
func SortBy(slice interface{}, ordering []DBOrdering, cmp func(i, j int, field string) int) {
	if len(ordering) == 0 {
		return
	}
	sort.SliceStable(slice, func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(i, j, ord.Field)
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

func CompareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func CompareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ContainsFold reports whether substr is within s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
