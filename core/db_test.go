package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowedOrderings(t *testing.T) {
	got := AllowedOrderings(
		[]DBOrdering{{Field: "name", Ascending: true}, {Field: "password"}, {Field: "created_at"}},
		[]string{"name", "created_at"},
	)
	assert.Equal(t, []DBOrdering{{Field: "name", Ascending: true}, {Field: "created_at"}}, got)
}

func TestSortBy(t *testing.T) {
	type row struct {
		name string
		risk float64
		at   time.Time
	}
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rows := func() []row {
		return []row{
			{"c", 0.5, t0.Add(time.Minute)},
			{"a", 0.9, t0},
			{"b", 0.5, t0},
		}
	}
	cmp := func(rs []row) func(i, j int, field string) int {
		return func(i, j int, field string) int {
			switch field {
			case "name":
				return strings.Compare(rs[i].name, rs[j].name)
			case "risk":
				return CompareFloats(rs[i].risk, rs[j].risk)
			case "at":
				return CompareTimes(rs[i].at, rs[j].at)
			}
			return 0
		}
	}
	names := func(rs []row) string {
		s := ""
		for _, r := range rs {
			s += r.name
		}
		return s
	}

	tests := []struct {
		name     string
		ordering []DBOrdering
		want     string
	}{
		{name: "no ordering keeps input", want: "cab"},
		{name: "ascending", ordering: []DBOrdering{{Field: "name", Ascending: true}}, want: "abc"},
		{name: "descending", ordering: []DBOrdering{{Field: "name"}}, want: "cba"},
		{name: "ties broken by next field", ordering: []DBOrdering{{Field: "risk"}, {Field: "name", Ascending: true}}, want: "abc"},
		{name: "stable on full tie", ordering: []DBOrdering{{Field: "risk", Ascending: true}}, want: "cba"},
		{name: "times", ordering: []DBOrdering{{Field: "at", Ascending: true}, {Field: "name"}}, want: "bac"},
		{name: "unknown field keeps input", ordering: []DBOrdering{{Field: "other"}}, want: "cab"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rs := rows()
			SortBy(rs, tc.ordering, cmp(rs))
			assert.Equal(t, tc.want, names(rs))
		})
	}
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Government High School", "high"))
	assert.True(t, ContainsFold("SCH-A", "sch-a"))
	assert.False(t, ContainsFold("School A", "B"))
}
