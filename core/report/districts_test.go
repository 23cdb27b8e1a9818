package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/exoshivam/smart-attendance/core"
)

func Test_districtKey(t *testing.T) {
	tests := []struct {
		policy string
		name   string
		want   string
	}{
		{policy: core.NormalizeNone, name: " North  Goa ", want: " North  Goa "},
		{policy: core.NormalizeTrim, name: " North  Goa ", want: "North  Goa"},
		{policy: core.NormalizeFold, name: " North  Goa ", want: "north goa"},
		{policy: "", name: "North", want: "North"},
	}

	for _, tc := range tests {
		t.Run(tc.policy+"/"+tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, districtKey(tc.policy, tc.name))
		})
	}
}

func Test_similarDistricts(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want [][2]string
	}{
		{name: "none", keys: nil, want: [][2]string{}},
		{name: "distinct", keys: []string{"North", "South", "Bengaluru Urban"}, want: [][2]string{}},
		{name: "case and spacing", keys: []string{"North", " north"}, want: [][2]string{{" north", "North"}}},
		{name: "typo", keys: []string{"Bengaluru Urbn", "Bengaluru Urban", "Mysuru"}, want: [][2]string{{"Bengaluru Urban", "Bengaluru Urbn"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, similarDistricts(tc.keys))
		})
	}
}
