package report

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/exoshivam/smart-attendance/core"
)

// similarityRatio is the difflib ratio above which two folded district names are reported as similar.
const similarityRatio = 0.85

func foldDistrict(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// districtKey returns the grouping key of a district name under policy.
func districtKey(policy, name string) string {
	switch policy {
	case core.NormalizeTrim:
		return strings.TrimSpace(name)
	case core.NormalizeFold:
		return foldDistrict(name)
	default:
		return name
	}
}

// similarDistricts pairs up keys whose folded forms are equal or close, sorted.
func similarDistricts(keys []string) [][2]string {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	pairs := make([][2]string, 0)
	for i := 0; i < len(sorted); i++ {
		a := foldDistrict(sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			b := foldDistrict(sorted[j])
			if a == b {
				pairs = append(pairs, [2]string{sorted[i], sorted[j]})
				continue
			}
			m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
			if m.Ratio() >= similarityRatio {
				pairs = append(pairs, [2]string{sorted[i], sorted[j]})
			}
		}
	}
	return pairs
}
