package touchpoint

import (
	"sort"
	"time"

	"github.com/AngelCh415/touchpoints/internal/models"
)

const dedupDetailPrefix = 50

type dedupKey struct {
	minute string
	kind   string
	detail string
}

// Sort orders touchpoints by timestamp ascending in place. Undated entries
// go last; ties keep their input order.
func Sort(tps []models.Touchpoint) {
	sort.SliceStable(tps, func(i, j int) bool {
		a, b := tps[i].Timestamp, tps[j].Timestamp
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})
}

// Dedup drops touchpoints sharing (minute, kind, detail prefix) with an
// earlier one. Input order decides which copy survives.
func Dedup(tps []models.Touchpoint) []models.Touchpoint {
	seen := make(map[dedupKey]struct{}, len(tps))
	out := make([]models.Touchpoint, 0, len(tps))
	for _, tp := range tps {
		k := keyOf(tp)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, tp)
	}
	return out
}

// Canonical sorts then deduplicates.
func Canonical(tps []models.Touchpoint) []models.Touchpoint {
	cp := make([]models.Touchpoint, len(tps))
	copy(cp, tps)
	Sort(cp)
	return Dedup(cp)
}

func keyOf(tp models.Touchpoint) dedupKey {
	k := dedupKey{kind: tp.Kind}
	if tp.Timestamp != nil {
		k.minute = tp.Timestamp.UTC().Truncate(time.Minute).Format(time.RFC3339)
	}
	d := []rune(tp.Detail)
	if len(d) > dedupDetailPrefix {
		d = d[:dedupDetailPrefix]
	}
	k.detail = string(d)
	return k
}
