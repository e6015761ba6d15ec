package metrics

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/AngelCh415/touchpoints/internal/models"
	"github.com/AngelCh415/touchpoints/internal/touchpoint"
)

const (
	LargeGapDays    = 30
	LargestGapLimit = 20
)

// gapExcluded kinds carry rollup dates that would distort gap lengths.
var gapExcluded = map[string]bool{
	models.KindLastSalesActivity: true,
}

// Gaps walks one customer's ordered touchpoints and returns every strictly
// positive day gap between consecutive dated touchpoints.
func (a *Analyzer) Gaps(j models.CustomerJourney) []models.TouchpointGap {
	var out []models.TouchpointGap
	var prev *models.Touchpoint
	for i := range j.Touchpoints {
		tp := &j.Touchpoints[i]
		if tp.Timestamp == nil || gapExcluded[tp.Kind] {
			continue
		}
		if prev != nil {
			d := touchpoint.DaysBetween(*prev.Timestamp, *tp.Timestamp)
			switch {
			case d > 0:
				out = append(out, models.TouchpointGap{
					Company:  j.Company,
					GapDays:  d,
					FromKind: prev.Kind,
					ToKind:   tp.Kind,
					Outcome:  Outcome(j.DealStage),
					Cohort:   Cohort(j.DealStage),
				})
			case d < 0:
				a.log.Warn("touchpoints out of order",
					slog.String("company", j.Company),
					slog.String("from", prev.Kind),
					slog.String("to", tp.Kind),
					slog.Int("days", d))
			}
		}
		prev = tp
	}
	return out
}

func (a *Analyzer) AllGaps(journeys []models.CustomerJourney) []models.TouchpointGap {
	var out []models.TouchpointGap
	for _, j := range journeys {
		out = append(out, a.Gaps(j)...)
	}
	return out
}

// StageOf returns the stage a deal stage change moved to. Touchpoints
// without a structured stage fall back to the "moved to: X (via Y)" detail.
func StageOf(tp models.Touchpoint) (string, bool) {
	if tp.Kind != models.KindDealStageChange {
		return "", false
	}
	if tp.Stage != "" {
		return tp.Stage, true
	}
	_, rest, ok := strings.Cut(tp.Detail, "moved to:")
	if !ok {
		return "", false
	}
	if i := strings.IndexByte(rest, '('); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}

// Transitions counts consecutive stage pairs across all customers, most
// frequent first.
func Transitions(journeys []models.CustomerJourney) []models.StageTransition {
	type pair struct{ from, to string }
	counts := map[pair]int{}
	for _, j := range journeys {
		var stages []string
		for _, tp := range j.Touchpoints {
			if s, ok := StageOf(tp); ok {
				stages = append(stages, s)
			}
		}
		for i := 0; i+1 < len(stages); i++ {
			counts[pair{stages[i], stages[i+1]}]++
		}
	}
	out := make([]models.StageTransition, 0, len(counts))
	for p, n := range counts {
		out = append(out, models.StageTransition{From: p.from, To: p.to, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// StallPoints counts the current stage of every stalled customer.
func StallPoints(journeys []models.CustomerJourney) []models.StageCount {
	counts := map[string]int{}
	for _, j := range journeys {
		if Cohort(j.DealStage) == CohortStalled {
			counts[strings.TrimSpace(j.DealStage)]++
		}
	}
	return sortedCounts(counts)
}

func sortedCounts(counts map[string]int) []models.StageCount {
	out := make([]models.StageCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, models.StageCount{Stage: s, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Stage < out[j].Stage
	})
	return out
}

// gapReportOrder is the order gap statistics are reported in.
var gapReportOrder = []string{CohortClosedWon, CohortStalled, CohortChurned, CohortNoDeal}

// GapStatsByCohort summarizes gap lengths per outcome cohort. Cohorts with
// no gaps are omitted.
func GapStatsByCohort(gaps []models.TouchpointGap) []models.GapStats {
	byCohort := map[string][]int{}
	for _, g := range gaps {
		if g.Cohort != "" {
			byCohort[g.Cohort] = append(byCohort[g.Cohort], g.GapDays)
		}
	}
	var out []models.GapStats
	for _, c := range gapReportOrder {
		days := byCohort[c]
		if len(days) == 0 {
			continue
		}
		st := models.GapStats{Cohort: c, Count: len(days), MinDays: days[0], MaxDays: days[0]}
		var over14, over30 int
		for _, d := range days {
			st.MinDays = min(st.MinDays, d)
			st.MaxDays = max(st.MaxDays, d)
			if d > 14 {
				over14++
			}
			if d > 30 {
				over30++
			}
		}
		st.AvgDays = round2(meanInt(days))
		st.Over14Frac = round3(float64(over14) / float64(len(days)))
		st.Over30Frac = round3(float64(over30) / float64(len(days)))
		out = append(out, st)
	}
	return out
}

// LargestGaps returns gaps longer than minDays, longest first, at most
// limit of them.
func LargestGaps(gaps []models.TouchpointGap, minDays, limit int) []models.TouchpointGap {
	var out []models.TouchpointGap
	for _, g := range gaps {
		if g.GapDays > minDays {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GapDays > out[j].GapDays })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type speedRange struct {
	label    string
	min, max int
}

var speedRanges = []speedRange{
	{"Same day (0)", 0, 0},
	{"1-7 days", 1, 7},
	{"8-30 days", 8, 30},
	{"31-90 days", 31, 90},
	{"90+ days", 91, -1},
}

// SpeedBuckets groups customers by whole days from first touch to signup.
// Every bucket is returned, empty or not.
func (a *Analyzer) SpeedBuckets(journeys []models.CustomerJourney) []models.SpeedBucket {
	out := make([]models.SpeedBucket, len(speedRanges))
	for i, r := range speedRanges {
		out[i] = models.SpeedBucket{Label: r.label, Companies: []string{}, Outcomes: []string{}}
	}
	for _, j := range journeys {
		if j.FirstTouch == nil || j.Signup == nil {
			continue
		}
		// negative spans were already reported by the cohort pass
		d := touchpoint.DaysBetween(*j.FirstTouch, *j.Signup)
		if d < 0 {
			continue
		}
		i := SpeedBucket(d)
		out[i].Total++
		out[i].Companies = append(out[i].Companies, j.Company)
		out[i].Outcomes = append(out[i].Outcomes, Outcome(j.DealStage))
		if Cohort(j.DealStage) == CohortClosedWon {
			out[i].ClosedWon++
		}
	}
	for i := range out {
		if out[i].Total > 0 {
			out[i].WinRate = round2(100 * float64(out[i].ClosedWon) / float64(out[i].Total))
		}
	}
	return out
}

// SpeedBucket returns the index of the bucket holding a non-negative day
// count.
func SpeedBucket(days int) int {
	for i, r := range speedRanges {
		if days >= r.min && (r.max < 0 || days <= r.max) {
			return i
		}
	}
	return 0
}

func SpeedLabel(days int) string { return speedRanges[SpeedBucket(days)].label }
