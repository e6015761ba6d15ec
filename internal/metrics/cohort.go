package metrics

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/AngelCh415/touchpoints/internal/models"
	"github.com/AngelCh415/touchpoints/internal/touchpoint"
)

const (
	CohortClosedWon = "Closed Won"
	CohortChurned   = "Churned"
	CohortStalled   = "Stalled (Active)"
	CohortNoDeal    = "No Deal"
)

// CohortOrder is the order cohorts are reported in.
var CohortOrder = []string{CohortClosedWon, CohortChurned, CohortStalled, CohortNoDeal}

var stalledStages = map[string]bool{
	"Demo Scheduled":        true,
	"Demo Follow-Up":        true,
	"Payment Link Sent":     true,
	"On Hold":               true,
	"Free Trial":            true,
	"Freemium":              true,
	"Interested in a pilot": true,
}

// Cohort maps a deal stage to its outcome cohort. Stages outside every
// bucket (an open prospect, say) return "".
func Cohort(dealStage string) string {
	s := strings.TrimSpace(dealStage)
	switch {
	case s == "Closed Won":
		return CohortClosedWon
	case s == "Churn" || s == "Closed Lost":
		return CohortChurned
	case stalledStages[s]:
		return CohortStalled
	case s == "" || s == "No Deal":
		return CohortNoDeal
	}
	return ""
}

// Outcome is the raw deal stage, or "No Deal" when there is none.
func Outcome(dealStage string) string {
	if s := strings.TrimSpace(dealStage); s != "" {
		return s
	}
	return CohortNoDeal
}

func channel(j models.CustomerJourney) string {
	if j.Channel == "" {
		return "Unknown"
	}
	return j.Channel
}

// Cohorts computes the four cohort summaries in CohortOrder. Customers
// outside every cohort are left out.
func (a *Analyzer) Cohorts(journeys []models.CustomerJourney) []models.CohortMetrics {
	groups := map[string][]models.CustomerJourney{}
	for _, j := range journeys {
		if c := Cohort(j.DealStage); c != "" {
			groups[c] = append(groups[c], j)
		}
	}
	out := make([]models.CohortMetrics, 0, len(CohortOrder))
	for _, label := range CohortOrder {
		out = append(out, a.cohortMetrics(label, groups[label]))
	}
	return out
}

func (a *Analyzer) cohortMetrics(label string, group []models.CustomerJourney) models.CohortMetrics {
	m := models.CohortMetrics{
		Label:         label,
		Count:         len(group),
		SignupDays:    []int{},
		CloseDays:     []int{},
		ChannelCounts: map[string]int{},
		KindCounts:    map[string]int{},
	}
	if len(group) == 0 {
		return m
	}
	counts := make([]int, 0, len(group))
	var email, call, meeting, note, form int
	for _, j := range group {
		counts = append(counts, len(j.Touchpoints))
		m.ChannelCounts[channel(j)]++

		kinds := map[string]bool{}
		for _, tp := range j.Touchpoints {
			m.KindCounts[tp.Kind]++
			kinds[tp.Kind] = true
		}
		if kinds[models.KindEmail] {
			email++
		}
		if kinds[models.KindCall] {
			call++
		}
		if kinds[models.KindMeeting] {
			meeting++
		}
		if kinds[models.KindNote] {
			note++
		}
		if kinds[models.KindFirstFormSubmit] || kinds[models.KindFormSubmit] {
			form++
		}

		if j.FirstTouch != nil && j.Signup != nil {
			if d, ok := a.span(j.Company, "signup", *j.FirstTouch, *j.Signup); ok {
				m.SignupDays = append(m.SignupDays, d)
			}
		}
		if closed := CloseDate(j.Touchpoints); j.FirstTouch != nil && closed != nil {
			if d, ok := a.span(j.Company, "close", *j.FirstTouch, *closed); ok {
				m.CloseDays = append(m.CloseDays, d)
			}
		}
	}

	m.AvgTouchpoints = round2(meanInt(counts))
	m.AvgDaysToSignup = round2(meanInt(m.SignupDays))
	m.AvgDaysToClose = round2(meanInt(m.CloseDays))
	sort.Ints(counts)
	m.MedianTouchpoints = counts[len(counts)/2]

	n := float64(len(group))
	m.HasEmail = round3(float64(email) / n)
	m.HasCall = round3(float64(call) / n)
	m.HasMeeting = round3(float64(meeting) / n)
	m.HasNote = round3(float64(note) / n)
	m.HasForm = round3(float64(form) / n)
	return m
}

// CloseDate is the first dated close to Closed Won, else the first dated
// close of any outcome.
func CloseDate(tps []models.Touchpoint) *time.Time {
	var anyClose *time.Time
	for i := range tps {
		tp := tps[i]
		if tp.Kind != models.KindDealClosed || tp.Timestamp == nil {
			continue
		}
		if tp.Stage == "Closed Won" || strings.Contains(tp.Detail, "Closed Won") {
			return tp.Timestamp
		}
		if anyClose == nil {
			anyClose = tp.Timestamp
		}
	}
	return anyClose
}

// span returns whole days from a to b. Negative spans mean out-of-order
// data; they are logged and excluded.
func (a *Analyzer) span(company, what string, from, to time.Time) (int, bool) {
	d := touchpoint.DaysBetween(from, to)
	if d < 0 {
		a.log.Warn("negative day span excluded",
			slog.String("company", company),
			slog.String("span", what),
			slog.Int("days", d))
		return 0, false
	}
	return d, true
}

// ChannelOutcomes counts outcomes per acquisition channel, largest channel
// first.
func (a *Analyzer) ChannelOutcomes(journeys []models.CustomerJourney) []models.ChannelOutcome {
	idx := map[string]int{}
	var out []models.ChannelOutcome
	for _, j := range journeys {
		ch := channel(j)
		i, ok := idx[ch]
		if !ok {
			out = append(out, models.ChannelOutcome{Channel: ch, Outcomes: map[string]int{}})
			i = len(out) - 1
			idx[ch] = i
		}
		out[i].Total++
		out[i].Outcomes[Outcome(j.DealStage)]++
	}
	for i := range out {
		out[i].WinRate = round2(100 * float64(out[i].Outcomes[CohortClosedWon]) / float64(out[i].Total))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

func meanInt(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
func round3(f float64) float64 { return math.Round(f*1000) / 1000 }
