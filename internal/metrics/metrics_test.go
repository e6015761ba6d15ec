package metrics

import (
	"bytes"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/touchpoints/internal/models"
	"github.com/AngelCh415/touchpoints/internal/store"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func tp(date, kind, detail string) models.Touchpoint {
	var ts *time.Time
	if date != "" {
		ts = day(date)
	}
	return models.Touchpoint{Timestamp: ts, Kind: kind, Detail: detail}
}

func quiet() *Analyzer { return NewAnalyzer(slog.New(slog.NewTextHandler(io.Discard, nil))) }

func fixture() []models.CustomerJourney {
	won := tp("2024-02-01", models.KindDealClosed, `"Acme Deal" closed: Closed Won`)
	won.Stage = "Closed Won"
	return []models.CustomerJourney{
		{
			Company:    "Acme", AccountID: "t1", DealStage: "Closed Won", Channel: "PAID_SEARCH",
			FirstTouch: day("2024-01-01"), Signup: day("2024-01-08"),
			Touchpoints: []models.Touchpoint{
				tp("2024-01-02", models.KindEmail, "hello"),
				tp("2024-01-05", models.KindCall, "call"),
				won,
			},
		},
		{
			Company:     "Beta", AccountID: "t2", DealStage: "Closed Won", Channel: "ORGANIC",
			FirstTouch:  day("2024-01-01"),
			Touchpoints: []models.Touchpoint{tp("2024-01-03", models.KindNote, "n")},
		},
		{
			Company:    "Gamma", AccountID: "t3", DealStage: "Churn", Channel: "PAID_SEARCH",
			FirstTouch: day("2024-03-10"), Signup: day("2024-03-01"),
		},
		{Company: "Delta", AccountID: "t4", DealStage: "Prospect", Channel: "ORGANIC"},
		{Company: "Eps", AccountID: "t5", Channel: "ORGANIC"},
	}
}

func TestCohortMapping(t *testing.T) {
	cases := map[string]string{
		"Closed Won":            CohortClosedWon,
		"Churn":                 CohortChurned,
		"Closed Lost":           CohortChurned,
		"Demo Scheduled":        CohortStalled,
		"Interested in a pilot": CohortStalled,
		"":                      CohortNoDeal,
		"No Deal":               CohortNoDeal,
		"Prospect":              "",
	}
	for stage, want := range cases {
		assert.Equal(t, want, Cohort(stage), stage)
	}
}

func TestCohorts(t *testing.T) {
	got := quiet().Cohorts(fixture())
	require.Len(t, got, 4)

	won := got[0]
	assert.Equal(t, CohortClosedWon, won.Label)
	assert.Equal(t, 2, won.Count)
	assert.Equal(t, 2.0, won.AvgTouchpoints)
	assert.Equal(t, 3, won.MedianTouchpoints)
	assert.Equal(t, []int{7}, won.SignupDays)
	assert.Equal(t, 7.0, won.AvgDaysToSignup)
	assert.Equal(t, []int{31}, won.CloseDays)
	assert.Equal(t, 0.5, won.HasEmail)
	assert.Equal(t, 0.5, won.HasCall)
	assert.Equal(t, 0.5, won.HasNote)
	assert.Equal(t, 0.0, won.HasMeeting)
	assert.Equal(t, map[string]int{"PAID_SEARCH": 1, "ORGANIC": 1}, won.ChannelCounts)
	assert.Equal(t, 1, won.KindCounts[models.KindEmail])

	churned := got[1]
	assert.Equal(t, 1, churned.Count)
	assert.Empty(t, churned.SignupDays)

	assert.Equal(t, 0, got[2].Count)
	assert.Equal(t, 1, got[3].Count)
}

func TestNegativeSpanIsLogged(t *testing.T) {
	var buf bytes.Buffer
	an := NewAnalyzer(slog.New(slog.NewTextHandler(&buf, nil)))
	an.Cohorts(fixture())
	assert.Contains(t, buf.String(), "negative day span excluded")
	assert.Contains(t, buf.String(), "Gamma")
}

func TestCloseDatePrefersWon(t *testing.T) {
	lost := tp("2024-01-10", models.KindDealClosed, `"Old" closed: Closed Lost`)
	won := tp("2024-02-10", models.KindDealClosed, `"New" closed: Closed Won`)
	assert.Equal(t, day("2024-02-10"), CloseDate([]models.Touchpoint{lost, won}))
	assert.Equal(t, day("2024-01-10"), CloseDate([]models.Touchpoint{lost}))
	assert.Nil(t, CloseDate([]models.Touchpoint{tp("", models.KindDealClosed, "Closed Won")}))
}

func TestChannelOutcomes(t *testing.T) {
	got := quiet().ChannelOutcomes(fixture()[:3])
	want := []models.ChannelOutcome{
		{Channel: "PAID_SEARCH", Total: 2, Outcomes: map[string]int{"Closed Won": 1, "Churn": 1}, WinRate: 50},
		{Channel: "ORGANIC", Total: 1, Outcomes: map[string]int{"Closed Won": 1}, WinRate: 100},
	}
	assert.Empty(t, cmp.Diff(want, got))

	noDeal := quiet().ChannelOutcomes([]models.CustomerJourney{{Company: "x"}})
	assert.Equal(t, map[string]int{CohortNoDeal: 1}, noDeal[0].Outcomes)
	assert.Equal(t, "Unknown", noDeal[0].Channel)
}

func TestGapsSkipExcludedAndZero(t *testing.T) {
	j := models.CustomerJourney{
		Company:   "Acme",
		DealStage: "Demo Scheduled",
		Touchpoints: []models.Touchpoint{
			tp("2024-01-01", models.KindEmail, ""),
			tp("2024-01-20", models.KindLastSalesActivity, ""),
			tp("2024-01-01", models.KindCall, ""),
			tp("2024-01-16", models.KindMeeting, ""),
			tp("", models.KindNote, ""),
		},
	}
	got := quiet().Gaps(j)
	want := []models.TouchpointGap{{
		Company: "Acme", GapDays: 15, FromKind: models.KindCall, ToKind: models.KindMeeting,
		Outcome: "Demo Scheduled", Cohort: CohortStalled,
	}}
	assert.Empty(t, cmp.Diff(want, got))

	single := models.CustomerJourney{Touchpoints: []models.Touchpoint{tp("2024-01-01", models.KindEmail, "")}}
	assert.Empty(t, quiet().Gaps(single))
}

func TestGapsOutOfOrderWarns(t *testing.T) {
	var buf bytes.Buffer
	an := NewAnalyzer(slog.New(slog.NewTextHandler(&buf, nil)))
	j := models.CustomerJourney{Company: "Acme", Touchpoints: []models.Touchpoint{
		tp("2024-02-01", models.KindEmail, ""),
		tp("2024-01-01", models.KindCall, ""),
	}}
	assert.Empty(t, an.Gaps(j))
	assert.Contains(t, buf.String(), "touchpoints out of order")
}

func TestStageOf(t *testing.T) {
	s, ok := StageOf(tp("2024-01-01", models.KindDealStageChange, `"Acme Deal" moved to: Demo Scheduled (via CRM_UI)`))
	require.True(t, ok)
	assert.Equal(t, "Demo Scheduled", s)

	structured := tp("2024-01-01", models.KindDealStageChange, "free text")
	structured.Stage = "Free Trial"
	s, ok = StageOf(structured)
	require.True(t, ok)
	assert.Equal(t, "Free Trial", s)

	_, ok = StageOf(tp("2024-01-01", models.KindDealStageChange, "no marker here"))
	assert.False(t, ok)
	_, ok = StageOf(tp("2024-01-01", models.KindEmail, "moved to: X"))
	assert.False(t, ok)
}

func TestTransitions(t *testing.T) {
	change := func(stage string) models.Touchpoint {
		return tp("2024-01-01", models.KindDealStageChange, `"D" moved to: `+stage+` (via CRM_UI)`)
	}
	journeys := []models.CustomerJourney{
		{Touchpoints: []models.Touchpoint{change("Demo Scheduled"), change("Free Trial"), change("Closed Won")}},
		{Touchpoints: []models.Touchpoint{change("Demo Scheduled"), tp("2024-01-02", models.KindEmail, ""), change("Free Trial")}},
		{Touchpoints: []models.Touchpoint{change("Demo Scheduled")}},
	}
	want := []models.StageTransition{
		{From: "Demo Scheduled", To: "Free Trial", Count: 2},
		{From: "Free Trial", To: "Closed Won", Count: 1},
	}
	assert.Empty(t, cmp.Diff(want, Transitions(journeys)))
}

func TestStallPoints(t *testing.T) {
	journeys := []models.CustomerJourney{
		{DealStage: "On Hold"}, {DealStage: "Free Trial"}, {DealStage: "On Hold"}, {DealStage: "Closed Won"},
	}
	want := []models.StageCount{{Stage: "On Hold", Count: 2}, {Stage: "Free Trial", Count: 1}}
	assert.Empty(t, cmp.Diff(want, StallPoints(journeys)))
}

func TestGapStatsByCohort(t *testing.T) {
	gaps := []models.TouchpointGap{
		{GapDays: 10, Cohort: CohortClosedWon},
		{GapDays: 20, Cohort: CohortClosedWon},
		{GapDays: 40, Cohort: CohortClosedWon},
		{GapDays: 5, Cohort: CohortChurned},
		{GapDays: 99},
	}
	got := GapStatsByCohort(gaps)
	require.Len(t, got, 2)
	assert.Equal(t, models.GapStats{
		Cohort:     CohortClosedWon, Count: 3, AvgDays: 23.33, MaxDays: 40, MinDays: 10,
		Over14Frac: 0.667, Over30Frac: 0.333,
	}, got[0])
	assert.Equal(t, CohortChurned, got[1].Cohort)
	assert.Equal(t, 5, got[1].MaxDays)
}

func TestLargestGaps(t *testing.T) {
	gaps := []models.TouchpointGap{{GapDays: 31}, {GapDays: 45}, {GapDays: 30}, {GapDays: 60}}
	got := LargestGaps(gaps, 30, 0)
	require.Len(t, got, 3)
	assert.Equal(t, []int{60, 45, 31}, []int{got[0].GapDays, got[1].GapDays, got[2].GapDays})
	assert.Len(t, LargestGaps(gaps, 30, 2), 2)
}

func TestSpeedLabel(t *testing.T) {
	cases := map[int]string{
		0:  "Same day (0)", 1: "1-7 days", 7: "1-7 days", 8: "8-30 days", 30: "8-30 days",
		31: "31-90 days", 90: "31-90 days", 91: "90+ days", 400: "90+ days",
	}
	for d, want := range cases {
		assert.Equal(t, want, SpeedLabel(d), d)
	}
}

func TestSpeedBuckets(t *testing.T) {
	journeys := []models.CustomerJourney{
		{Company: "Acme", DealStage: "Closed Won", FirstTouch: day("2024-01-01"), Signup: day("2024-01-08")},
		{Company: "Same", DealStage: "Churn", FirstTouch: day("2024-01-01"), Signup: day("2024-01-01")},
		{Company: "Neg", FirstTouch: day("2024-01-09"), Signup: day("2024-01-01")},
		{Company: "NoSignup", FirstTouch: day("2024-01-01")},
	}
	got := quiet().SpeedBuckets(journeys)
	require.Len(t, got, 5)
	assert.Equal(t, "1-7 days", got[1].Label)
	assert.Equal(t, 1, got[1].Total)
	assert.Equal(t, 1, got[1].ClosedWon)
	assert.Equal(t, 100.0, got[1].WinRate)
	assert.Equal(t, []string{"Acme"}, got[1].Companies)
	assert.Equal(t, 1, got[0].Total)
	assert.Equal(t, 0.0, got[0].WinRate)
	assert.Equal(t, []string{"Churn"}, got[0].Outcomes)
	assert.Equal(t, 0, got[4].Total)
}

func TestAnalyze(t *testing.T) {
	a := quiet().Analyze(fixture())
	assert.Equal(t, 5, a.Customers)
	assert.Len(t, a.Cohorts, 4)
	assert.Len(t, a.Speed, 5)
	require.NotEmpty(t, a.GapStats)
	assert.Equal(t, CohortClosedWon, a.GapStats[0].Cohort)
	assert.Equal(t, 27, a.GapStats[0].MaxDays)
	assert.Empty(t, a.LargestGaps)
}

func TestServiceQueryJourneys(t *testing.T) {
	st := store.NewMemoryStore()
	st.Replace(fixture())
	svc := NewService(st, quiet())

	got := svc.QueryJourneys(url.Values{"cohort": {"closed won"}})
	require.Len(t, got, 2)
	assert.Equal(t, "Acme", got[0].Company)

	got = svc.QueryJourneys(url.Values{"channel": {"organic, paid_search"}, "limit": {"2"}, "offset": {"1"}})
	require.Len(t, got, 2)
	assert.Equal(t, "Beta", got[0].Company)

	assert.Empty(t, svc.QueryJourneys(url.Values{"offset": {"50"}}))

	j, ok := svc.Journey("t3")
	require.True(t, ok)
	assert.Equal(t, "Gamma", j.Company)

	rep := svc.Gaps(url.Values{"min_days": {"1"}})
	assert.NotEmpty(t, rep.Largest)
}
