package metrics

import (
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/AngelCh415/touchpoints/internal/models"
	"github.com/AngelCh415/touchpoints/internal/store"
)

// Analyzer computes the cohort and falloff reports over a batch of
// journeys. It holds no state between calls.
type Analyzer struct {
	log *slog.Logger
}

func NewAnalyzer(log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{log: log}
}

type Analysis struct {
	Customers   int                      `json:"customers"`
	Cohorts     []models.CohortMetrics   `json:"cohorts"`
	Channels    []models.ChannelOutcome  `json:"channels"`
	Transitions []models.StageTransition `json:"transitions"`
	StallPoints []models.StageCount      `json:"stall_points"`
	GapStats    []models.GapStats        `json:"gap_stats"`
	LargestGaps []models.TouchpointGap   `json:"largest_gaps"`
	Speed       []models.SpeedBucket     `json:"speed"`
}

func (a *Analyzer) Analyze(journeys []models.CustomerJourney) Analysis {
	gaps := a.AllGaps(journeys)
	return Analysis{
		Customers:   len(journeys),
		Cohorts:     a.Cohorts(journeys),
		Channels:    a.ChannelOutcomes(journeys),
		Transitions: Transitions(journeys),
		StallPoints: StallPoints(journeys),
		GapStats:    GapStatsByCohort(gaps),
		LargestGaps: LargestGaps(gaps, LargeGapDays, LargestGapLimit),
		Speed:       a.SpeedBuckets(journeys),
	}
}

// Service answers queries over the journeys held in the store.
type Service struct {
	st *store.MemoryStore
	an *Analyzer
}

func NewService(st *store.MemoryStore, an *Analyzer) *Service { return &Service{st: st, an: an} }
func norm(s string) string                                    { return strings.ToLower(strings.TrimSpace(s)) }

func csvSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range strings.Split(s, ",") {
		p = norm(p)
		if p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

func (s *Service) Analyze() Analysis { return s.an.Analyze(s.st.All()) }

// QueryJourneys filters by cohort and channel (comma separated, case
// insensitive) and pages with limit/offset.
func (s *Service) QueryJourneys(v url.Values) []models.CustomerJourney {
	cohorts := csvSet(v.Get("cohort"))
	channels := csvSet(v.Get("channel"))
	limit := atoiDef(v.Get("limit"), 100)
	offset := atoiDef(v.Get("offset"), 0)

	rows := s.st.Query(func(j models.CustomerJourney) bool {
		if len(cohorts) > 0 {
			if _, ok := cohorts[norm(Cohort(j.DealStage))]; !ok {
				return false
			}
		}
		if len(channels) > 0 {
			if _, ok := channels[norm(channel(j))]; !ok {
				return false
			}
		}
		return true
	})
	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return paginate(rows, limit, offset)
}

func (s *Service) Journey(key string) (models.CustomerJourney, bool) { return s.st.Get(key) }

func (s *Service) Cohorts() []models.CohortMetrics { return s.an.Cohorts(s.st.All()) }

func (s *Service) Channels() []models.ChannelOutcome { return s.an.ChannelOutcomes(s.st.All()) }

func (s *Service) Transitions(v url.Values) []models.StageTransition {
	rows := Transitions(s.st.All())
	limit, offset := clampLimitOffset(atoiDef(v.Get("limit"), 0), atoiDef(v.Get("offset"), 0), len(rows))
	return paginate(rows, limit, offset)
}

type GapReport struct {
	Stats   []models.GapStats      `json:"stats"`
	Largest []models.TouchpointGap `json:"largest"`
}

// Gaps reports gap statistics; min_days and limit tune the largest-gap list.
func (s *Service) Gaps(v url.Values) GapReport {
	gaps := s.an.AllGaps(s.st.All())
	return GapReport{
		Stats:   GapStatsByCohort(gaps),
		Largest: LargestGaps(gaps, atoiDef(v.Get("min_days"), LargeGapDays), atoiDef(v.Get("limit"), LargestGapLimit)),
	}
}

func (s *Service) Speed() []models.SpeedBucket { return s.an.SpeedBuckets(s.st.All()) }

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset > n {
		offset = n
	}
	return limit, offset
}
