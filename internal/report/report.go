// Package report renders journeys and their analysis as text tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/AngelCh415/touchpoints/internal/metrics"
	"github.com/AngelCh415/touchpoints/internal/models"
	"github.com/AngelCh415/touchpoints/internal/touchpoint"
)

type Mode int

const (
	ASCII Mode = iota
	Markdown
)

const (
	// gaps longer than this are flagged in timelines
	timelineGapWarnDays = 7
	timelineDetailLen   = 100
)

type Options struct {
	Mode      Mode
	Timelines bool
}

type renderer struct {
	w    io.Writer
	opts Options
	err  error
}

// Render writes the full report: optional per-customer timelines followed
// by the cohort and falloff sections.
func Render(w io.Writer, journeys []models.CustomerJourney, a metrics.Analysis, opts Options) error {
	r := &renderer{w: w, opts: opts}
	if opts.Timelines {
		for _, j := range journeys {
			r.timeline(j)
		}
	}
	r.cohorts(a.Cohorts)
	r.channels(a.Channels)
	r.transitions(a.Transitions)
	r.stallPoints(a.StallPoints)
	r.gapStats(a.GapStats)
	r.largestGaps(a.LargestGaps)
	r.speed(a.Speed)
	return r.err
}

func (r *renderer) newTable(title string) table.Writer {
	t := table.NewWriter()
	if r.opts.Mode == ASCII {
		t.SetStyle(table.StyleLight)
	}
	t.SetTitle(title)
	return t
}

func (r *renderer) flush(t table.Writer) {
	if r.err != nil {
		return
	}
	var out string
	if r.opts.Mode == Markdown {
		out = t.RenderMarkdown()
	} else {
		out = t.Render()
	}
	_, r.err = fmt.Fprintf(r.w, "%s\n\n", out)
}

func (r *renderer) timeline(j models.CustomerJourney) {
	deal := j.DealStage
	if deal == "" {
		deal = "None"
	}
	t := r.newTable(fmt.Sprintf("%s | %s | Deal: %s | %d touchpoints | Source: %s",
		strings.ToUpper(j.Company), j.LifecycleStage, deal, len(j.Touchpoints), j.Channel))
	t.AppendHeader(table.Row{"", "Date", "Type", "Detail"})
	if len(j.Touchpoints) == 0 {
		t.AppendRow(table.Row{"", "", "", "(no touchpoints recorded)"})
	}
	for i, tp := range j.Touchpoints {
		t.AppendRow(table.Row{Marker(tp), shortDate(tp), tp.Kind, touchpoint.Truncate(tp.Detail, timelineDetailLen)})
		if i+1 < len(j.Touchpoints) {
			next := j.Touchpoints[i+1]
			if tp.Timestamp != nil && next.Timestamp != nil {
				if gap := touchpoint.DaysBetween(*tp.Timestamp, *next.Timestamp); gap > timelineGapWarnDays {
					t.AppendRow(table.Row{"", "", "", fmt.Sprintf("!! %d day gap", gap)})
				}
			}
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: timelineDetailLen}})
	r.flush(t)
}

// Marker is the two-character timeline glyph for a touchpoint.
func Marker(tp models.Touchpoint) string {
	switch {
	case strings.Contains(tp.Kind, "First Touch"):
		return ">>"
	case strings.Contains(tp.Kind, "Signup"):
		return "++"
	case strings.Contains(tp.Detail, "Closed Won"):
		return "$$"
	case strings.Contains(tp.Detail, "Churn"):
		return "XX"
	case strings.Contains(tp.Kind, "Deal"):
		return "%%"
	case strings.Contains(tp.Kind, "Email"):
		return "@@"
	case strings.Contains(tp.Kind, "Call"):
		return "##"
	case strings.Contains(tp.Kind, "Meeting"):
		return "<<"
	case strings.Contains(tp.Kind, "Note"):
		return "--"
	case strings.Contains(tp.Kind, "Lifecycle"):
		return "^^"
	}
	return ""
}

func shortDate(tp models.Touchpoint) string {
	if tp.Timestamp == nil {
		return "Unknown date"
	}
	return tp.Timestamp.Format("Jan 02, 2006")
}

func pct(f float64) string { return fmt.Sprintf("%.0f%%", 100*f) }

func (r *renderer) cohorts(cs []models.CohortMetrics) {
	if len(cs) == 0 {
		return
	}
	t := r.newTable("Cohort comparison")
	header := table.Row{"Metric"}
	for _, c := range cs {
		header = append(header, c.Label)
	}
	t.AppendHeader(header)
	row := func(name string, f func(models.CohortMetrics) any) {
		out := table.Row{name}
		for _, c := range cs {
			out = append(out, f(c))
		}
		t.AppendRow(out)
	}
	row("Customers", func(c models.CohortMetrics) any { return c.Count })
	row("Avg touchpoints", func(c models.CohortMetrics) any { return fmt.Sprintf("%.1f", c.AvgTouchpoints) })
	row("Median touchpoints", func(c models.CohortMetrics) any { return c.MedianTouchpoints })
	row("Avg days to signup", func(c models.CohortMetrics) any { return fmt.Sprintf("%.0f", c.AvgDaysToSignup) })
	row("Avg days to close", func(c models.CohortMetrics) any {
		if len(c.CloseDays) == 0 {
			return "-"
		}
		return fmt.Sprintf("%.0f", c.AvgDaysToClose)
	})
	row("Had emails", func(c models.CohortMetrics) any { return pct(c.HasEmail) })
	row("Had calls", func(c models.CohortMetrics) any { return pct(c.HasCall) })
	row("Had meetings", func(c models.CohortMetrics) any { return pct(c.HasMeeting) })
	row("Had notes", func(c models.CohortMetrics) any { return pct(c.HasNote) })
	row("Had form submissions", func(c models.CohortMetrics) any { return pct(c.HasForm) })
	row("Top channel", func(c models.CohortMetrics) any { return topKey(c.ChannelCounts) })
	cfg := make([]table.ColumnConfig, 0, len(cs))
	for i := range cs {
		cfg = append(cfg, table.ColumnConfig{Number: i + 2, Align: text.AlignRight})
	}
	t.SetColumnConfigs(cfg)
	r.flush(t)
}

func topKey(m map[string]int) string {
	best, n := "-", 0
	for k, v := range m {
		if v > n || (v == n && k < best) {
			best, n = k, v
		}
	}
	return best
}

func (r *renderer) channels(cs []models.ChannelOutcome) {
	if len(cs) == 0 {
		return
	}
	t := r.newTable("Acquisition channel -> outcome")
	t.AppendHeader(table.Row{"Channel", "Customers", "Outcomes", "Win rate"})
	for _, c := range cs {
		type kv struct {
			k string
			v int
		}
		outs := make([]kv, 0, len(c.Outcomes))
		for k, v := range c.Outcomes {
			outs = append(outs, kv{k, v})
		}
		sort.Slice(outs, func(i, j int) bool {
			if outs[i].v != outs[j].v {
				return outs[i].v > outs[j].v
			}
			return outs[i].k < outs[j].k
		})
		parts := make([]string, len(outs))
		for i, o := range outs {
			parts[i] = fmt.Sprintf("%s: %d", o.k, o.v)
		}
		t.AppendRow(table.Row{c.Channel, c.Total, strings.Join(parts, ", "), fmt.Sprintf("%.0f%%", c.WinRate)})
	}
	r.flush(t)
}

func (r *renderer) transitions(ts []models.StageTransition) {
	if len(ts) == 0 {
		return
	}
	t := r.newTable("Stage transitions")
	t.AppendHeader(table.Row{"From", "To", "Count"})
	for _, s := range ts {
		t.AppendRow(table.Row{s.From, s.To, s.Count})
	}
	r.flush(t)
}

func (r *renderer) stallPoints(sc []models.StageCount) {
	if len(sc) == 0 {
		return
	}
	t := r.newTable("Current stage of stalled deals")
	t.AppendHeader(table.Row{"Stage", "Customers"})
	for _, s := range sc {
		t.AppendRow(table.Row{s.Stage, s.Count})
	}
	r.flush(t)
}

func (r *renderer) gapStats(gs []models.GapStats) {
	if len(gs) == 0 {
		return
	}
	t := r.newTable("Engagement gaps")
	t.AppendHeader(table.Row{"Cohort", "Gaps", "Avg days", "Min", "Max", "> 14 days", "> 30 days"})
	for _, g := range gs {
		t.AppendRow(table.Row{g.Cohort, g.Count, fmt.Sprintf("%.0f", g.AvgDays), g.MinDays, g.MaxDays, pct(g.Over14Frac), pct(g.Over30Frac)})
	}
	r.flush(t)
}

func (r *renderer) largestGaps(gs []models.TouchpointGap) {
	if len(gs) == 0 {
		return
	}
	t := r.newTable(fmt.Sprintf("Largest engagement gaps (> %d days)", metrics.LargeGapDays))
	t.AppendHeader(table.Row{"Company", "Days", "From", "To", "Outcome"})
	for _, g := range gs {
		t.AppendRow(table.Row{g.Company, g.GapDays, g.FromKind, g.ToKind, g.Outcome})
	}
	r.flush(t)
}

func (r *renderer) speed(bs []models.SpeedBucket) {
	if len(bs) == 0 {
		return
	}
	t := r.newTable("First touch -> platform signup")
	t.AppendHeader(table.Row{"Speed", "Customers", "Closed Won", "Win rate", "Companies"})
	for _, b := range bs {
		members := make([]string, len(b.Companies))
		for i, c := range b.Companies {
			members[i] = c + " (" + b.Outcomes[i] + ")"
		}
		t.AppendRow(table.Row{b.Label, b.Total, b.ClosedWon, fmt.Sprintf("%.0f%%", b.WinRate), strings.Join(members, ", ")})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 5, WidthMax: 80}})
	r.flush(t)
}
