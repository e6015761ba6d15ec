package touchpoint

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/AngelCh415/touchpoints/internal/models"
)

const DefaultMaxEngagements = 30

// ContactInput is everything known about one contact of a customer. CRM is
// nil when the email has no matching CRM record.
type ContactInput struct {
	Email       string
	SignupAt    string
	CRM         *models.CRMContact
	Engagements []models.Engagement
}

type Input struct {
	Company   string
	Contacts  []ContactInput
	Deals     []models.DealSummary
	Histories []models.DealHistory
}

type Options struct {
	DetailMaxLen   int
	MaxEngagements int
}

type Normalizer struct {
	opts Options
	log  *slog.Logger
}

func NewNormalizer(opts Options, log *slog.Logger) *Normalizer {
	if opts.DetailMaxLen <= 0 {
		opts.DetailMaxLen = DefaultDetailMaxLen
	}
	if opts.MaxEngagements <= 0 {
		opts.MaxEngagements = DefaultMaxEngagements
	}
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{opts: opts, log: log}
}

// collector accumulates touchpoints for one customer, dropping any whose
// date cannot be read.
type collector struct {
	n       *Normalizer
	company string
	out     []models.Touchpoint
	skipped int
}

func (c *collector) add(date, kind, detail string, src models.SourceSystem, contact, stage string) {
	ts, ok := ParseTime(date)
	if !ok {
		c.skipped++
		c.n.log.Debug("touchpoint skipped: unreadable date",
			slog.String("company", c.company), slog.String("type", kind), slog.String("date", date))
		return
	}
	c.out = append(c.out, models.Touchpoint{
		Timestamp: &ts,
		Kind:      kind,
		Detail:    Truncate(detail, c.n.opts.DetailMaxLen),
		Source:    src,
		Contact:   contact,
		Stage:     stage,
	})
}

// Normalize converts one customer's raw CRM and local data into an
// unordered touchpoint set.
func (n *Normalizer) Normalize(in Input) []models.Touchpoint {
	c := &collector{n: n, company: in.Company}
	for _, ct := range in.Contacts {
		n.contact(c, ct)
	}
	for _, h := range in.Histories {
		n.dealHistory(c, h)
	}
	for _, d := range in.Deals {
		n.dealEvents(c, d)
	}
	if c.skipped > 0 {
		n.log.Warn("touchpoints skipped", slog.String("company", in.Company), slog.Int("count", c.skipped))
	}
	return c.out
}

func (n *Normalizer) contact(c *collector, ct ContactInput) {
	email := strings.ToLower(strings.TrimSpace(ct.Email))
	if ct.CRM == nil {
		// Only evidence of this contact is the local account; keep it even
		// without a readable date.
		c.out = append(c.out, models.Touchpoint{
			Timestamp: ParseTimePtr(ct.SignupAt),
			Kind:      models.KindPlatformSignup,
			Detail:    Truncate(email+" created platform account (not found in CRM)", n.opts.DetailMaxLen),
			Source:    models.SourceSignup,
			Contact:   email,
		})
		return
	}
	p := ct.CRM.Properties

	if first := p["hs_analytics_first_timestamp"]; first != "" {
		detail := "Source: " + orDefault(p["hs_analytics_source"], "Unknown")
		if v := p["hs_analytics_source_data_1"]; v != "" {
			detail += " | " + v
		}
		if v := p["hs_analytics_source_data_2"]; v != "" {
			detail += " (" + v + ")"
		}
		if v := p["hs_analytics_first_url"]; v != "" {
			detail += " | URL: " + v
		}
		if v := p["hs_analytics_first_referrer"]; v != "" {
			detail += " | Referrer: " + v
		}
		c.add(first, models.KindFirstTouch, detail, models.SourceAnalytics, email, "")
	}

	for _, lc := range []struct{ field, kind, label string }{
		{"hs_lifecyclestage_lead_date", models.KindBecameLead, "Lead"},
		{"hs_lifecyclestage_opportunity_date", models.KindBecameOpportunity, "Opportunity"},
		{"hs_lifecyclestage_customer_date", models.KindBecameCustomer, "Customer"},
	} {
		if d := p[lc.field]; d != "" {
			c.add(d, lc.kind, fmt.Sprintf("%s lifecycle stage changed to %s", email, lc.label), models.SourceLifecycle, email, "")
		}
	}

	if d := p["hs_sa_first_engagement_date"]; d != "" {
		c.add(d, models.KindFirstSalesEngage, "First sales activity recorded for "+email, models.SourceSales, email, "")
	}
	if d := p["hs_last_sales_activity_date"]; d != "" {
		c.add(d, models.KindLastSalesActivity, "Most recent sales activity for "+email, models.SourceSales, email, "")
	}
	if d := p["hs_latest_meeting_activity"]; d != "" {
		c.add(d, models.KindMeeting, "Meeting with "+email, models.SourceMeetings, email, "")
	}

	firstConv, firstConvDate := p["first_conversion_event_name"], p["first_conversion_date"]
	if firstConv != "" && firstConvDate != "" {
		c.add(firstConvDate, models.KindFirstFormSubmit, "Form: "+firstConv, models.SourceForms, email, "")
	}
	// A single submission shows up as both first and recent conversion.
	recentConv, recentConvDate := p["recent_conversion_event_name"], p["recent_conversion_date"]
	if recentConv != "" && recentConvDate != "" && recentConvDate != firstConvDate {
		c.add(recentConvDate, models.KindFormSubmit, "Form: "+recentConv, models.SourceForms, email, "")
	}

	if d := p["createdate"]; d != "" {
		c.add(d, models.KindCRMContactCreated, email+" added to CRM", models.SourceRecord, email, "")
	}
	if ct.SignupAt != "" {
		c.add(ct.SignupAt, models.KindPlatformSignup, email+" created platform account", models.SourceSignup, email, "")
	}

	engs := ct.Engagements
	if len(engs) > n.opts.MaxEngagements {
		n.log.Debug("engagements capped", slog.String("company", c.company),
			slog.Int("found", len(engs)), slog.Int("kept", n.opts.MaxEngagements))
		engs = engs[:n.opts.MaxEngagements]
	}
	for _, e := range engs {
		kind, detail, dates := formatEngagement(e)
		ts, ok := firstReadable(dates)
		if !ok {
			c.skipped++
			continue
		}
		c.add(ts, kind, detail, models.SourceEngagement, email, "")
	}
}

func (n *Normalizer) dealHistory(c *collector, h models.DealHistory) {
	for _, e := range h.Stage {
		stage := StageLabel(e.Value)
		c.add(e.Timestamp, models.KindDealStageChange,
			fmt.Sprintf("%q moved to: %s (via %s)", h.Name, stage, e.SourceType),
			models.SourceDeal, "", stage)
	}
	for _, e := range h.Amount {
		if e.Value == "" {
			continue
		}
		c.add(e.Timestamp, models.KindDealAmountChanged,
			fmt.Sprintf("%q amount set to $%s", h.Name, e.Value), models.SourceDeal, "", "")
	}
}

func (n *Normalizer) dealEvents(c *collector, d models.DealSummary) {
	name := orDefault(d.Name, "Unknown")
	stage := orDefault(StageLabel(d.Stage), "N/A")
	amount := ""
	if d.Amount != "" {
		amount = " | $" + d.Amount.String()
	}
	if d.Created != "" {
		c.add(d.Created, models.KindDealCreated, fmt.Sprintf("%q created | Stage: %s%s", name, stage, amount), models.SourceDeal, "", "")
	}
	if d.Closed != "" {
		c.add(d.Closed, models.KindDealClosed, fmt.Sprintf("%q closed | Final: %s%s", name, stage, amount), models.SourceDeal, "", StageLabel(d.Stage))
	}
}
