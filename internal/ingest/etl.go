package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AngelCh415/touchpoints/internal/crm"
	"github.com/AngelCh415/touchpoints/internal/instrument"
	"github.com/AngelCh415/touchpoints/internal/metrics"
	"github.com/AngelCh415/touchpoints/internal/models"
	"github.com/AngelCh415/touchpoints/internal/store"
	"github.com/AngelCh415/touchpoints/internal/touchpoint"
	"github.com/AngelCh415/touchpoints/internal/utils"
)

// Fetcher is the CRM surface the batch needs. *crm.Client implements it.
type Fetcher interface {
	Ping(ctx context.Context) error
	FindContact(ctx context.Context, email string) (*models.CRMContact, error)
	Engagements(ctx context.Context, contactID string, limit int) []models.Engagement
	SearchDeals(ctx context.Context, company string) ([]models.DealSummary, error)
	ResolveDealIDs(ctx context.Context, dealName, company string) ([]crm.DealRef, error)
	DealHistory(ctx context.Context, ref crm.DealRef) (models.DealHistory, error)
}

const (
	DefaultMaxDeals  = 10
	minKnownDeals    = 2
	resolveDealLimit = 5
)

type Options struct {
	MaxEngagements int
	MaxDeals       int
	DetailMaxLen   int
}

type ETL struct {
	f    Fetcher
	st   *store.MemoryStore
	norm *touchpoint.Normalizer
	log  *slog.Logger
	opts Options
}

func NewETL(f Fetcher, st *store.MemoryStore, log *slog.Logger, opts Options) *ETL {
	if opts.MaxDeals <= 0 {
		opts.MaxDeals = DefaultMaxDeals
	}
	if opts.MaxEngagements <= 0 {
		opts.MaxEngagements = touchpoint.DefaultMaxEngagements
	}
	if log == nil {
		log = slog.Default()
	}
	norm := touchpoint.NewNormalizer(touchpoint.Options{
		DetailMaxLen:   opts.DetailMaxLen,
		MaxEngagements: opts.MaxEngagements,
	}, log)
	return &ETL{f: f, st: st, norm: norm, log: log, opts: opts}
}

type RunResult struct {
	RunID       string        `json:"run_id"`
	Customers   int           `json:"customers"`
	Touchpoints int           `json:"touchpoints"`
	Took        time.Duration `json:"took_ns"`
}

// Run assembles a journey for every customer, one at a time, and replaces
// the store contents with the result. The CRM is pinged first; a customer
// whose calls fail keeps whatever data could be fetched.
func (e *ETL) Run(ctx context.Context, customers []models.CustomerRecord) (RunResult, []models.CustomerJourney, error) {
	res := RunResult{RunID: uuid.NewString()}
	log := e.log.With(slog.String("run_id", res.RunID))
	start := time.Now()

	if err := e.f.Ping(ctx); err != nil {
		return res, nil, fmt.Errorf("crm precondition: %w", err)
	}
	log.Info("batch started", slog.Int("customers", len(customers)))

	journeys := make([]models.CustomerJourney, 0, len(customers))
	for i, c := range customers {
		if err := ctx.Err(); err != nil {
			return res, nil, err
		}
		j := e.Journey(ctx, c)
		journeys = append(journeys, j)
		res.Touchpoints += j.TotalTouchpoint
		log.Info("customer assembled",
			slog.Int("n", i+1),
			slog.Int("of", len(customers)),
			slog.String("company", j.Company),
			slog.Int("touchpoints", j.TotalTouchpoint))
	}

	e.st.Replace(journeys)
	res.Customers = len(journeys)
	res.Took = time.Since(start)
	instrument.Run(res.Took)
	log.Info("batch complete",
		slog.Int("customers", res.Customers),
		slog.Int("touchpoints", res.Touchpoints),
		slog.Duration("took", res.Took))
	return res, journeys, nil
}

// Journey fetches and normalizes a single customer.
func (e *ETL) Journey(ctx context.Context, c models.CustomerRecord) models.CustomerJourney {
	log := e.log.With(slog.String("company", c.Company))
	in := touchpoint.Input{Company: c.Company}
	var details []models.ContactDetail

	for _, lc := range c.Contacts {
		email := strings.ToLower(strings.TrimSpace(lc.Email))
		if email == "" {
			continue
		}
		ci := touchpoint.ContactInput{Email: email, SignupAt: lc.Created}
		contact, err := e.f.FindContact(ctx, email)
		switch {
		case errors.Is(err, crm.ErrNotFound):
			log.Info("contact not in crm", slog.String("email", utils.RedactEmail(email)))
		case err != nil:
			log.Warn("contact lookup failed", slog.String("email", utils.RedactEmail(email)), slog.String("err", err.Error()))
		default:
			ci.CRM = contact
			ci.Engagements = e.f.Engagements(ctx, contact.ID, e.opts.MaxEngagements)
			details = append(details, models.ContactDetail{Email: email, CRMID: contact.ID, Props: contact.Properties})
		}
		in.Contacts = append(in.Contacts, ci)
	}

	in.Deals = e.deals(ctx, log, c)
	for _, ref := range e.dealRefs(ctx, log, c.Company, in.Deals) {
		h, err := e.f.DealHistory(ctx, ref)
		if err != nil {
			log.Warn("deal history failed", slog.String("deal_id", ref.ID), slog.String("err", err.Error()))
			continue
		}
		in.Histories = append(in.Histories, h)
	}

	tps := touchpoint.Canonical(e.norm.Normalize(in))
	for _, tp := range tps {
		instrument.Touchpoint(tp.Kind)
	}

	dealStage := touchpoint.StageLabel(strings.TrimSpace(c.DealStage))
	cohort := metrics.Cohort(dealStage)
	instrument.Customer(cohort)
	if details == nil {
		details = []models.ContactDetail{}
	}
	return models.CustomerJourney{
		Company:         c.Company,
		AccountID:       c.AccountID,
		LifecycleStage:  coalesce(c.LifecycleStage, "Unknown"),
		DealStage:       dealStage,
		DealAmount:      c.DealAmount,
		FirstTouch:      touchpoint.ParseTimePtr(c.FirstTouch),
		Signup:          touchpoint.ParseTimePtr(c.Signup),
		Channel:         coalesce(c.Channel, "Unknown"),
		Touchpoints:     tps,
		ContactDetails:  details,
		TotalTouchpoint: len(tps),
		Cohort:          cohort,
	}
}

// deals returns the known deals, topped up by a CRM search when fewer than
// two are known. Searched deals are merged by name.
func (e *ETL) deals(ctx context.Context, log *slog.Logger, c models.CustomerRecord) []models.DealSummary {
	deals := append([]models.DealSummary(nil), c.Deals...)
	if len(deals) >= minKnownDeals {
		return deals
	}
	found, err := e.f.SearchDeals(ctx, c.Company)
	if err != nil {
		log.Warn("deal search failed", slog.String("err", err.Error()))
		return deals
	}
	names := make(map[string]bool, len(deals))
	for _, d := range deals {
		names[d.Name] = true
	}
	for _, d := range found {
		if names[d.Name] {
			continue
		}
		names[d.Name] = true
		deals = append(deals, d)
	}
	return deals
}

// dealRefs lists the deals whose history is fetched: those with a known id
// or, when none has one, ids resolved by name. Ids are deduplicated and
// capped at MaxDeals.
func (e *ETL) dealRefs(ctx context.Context, log *slog.Logger, company string, deals []models.DealSummary) []crm.DealRef {
	var refs []crm.DealRef
	for _, d := range deals {
		if d.ID != "" {
			refs = append(refs, crm.DealRef{Name: d.Name, ID: d.ID})
		}
	}
	if len(refs) == 0 {
		for i, d := range deals {
			if i == resolveDealLimit {
				break
			}
			if d.Name == "" {
				continue
			}
			found, err := e.f.ResolveDealIDs(ctx, d.Name, company)
			if err != nil {
				log.Warn("deal id lookup failed", slog.String("deal", d.Name), slog.String("err", err.Error()))
				continue
			}
			refs = append(refs, found...)
		}
	}

	seen := make(map[string]bool, len(refs))
	out := refs[:0]
	for _, r := range refs {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	if len(out) > e.opts.MaxDeals {
		out = out[:e.opts.MaxDeals]
	}
	return out
}

func coalesce(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
