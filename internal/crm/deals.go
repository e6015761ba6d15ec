package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/AngelCh415/touchpoints/internal/models"
	"github.com/AngelCh415/touchpoints/internal/touchpoint"
)

var dealProperties = []string{
	"dealname", "dealstage", "pipeline", "amount", "closedate", "createdate",
	"hs_deal_stage_probability", "hubspot_owner_id",
}

// SignificantWords returns the words of a company name longer than three
// characters, or the first word when none qualify.
func SignificantWords(company string) []string {
	fields := strings.Fields(company)
	var out []string
	for _, w := range fields {
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	if len(out) == 0 && len(fields) > 0 {
		out = fields[:1]
	}
	return out
}

// matchesCompany reports whether a deal name refers to the company.
func matchesCompany(dealName, company string, words []string) bool {
	dn := strings.ToLower(dealName)
	if strings.Contains(dn, strings.ToLower(company)) {
		return true
	}
	for _, w := range words {
		if strings.Contains(dn, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// SearchDeals finds deals whose name mentions the company. Names shorter
// than three characters are not searched.
func (c *Client) SearchDeals(ctx context.Context, company string) ([]models.DealSummary, error) {
	if len(company) < 3 {
		return nil, nil
	}
	words := SignificantWords(company)
	term := company
	if len(words) > 0 {
		term = words[0]
	}
	var resp searchResponse
	err := c.call(ctx, "deals.search", http.MethodPost, "/crm/v3/objects/deals/search",
		search("dealname", "CONTAINS_TOKEN", term, dealProperties, 50), &resp)
	if err != nil {
		return nil, fmt.Errorf("search deals for %q: %w", company, err)
	}
	var out []models.DealSummary
	for _, r := range resp.Results {
		p := r.props()
		if p["dealname"] == "" || !matchesCompany(p["dealname"], company, words) {
			continue
		}
		out = append(out, models.DealSummary{
			ID:      r.ID,
			Name:    p["dealname"],
			Stage:   touchpoint.StageLabel(p["dealstage"]),
			Amount:  models.FlexString(p["amount"]),
			Created: p["createdate"],
			Closed:  p["closedate"],
		})
	}
	return out, nil
}

type DealRef struct {
	Name string
	ID   string
}

// ResolveDealIDs searches deal ids by the leading word of a known deal name,
// keeping results that mention the company.
func (c *Client) ResolveDealIDs(ctx context.Context, dealName, company string) ([]DealRef, error) {
	word := dealName
	if strings.Contains(dealName, " ") {
		f := strings.Fields(strings.SplitN(dealName, " - ", 2)[0])
		if len(f) == 0 {
			return nil, nil
		}
		word = f[0]
	}
	if len(word) <= 3 {
		return nil, nil
	}
	var resp searchResponse
	err := c.call(ctx, "deals.search", http.MethodPost, "/crm/v3/objects/deals/search",
		search("dealname", "CONTAINS_TOKEN", word, []string{"dealname"}, 10), &resp)
	if err != nil {
		return nil, fmt.Errorf("resolve deal %q: %w", dealName, err)
	}
	companyLower := strings.ToLower(company)
	var words []string
	for _, w := range strings.Fields(companyLower) {
		if len(w) > 3 {
			words = append(words, w)
		}
	}
	var out []DealRef
	for _, r := range resp.Results {
		name := r.props()["dealname"]
		if matchesCompany(name, companyLower, words) {
			out = append(out, DealRef{Name: name, ID: r.ID})
		}
	}
	return out, nil
}

type dealWithHistory struct {
	ID                    string                     `json:"id"`
	PropertiesWithHistory map[string]json.RawMessage `json:"propertiesWithHistory"`
}

// DealHistory fetches the stage and amount change history of a deal.
func (c *Client) DealHistory(ctx context.Context, ref DealRef) (models.DealHistory, error) {
	q := url.Values{}
	q.Set("propertiesWithHistory", "dealstage,amount,closedate")
	var d dealWithHistory
	path := fmt.Sprintf("/crm/v3/objects/deals/%s?%s", url.PathEscape(ref.ID), q.Encode())
	if err := c.call(ctx, "deals.history", http.MethodGet, path, nil, &d); err != nil {
		return models.DealHistory{}, fmt.Errorf("deal history %s: %w", ref.ID, err)
	}
	return models.DealHistory{
		DealID: ref.ID,
		Name:   ref.Name,
		Stage:  parseHistory(d.PropertiesWithHistory["dealstage"]),
		Amount: parseHistory(d.PropertiesWithHistory["amount"]),
	}, nil
}

type wireHistoryEntry struct {
	Timestamp  string            `json:"timestamp"`
	Value      models.FlexString `json:"value"`
	SourceType string            `json:"sourceType"`
}

// parseHistory accepts either a bare entry list or {"history": [...]}.
// Anything else yields no entries.
func parseHistory(raw json.RawMessage) []models.HistoryEntry {
	if len(raw) == 0 {
		return nil
	}
	var entries []wireHistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		var wrapped struct {
			History []wireHistoryEntry `json:"history"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil
		}
		entries = wrapped.History
	}
	out := make([]models.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.HistoryEntry{Timestamp: e.Timestamp, Value: e.Value.String(), SourceType: e.SourceType})
	}
	return out
}
