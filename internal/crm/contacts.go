package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/AngelCh415/touchpoints/internal/models"
	"github.com/AngelCh415/touchpoints/internal/touchpoint"
	"github.com/AngelCh415/touchpoints/internal/utils"
)

// ContactProperties is the fixed attribute set requested for every contact.
var ContactProperties = []string{
	"email", "firstname", "lastname", "company", "lifecyclestage",
	"hs_analytics_first_timestamp", "hs_analytics_source",
	"hs_analytics_source_data_1", "hs_analytics_source_data_2",
	"hs_analytics_first_url", "hs_analytics_first_referrer",
	"hs_analytics_num_page_views", "hs_analytics_num_visits",
	"hs_analytics_num_event_completions",
	"num_conversion_events", "recent_conversion_event_name",
	"recent_conversion_date", "first_conversion_event_name",
	"first_conversion_date",
	"hs_email_optout", "hs_email_open", "hs_email_click",
	"hs_email_bounce", "hs_email_delivered",
	"hs_sequences_enrolled_count", "hs_sequences_actively_enrolled_count",
	"notes_last_updated", "num_associated_deals",
	"num_notes", "num_contacted_notes",
	"hs_lifecyclestage_lead_date",
	"hs_lifecyclestage_opportunity_date",
	"hs_lifecyclestage_customer_date",
	"hs_sa_first_engagement_date",
	"hs_last_sales_activity_date",
	"hs_latest_meeting_activity",
	"createdate",
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
}

type object struct {
	ID         string                       `json:"id"`
	CreatedAt  string                       `json:"createdAt"`
	Properties map[string]models.FlexString `json:"properties"`
}

type searchResponse struct {
	Results []object `json:"results"`
}

func (o object) props() map[string]string {
	out := make(map[string]string, len(o.Properties))
	for k, v := range o.Properties {
		out[k] = v.String()
	}
	return out
}

func search(propertyName, operator, value string, props []string, limit int) searchRequest {
	return searchRequest{
		FilterGroups: []filterGroup{{Filters: []filter{{PropertyName: propertyName, Operator: operator, Value: value}}}},
		Properties:   props,
		Limit:        limit,
	}
}

// FindContact looks a contact up by email. It returns ErrNotFound when the
// CRM has no match.
func (c *Client) FindContact(ctx context.Context, email string) (*models.CRMContact, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var resp searchResponse
	err := c.call(ctx, "contacts.search", http.MethodPost, "/crm/v3/objects/contacts/search",
		search("email", "EQ", email, ContactProperties, 1), &resp)
	if err != nil {
		return nil, fmt.Errorf("search contact %s: %w", utils.RedactEmail(email), err)
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	r := resp.Results[0]
	return &models.CRMContact{ID: r.ID, Properties: r.props()}, nil
}

type association struct {
	ID         models.FlexString `json:"id"`
	ToObjectID models.FlexString `json:"toObjectId"`
}

type associationResponse struct {
	Results []association `json:"results"`
}

type engagementRef struct {
	typ string
	id  string
}

// Engagements returns up to limit engagement records associated with a
// contact. A failing association or detail lookup is logged and skipped.
func (c *Client) Engagements(ctx context.Context, contactID string, limit int) []models.Engagement {
	var refs []engagementRef
	for _, typ := range touchpoint.EngagementTypes {
		var resp associationResponse
		path := fmt.Sprintf("/crm/v3/objects/contacts/%s/associations/%s?limit=100", url.PathEscape(contactID), typ)
		if err := c.call(ctx, "contacts.associations", http.MethodGet, path, nil, &resp); err != nil {
			c.log.Warn("associations lookup failed", slog.String("contact_id", contactID), slog.String("type", typ), slog.String("err", err.Error()))
			continue
		}
		for _, a := range resp.Results {
			id := a.ID.String()
			if id == "" {
				id = a.ToObjectID.String()
			}
			if id != "" {
				refs = append(refs, engagementRef{typ: typ, id: id})
			}
		}
	}
	if limit > 0 && len(refs) > limit {
		c.log.Debug("engagements capped", slog.String("contact_id", contactID), slog.Int("found", len(refs)), slog.Int("kept", limit))
		refs = refs[:limit]
	}

	out := make([]models.Engagement, 0, len(refs))
	for _, ref := range refs {
		e, err := c.Engagement(ctx, ref.typ, ref.id)
		if err != nil {
			c.log.Warn("engagement lookup failed", slog.String("type", ref.typ), slog.String("id", ref.id), slog.String("err", err.Error()))
			continue
		}
		out = append(out, e)
	}
	return out
}

func (c *Client) Engagement(ctx context.Context, typ, id string) (models.Engagement, error) {
	q := url.Values{}
	q.Set("properties", strings.Join(touchpoint.EngagementProperties(typ), ","))
	path := fmt.Sprintf("/crm/v3/objects/%s/%s?%s", typ, url.PathEscape(id), q.Encode())
	var o object
	if err := c.call(ctx, "engagements.get", http.MethodGet, path, nil, &o); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Engagement{}, ErrNotFound
		}
		return models.Engagement{}, fmt.Errorf("get %s %s: %w", typ, id, err)
	}
	return models.Engagement{Type: typ, ID: o.ID, CreatedAt: o.CreatedAt, Properties: o.props()}, nil
}
