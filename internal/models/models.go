package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type SourceSystem string

const (
	SourceEngagement SourceSystem = "CRM Engagement"
	SourceAnalytics  SourceSystem = "CRM Analytics"
	SourceLifecycle  SourceSystem = "CRM Lifecycle"
	SourceSales      SourceSystem = "CRM Sales"
	SourceMeetings   SourceSystem = "CRM Meetings"
	SourceForms      SourceSystem = "CRM Forms"
	SourceRecord     SourceSystem = "CRM Record"
	SourceDeal       SourceSystem = "CRM Deal"
	SourceSignup     SourceSystem = "Platform"
)

// Touchpoint kinds emitted by the normalizer. The set is open: engagement
// kinds and anything read back from a persisted document pass through as-is.
const (
	KindFirstTouch        = "First Touch"
	KindBecameLead        = "Lifecycle: Became Lead"
	KindBecameOpportunity = "Lifecycle: Became Opportunity"
	KindBecameCustomer    = "Lifecycle: Became Customer"
	KindFirstSalesEngage  = "First Sales Engagement"
	KindLastSalesActivity = "Last Sales Activity"
	KindMeeting           = "Meeting"
	KindFirstFormSubmit   = "First Form Submission"
	KindFormSubmit        = "Form Submission"
	KindCRMContactCreated = "CRM Contact Created"
	KindPlatformSignup    = "Platform Signup"
	KindEmail             = "Email"
	KindCall              = "Call"
	KindNote              = "Note"
	KindTask              = "Task"
	KindCommunication     = "Communication"
	KindDealStageChange   = "Deal Stage Change"
	KindDealAmountChanged = "Deal Amount Changed"
	KindDealCreated       = "Deal Created"
	KindDealClosed        = "Deal Closed"
)

// Touchpoint is one observed customer interaction. Timestamp is nil when the
// source date was missing or unparsable. Stage holds the mapped deal stage for
// deal stage changes and closes.
type Touchpoint struct {
	Timestamp *time.Time   `json:"date,omitempty"`
	Kind      string       `json:"type"`
	Detail    string       `json:"detail"`
	Source    SourceSystem `json:"source"`
	Contact   string       `json:"contact,omitempty"`
	Stage     string       `json:"stage,omitempty"`
}

type ContactDetail struct {
	Email string            `json:"email"`
	CRMID string            `json:"crm_id"`
	Props map[string]string `json:"props"`
}

type CustomerJourney struct {
	Company         string          `json:"company"`
	AccountID       string          `json:"tenant_id"`
	LifecycleStage  string          `json:"lifecycle_stage"`
	DealStage       string          `json:"deal_stage"`
	DealAmount      FlexString      `json:"deal_amount,omitempty"`
	FirstTouch      *time.Time      `json:"first_touch,omitempty"`
	Signup          *time.Time      `json:"platform_signup,omitempty"`
	Channel         string          `json:"source"`
	Touchpoints     []Touchpoint    `json:"touchpoints"`
	ContactDetails  []ContactDetail `json:"contact_details"`
	TotalTouchpoint int             `json:"total_touchpoints"`
	Cohort          string          `json:"cohort,omitempty"`
}

// --- local signup dataset ---

type LocalContact struct {
	Email   string `json:"email"`
	Created string `json:"created"`
}

type DealSummary struct {
	ID      string     `json:"_id,omitempty"`
	Name    string     `json:"name"`
	Stage   string     `json:"stage"`
	Amount  FlexString `json:"amount,omitempty"`
	Created string     `json:"created,omitempty"`
	Closed  string     `json:"closed,omitempty"`
}

type CustomerRecord struct {
	Company        string         `json:"company"`
	AccountID      string         `json:"tenant_id"`
	LifecycleStage string         `json:"lifecycle_stage"`
	DealStage      string         `json:"deal_stage"`
	DealAmount     FlexString     `json:"deal_amount"`
	FirstTouch     string         `json:"first_touch"`
	Signup         string         `json:"cognito_signup"`
	Channel        string         `json:"source"`
	Contacts       []LocalContact `json:"contacts"`
	Deals          []DealSummary  `json:"all_deals"`
}

// --- raw CRM entities ---

type CRMContact struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Engagement is one raw engagement record. Type is the CRM object type
// (emails, calls, meetings, notes, tasks, communications).
type Engagement struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	CreatedAt  string            `json:"createdAt"`
	Properties map[string]string `json:"properties"`
}

type HistoryEntry struct {
	Timestamp  string `json:"timestamp"`
	Value      string `json:"value"`
	SourceType string `json:"sourceType"`
}

type DealHistory struct {
	DealID string
	Name   string
	Stage  []HistoryEntry
	Amount []HistoryEntry
}

// --- analysis output ---

type CohortMetrics struct {
	Label             string         `json:"label"`
	Count             int            `json:"count"`
	AvgTouchpoints    float64        `json:"avg_touchpoints"`
	MedianTouchpoints int            `json:"median_touchpoints"`
	AvgDaysToSignup   float64        `json:"avg_days_to_signup"`
	AvgDaysToClose    float64        `json:"avg_days_to_close"`
	SignupDays        []int          `json:"signup_days"`
	CloseDays         []int          `json:"close_days"`
	ChannelCounts     map[string]int `json:"channel_counts"`
	KindCounts        map[string]int `json:"touchpoint_type_counts"`
	HasEmail          float64        `json:"has_email"`
	HasCall           float64        `json:"has_call"`
	HasMeeting        float64        `json:"has_meeting"`
	HasNote           float64        `json:"has_note"`
	HasForm           float64        `json:"has_form"`
}

type TouchpointGap struct {
	Company  string `json:"company"`
	GapDays  int    `json:"gap_days"`
	FromKind string `json:"from_type"`
	ToKind   string `json:"to_type"`
	Outcome  string `json:"outcome"`
	Cohort   string `json:"cohort,omitempty"`
}

type ChannelOutcome struct {
	Channel  string         `json:"channel"`
	Total    int            `json:"total"`
	Outcomes map[string]int `json:"outcomes"`
	WinRate  float64        `json:"win_rate"`
}

type StageTransition struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

type GapStats struct {
	Cohort     string  `json:"cohort"`
	Count      int     `json:"count"`
	AvgDays    float64 `json:"avg_days"`
	MaxDays    int     `json:"max_days"`
	MinDays    int     `json:"min_days"`
	Over14Frac float64 `json:"over_14_frac"`
	Over30Frac float64 `json:"over_30_frac"`
}

type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

type SpeedBucket struct {
	Label     string   `json:"label"`
	Total     int      `json:"total"`
	ClosedWon int      `json:"closed_won"`
	WinRate   float64  `json:"win_rate"`
	Companies []string `json:"companies"`
	Outcomes  []string `json:"outcomes"`
}

// FlexString accepts a JSON string, number or null. CRM exports and
// hand-edited datasets disagree on how amounts are typed.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	// numbers and booleans keep their literal text
	*f = FlexString(b)
	return nil
}

func (f FlexString) String() string { return string(f) }
