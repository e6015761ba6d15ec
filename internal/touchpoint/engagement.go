package touchpoint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AngelCh415/touchpoints/internal/models"
)

type engagementFormat struct {
	kind  string
	props []string
	// detail builds the touchpoint text. A non-empty start is preferred
	// over the engagement's own timestamp when it parses.
	detail func(p map[string]string) (text, start string)
}

// engagementFormats is keyed by CRM object type.
var engagementFormats = map[string]engagementFormat{
	"emails": {
		kind:  models.KindEmail,
		props: []string{"hs_timestamp", "hs_email_subject", "hs_email_direction", "hs_email_status", "hs_email_text"},
		detail: func(p map[string]string) (string, string) {
			if subj := p["hs_email_subject"]; subj != "" {
				return fmt.Sprintf("[%s] %s", p["hs_email_direction"], subj), ""
			}
			return fmt.Sprintf("[%s] Email", p["hs_email_direction"]), ""
		},
	},
	"calls": {
		kind:  models.KindCall,
		props: []string{"hs_timestamp", "hs_call_title", "hs_call_direction", "hs_call_duration", "hs_call_disposition", "hs_call_body"},
		detail: func(p map[string]string) (string, string) {
			text := orDefault(p["hs_call_title"], "Call")
			if ms, err := strconv.ParseFloat(p["hs_call_duration"], 64); err == nil && ms != 0 {
				text += fmt.Sprintf(" (%ds)", int(ms)/1000)
			}
			if d := p["hs_call_disposition"]; d != "" {
				text += " - " + d
			}
			return text, ""
		},
	},
	"meetings": {
		kind:  models.KindMeeting,
		props: []string{"hs_timestamp", "hs_meeting_title", "hs_meeting_start_time", "hs_meeting_end_time", "hs_meeting_outcome"},
		detail: func(p map[string]string) (string, string) {
			text := orDefault(p["hs_meeting_title"], "Meeting")
			if o := p["hs_meeting_outcome"]; o != "" {
				text += " - " + o
			}
			return text, p["hs_meeting_start_time"]
		},
	},
	"notes": {
		kind:  models.KindNote,
		props: []string{"hs_timestamp", "hs_note_body"},
		detail: func(p map[string]string) (string, string) {
			if body := Truncate(p["hs_note_body"], 150); body != "" {
				return "Note: " + body, ""
			}
			return "Note added", ""
		},
	},
	"tasks": {
		kind:  models.KindTask,
		props: []string{"hs_timestamp", "hs_task_subject", "hs_task_status", "hs_task_body"},
		detail: func(p map[string]string) (string, string) {
			text := "Task: " + p["hs_task_subject"]
			if s := p["hs_task_status"]; s != "" {
				text += " (" + s + ")"
			}
			return text, ""
		},
	},
	"communications": {
		kind:  models.KindCommunication,
		props: []string{"hs_timestamp", "hs_communication_channel_type", "hs_communication_body"},
		detail: func(p map[string]string) (string, string) {
			body := Truncate(p["hs_communication_body"], 100)
			if ch := p["hs_communication_channel_type"]; ch != "" {
				return fmt.Sprintf("[%s] %s", ch, body), ""
			}
			return body, ""
		},
	},
}

// EngagementTypes lists the CRM object types fetched per contact, in fetch order.
var EngagementTypes = []string{"emails", "calls", "meetings", "notes", "tasks", "communications"}

// EngagementProperties returns the property names to request for an engagement type.
func EngagementProperties(typ string) []string {
	if f, ok := engagementFormats[typ]; ok {
		return f.props
	}
	return []string{"hs_timestamp"}
}

// EngagementKind returns the touchpoint kind for a CRM engagement type.
func EngagementKind(typ string) string {
	if f, ok := engagementFormats[typ]; ok {
		return f.kind
	}
	return strings.TrimSuffix(typ, "s")
}

// formatEngagement returns the touchpoint kind and detail plus the candidate
// timestamps in priority order: meeting start, hs_timestamp, record creation.
func formatEngagement(e models.Engagement) (kind, detail string, dates []string) {
	kind = EngagementKind(e.Type)
	var start string
	if f, ok := engagementFormats[e.Type]; ok {
		kind = f.kind
		detail, start = f.detail(e.Properties)
	}
	for _, d := range []string{start, e.Properties["hs_timestamp"], e.CreatedAt} {
		if d != "" {
			dates = append(dates, d)
		}
	}
	return kind, detail, dates
}

// firstReadable returns the first candidate ParseTime accepts.
func firstReadable(dates []string) (string, bool) {
	for _, d := range dates {
		if _, ok := ParseTime(d); ok {
			return d, true
		}
	}
	return "", false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
