package touchpoint

// stageLabels maps CRM-internal deal stage keys and pipeline ids to the
// labels the sales team uses.
var stageLabels = map[string]string{
	"appointmentscheduled":  "Prospect",
	"1499838171":            "Approached",
	"qualifiedtobuy":        "Lead",
	"presentationscheduled": "Demo Scheduled",
	"1955958510":            "No-Show/Reschedule Demo",
	"decisionmakerboughtin": "Demo Follow-Up",
	"1955580622":            "Budgetary quote sent",
	"1559099077":            "Payment Link Sent",
	"1499827945":            "Free Trial",
	"1731122907":            "Freemium",
	"closedwon":             "Closed Won",
	"contractsent":          "Ping Later",
	"closedlost":            "Closed Lost",
	"1499784890":            "Churn",
	"1499784891":            "Unlikely",
	"1499827944":            "On Hold",
	"1718686448":            "Internal+Friends and Family",
	"2025131723":            "Interested in a pilot",
}

// StageLabel returns the human label for a stage key. Unknown keys are
// returned unchanged so new pipeline stages still show up.
func StageLabel(key string) string {
	if l, ok := stageLabels[key]; ok {
		return l
	}
	return key
}
