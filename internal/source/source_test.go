package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/touchpoints/internal/metrics"
	"github.com/AngelCh415/touchpoints/internal/models"
)

func TestReadJSONCustomers(t *testing.T) {
	in := `[{"company":"Acme","tenant_id":"t1","deal_stage":"Closed Won","deal_amount":5000,
		"first_touch":"2024-01-01","cognito_signup":"2024-01-08","source":"PAID_SEARCH",
		"contacts":[{"email":"a@acme.io","created":"2024-01-08T10:00:00Z"}],
		"all_deals":[{"name":"Acme Deal","stage":"Closed Won","amount":"5000","created":"2024-01-02"}]},
		{"company":"Beta","deal_amount":null}]`
	recs, err := ReadJSON(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, models.FlexString("5000"), recs[0].DealAmount)
	assert.Equal(t, "2024-01-08", recs[0].Signup)
	assert.Len(t, recs[0].Contacts, 1)
	assert.Equal(t, "Acme Deal", recs[0].Deals[0].Name)
	assert.Equal(t, models.FlexString(""), recs[1].DealAmount)
}

func TestReadCSVGroupsContacts(t *testing.T) {
	in := "company,tenant_id,deal_stage,source,first_touch,signup,email,created\n" +
		"Acme,t1,Closed Won,PAID_SEARCH,2024-01-01,2024-01-08,a@acme.io,2024-01-08\n" +
		"Beta,,Churn,OFFLINE,,,b@beta.io,\n" +
		"Acme,t1,Closed Won,PAID_SEARCH,2024-01-01,2024-01-08,c@acme.io,2024-01-09\n"
	recs, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Acme", recs[0].Company)
	assert.Len(t, recs[0].Contacts, 2)
	assert.Equal(t, "Churn", recs[1].DealStage)
	assert.Equal(t, "", recs[1].AccountID)
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("company,tenant_id\nAcme,t1\n"))
	assert.Error(t, err)
}

func TestDocumentRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "out.json")
	journeys := []models.CustomerJourney{{
		Company:   "Acme",
		AccountID: "t1",
		DealStage: "Closed Won",
		Touchpoints: []models.Touchpoint{
			{Timestamp: &ts, Kind: models.KindEmail, Detail: "hi", Source: models.SourceEngagement},
			{Kind: models.KindPlatformSignup, Detail: "x", Source: models.SourceSignup},
		},
		TotalTouchpoint: 2,
	}}
	require.NoError(t, WriteDocument(path, journeys))
	got, err := ReadDocument(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Touchpoints, 2)
	assert.True(t, ts.Equal(*got[0].Touchpoints[0].Timestamp))
	assert.Nil(t, got[0].Touchpoints[1].Timestamp)
}

func TestLoadCustomersMissingFile(t *testing.T) {
	_, err := LoadCustomers(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestReadDocumentLenientDates(t *testing.T) {
	doc := `[{"company":"Acme","tenant_id":"t1","deal_stage":"Closed Won",
		"first_touch":"2024-01-01","cognito_signup":"2024-01-08 10:00:00","source":"PAID_SEARCH",
		"touchpoints":[
			{"date":"2024-01-05T00:00:00.000Z","type":"Deal Stage Change","detail":"\"Acme Deal\" moved to: Demo Scheduled (via CRM_UI)","source":"CRM Deal"},
			{"date":"2024-01-20T00:00:00.000Z","type":"Deal Stage Change","detail":"\"Acme Deal\" moved to: Closed Won (via CRM_UI)","source":"CRM Deal"},
			{"date":"","type":"Platform Signup","detail":"a@acme.io created platform account","source":"Platform"},
			{"date":"not a date","type":"Note","detail":"Note added","source":"CRM Engagement"}
		],
		"total_touchpoints":4}]`
	path := filepath.Join(t.TempDir(), "legacy.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	got, err := ReadDocument(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	j := got[0]
	require.NotNil(t, j.FirstTouch)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(*j.FirstTouch))
	require.NotNil(t, j.Signup, "cognito_signup is read as the signup date")
	assert.True(t, time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC).Equal(*j.Signup))
	require.Len(t, j.Touchpoints, 4)
	assert.NotNil(t, j.Touchpoints[0].Timestamp)
	assert.Nil(t, j.Touchpoints[2].Timestamp)
	assert.Nil(t, j.Touchpoints[3].Timestamp)
	assert.Empty(t, j.Touchpoints[0].Stage)

	tr := metrics.Transitions(got)
	require.Len(t, tr, 1)
	assert.Equal(t, models.StageTransition{From: "Demo Scheduled", To: "Closed Won", Count: 1}, tr[0])
}
