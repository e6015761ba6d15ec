package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate reads the date formats found in CRM properties, local datasets
// and persisted documents: RFC 3339 (with or without zone), date-only and
// epoch millis. Naive values are taken as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "N/A", "None", "null":
		return time.Time{}, false
	}
	if isDigits(s) && len(s) >= 12 {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func datePtr(s FlexString) *time.Time {
	t, ok := ParseDate(string(s))
	if !ok {
		return nil
	}
	return &t
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// UnmarshalJSON reads "date" leniently; an unreadable date leaves the
// touchpoint undated.
func (t *Touchpoint) UnmarshalJSON(b []byte) error {
	type plain Touchpoint
	aux := struct {
		*plain
		Date FlexString `json:"date"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	t.Timestamp = datePtr(aux.Date)
	return nil
}

// UnmarshalJSON reads journey dates leniently and accepts cognito_signup
// for the signup date.
func (j *CustomerJourney) UnmarshalJSON(b []byte) error {
	type plain CustomerJourney
	aux := struct {
		*plain
		FirstTouch    FlexString `json:"first_touch"`
		Signup        FlexString `json:"platform_signup"`
		CognitoSignup FlexString `json:"cognito_signup"`
	}{plain: (*plain)(j)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	j.FirstTouch = datePtr(aux.FirstTouch)
	j.Signup = datePtr(aux.Signup)
	if j.Signup == nil {
		j.Signup = datePtr(aux.CognitoSignup)
	}
	return nil
}
