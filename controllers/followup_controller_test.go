package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadpilot/kv"
	"leadpilot/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduleApp(store kv.Store) *fiber.App {
	app := fiber.New()
	fc := NewFollowUpController(store, log.New(io.Discard, "", 0))
	app.Post("/api/v1/followups/schedule", fc.Schedule)
	app.Post("/api/v1/followups/cancel", fc.Cancel)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp, decoded
}

func planRequest(steps ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"leadId":        "L1",
		"companyName":   "Acme GmbH",
		"contactPerson": "Jamie Lang",
		"email":         "jamie@acme.example",
		"industry":      "manufacturing",
		"city":          "Hamburg",
		"website":       "https://acme.example",
		"steps":         steps,
	}
}

func TestScheduleCreatesOneRecordPerStep(t *testing.T) {
	store := kv.NewMemoryStore()
	app := newScheduleApp(store)

	resp, body := postJSON(t, app, "/api/v1/followups/schedule", planRequest(
		map[string]interface{}{"dayOffset": 0, "channel": "email", "tone": "friendly", "focusPoint": "intro"},
		map[string]interface{}{"dayOffset": 3, "channel": "linkedin", "tone": "direct", "focusPoint": "case study"},
	))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "L1", body["leadId"])

	scheduled := body["scheduledFollowUps"].([]interface{})
	require.Len(t, scheduled, 2)
	first := scheduled[0].(map[string]interface{})
	assert.Equal(t, float64(1), first["step"])
	assert.Equal(t, "email", first["channel"])

	keys, err := kv.ScanAll(context.Background(), store, models.KeyPrefix+"*")
	require.NoError(t, err)
	require.Len(t, keys, 2)

	now := time.Now()
	steps := make(map[int]models.FollowUpRecord)
	for _, key := range keys {
		value, ok, err := store.Get(context.Background(), key)
		require.NoError(t, err)
		require.True(t, ok)

		var record models.FollowUpRecord
		require.NoError(t, json.Unmarshal([]byte(value), &record))
		steps[record.SequenceStep] = record
	}

	require.Len(t, steps, 2)
	assert.Equal(t, models.StatusPending, steps[1].Status)
	assert.Equal(t, 2, steps[1].TotalSteps)
	assert.Equal(t, "intro", steps[1].FocusPoint)
	assert.Equal(t, now.Format("2006-01-02"), steps[1].ScheduledDate.Format("2006-01-02"))
	assert.Equal(t, now.AddDate(0, 0, 3).Format("2006-01-02"), steps[2].ScheduledDate.Format("2006-01-02"))
	assert.Equal(t, "linkedin", steps[2].Channel)
}

func TestScheduleValidation(t *testing.T) {
	app := newScheduleApp(kv.NewMemoryStore())

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing leadId", map[string]interface{}{
			"companyName": "Acme", "email": "a@b.example",
			"steps": []map[string]interface{}{{"dayOffset": 0, "channel": "email"}},
		}},
		{"missing companyName", map[string]interface{}{
			"leadId": "L1", "email": "a@b.example",
			"steps": []map[string]interface{}{{"dayOffset": 0, "channel": "email"}},
		}},
		{"missing email", map[string]interface{}{
			"leadId": "L1", "companyName": "Acme",
			"steps": []map[string]interface{}{{"dayOffset": 0, "channel": "email"}},
		}},
		{"empty steps", planRequest()},
		{"bad channel", planRequest(map[string]interface{}{"dayOffset": 0, "channel": "fax"})},
		{"bad email", map[string]interface{}{
			"leadId": "L1", "companyName": "Acme", "email": "not-an-email",
			"steps": []map[string]interface{}{{"dayOffset": 0, "channel": "email"}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := postJSON(t, app, "/api/v1/followups/schedule", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestScheduleUnconfiguredStore(t *testing.T) {
	app := newScheduleApp(nil)

	resp, body := postJSON(t, app, "/api/v1/followups/schedule", planRequest(
		map[string]interface{}{"dayOffset": 0, "channel": "email"},
	))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

// failingStore errors on the nth Put, leaving earlier writes in place.
type failingStore struct {
	kv.Store
	puts   int
	failOn int
}

func (f *failingStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	f.puts++
	if f.puts == f.failOn {
		return fmt.Errorf("store write refused")
	}
	return f.Store.Put(ctx, key, value, ttl)
}

func TestSchedulePartialFailureIsNotRolledBack(t *testing.T) {
	inner := kv.NewMemoryStore()
	store := &failingStore{Store: inner, failOn: 2}
	app := newScheduleApp(store)

	resp, body := postJSON(t, app, "/api/v1/followups/schedule", planRequest(
		map[string]interface{}{"dayOffset": 0, "channel": "email"},
		map[string]interface{}{"dayOffset": 2, "channel": "phone"},
	))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	scheduled := body["scheduledFollowUps"].([]interface{})
	assert.Len(t, scheduled, 1)

	keys, err := kv.ScanAll(context.Background(), inner, models.KeyPrefix+"*")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestCancelMarksOnlyPendingRecords(t *testing.T) {
	store := kv.NewMemoryStore()
	app := newScheduleApp(store)

	seed := func(id, status string) {
		record := models.FollowUpRecord{
			ID:            id,
			LeadID:        "L1",
			CompanyName:   "Acme",
			Email:         "a@b.example",
			ScheduledDate: time.Now().AddDate(0, 0, 5),
			SequenceStep:  1,
			TotalSteps:    1,
			Channel:       models.ChannelEmail,
			Status:        status,
		}
		payload, err := json.Marshal(record)
		require.NoError(t, err)
		require.NoError(t, store.Put(context.Background(), record.Key(), string(payload), time.Hour))
	}

	seed("L1-step1-1", models.StatusSent)
	seed("L1-step2-1", models.StatusPending)
	seed("L1-step3-1", models.StatusPending)
	seed("L2-step1-1", models.StatusPending) // other lead, untouched

	resp, body := postJSON(t, app, "/api/v1/followups/cancel", map[string]interface{}{"leadId": "L1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["cancelled"])

	check := func(id, wantStatus string) {
		value, ok, err := store.Get(context.Background(), models.KeyPrefix+id)
		require.NoError(t, err)
		require.True(t, ok)
		var record models.FollowUpRecord
		require.NoError(t, json.Unmarshal([]byte(value), &record))
		assert.Equal(t, wantStatus, record.Status, id)
	}

	check("L1-step1-1", models.StatusSent)
	check("L1-step2-1", models.StatusCancelled)
	check("L1-step3-1", models.StatusCancelled)
	check("L2-step1-1", models.StatusPending)
}

func TestCancelLeavesHyphenatedLeadSiblings(t *testing.T) {
	store := kv.NewMemoryStore()
	app := newScheduleApp(store)

	seed := func(leadID, id string) {
		record := models.FollowUpRecord{
			ID:            id,
			LeadID:        leadID,
			CompanyName:   "Acme",
			Email:         "a@b.example",
			ScheduledDate: time.Now().AddDate(0, 0, 5),
			SequenceStep:  1,
			TotalSteps:    1,
			Channel:       models.ChannelEmail,
			Status:        models.StatusPending,
		}
		payload, err := json.Marshal(record)
		require.NoError(t, err)
		require.NoError(t, store.Put(context.Background(), record.Key(), string(payload), time.Hour))
	}

	// "L1-eu" extends "L1" past a hyphen, so its keys match the
	// followup:L1-* pattern too.
	seed("L1", "L1-step1-1")
	seed("L1-eu", "L1-eu-step1-1")

	resp, body := postJSON(t, app, "/api/v1/followups/cancel", map[string]interface{}{"leadId": "L1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["cancelled"])

	check := func(id, wantStatus string) {
		value, ok, err := store.Get(context.Background(), models.KeyPrefix+id)
		require.NoError(t, err)
		require.True(t, ok)
		var record models.FollowUpRecord
		require.NoError(t, json.Unmarshal([]byte(value), &record))
		assert.Equal(t, wantStatus, record.Status, id)
	}

	check("L1-step1-1", models.StatusCancelled)
	check("L1-eu-step1-1", models.StatusPending)
}

func TestCancelRequiresLeadID(t *testing.T) {
	app := newScheduleApp(kv.NewMemoryStore())

	resp, _ := postJSON(t, app, "/api/v1/followups/cancel", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
