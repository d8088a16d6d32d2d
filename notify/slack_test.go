package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/config"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

func sampleReport() *types.ScanReport {
	r := &types.ScanReport{
		StartedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Outcomes: []types.ScanOutcome{
			{Target: types.ScanTarget{Region: "us-east-1", Kind: types.KindEC2},
				Status: types.StatusOK,
				Resources: []types.ResourceRecord{
					{ID: "i-1", EstimatedMonthlyCost: 50},
					{ID: "i-2", EstimatedMonthlyCost: 50},
				}},
			{Target: types.ScanTarget{Region: "eu-west-1", Kind: types.KindEC2},
				Status:    types.StatusOK,
				Resources: []types.ResourceRecord{{ID: "i-3", EstimatedMonthlyCost: 50}}},
			{Target: types.ScanTarget{Region: types.GlobalRegion, Kind: types.KindS3},
				Status:    types.StatusOK,
				Resources: []types.ResourceRecord{{ID: "bucket", EstimatedMonthlyCost: 5}}},
		},
	}
	r.Finalize(time.Date(2025, 6, 1, 10, 1, 0, 0, time.UTC))
	return r
}

func TestSlackSenderPostsPayload(t *testing.T) {
	var received slackPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSlackSender(server.URL)
	require.NoError(t, sender.Send(context.Background(), sampleReport()))

	assert.Contains(t, received.Text, "Found 4 unused AWS resources")
	require.NotEmpty(t, received.Blocks)
	assert.Equal(t, "header", received.Blocks[0].Type)
}

func TestSlackSenderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no_service", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sender := NewSlackSender(server.URL)
	err := sender.Send(context.Background(), sampleReport())
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	report := sampleReport()
	assert.Contains(t, Summary(report), "$155.00/month")

	report.Outcomes[0].Status = types.StatusFailed
	report.Outcomes[0].Error = "denied"
	report.Finalize(report.CompletedAt)
	assert.Contains(t, Summary(report), "1 of 3 checks failing")

	for i := range report.Outcomes {
		report.Outcomes[i].Status = types.StatusFailed
	}
	report.Finalize(report.CompletedAt)
	assert.Contains(t, Summary(report), "all 3 checks errored")
}

func TestEmailSenderBuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	sender := NewEmailSender(config.SMTPConfig{
		Host:       "smtp.example.com",
		Port:       587,
		Username:   "bot",
		Password:   "secret",
		Sender:     "cleaner@example.com",
		Recipients: []string{"ops@example.com", "fin@example.com"},
	})
	// The injectable send hook keeps the SMTP dial out of tests.
	sender.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, sender.Send(context.Background(), sampleReport()))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "cleaner@example.com", gotFrom)
	assert.Equal(t, []string{"ops@example.com", "fin@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Cloud Cleaner Alert: 4 Unused Resources Found")
	assert.Contains(t, string(gotMsg), "Content-Type: text/html")
	assert.Contains(t, string(gotMsg), "Potential Monthly Savings")
}
