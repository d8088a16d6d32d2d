package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// SlackSender posts Block Kit messages to an incoming webhook.
type SlackSender struct {
	webhookURL string
	client     *http.Client
}

// NewSlackSender creates a sender for the given incoming-webhook URL.
func NewSlackSender(webhookURL string) *SlackSender {
	return &SlackSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Channel implements Sender.
func (s *SlackSender) Channel() types.Channel {
	return types.ChannelSlack
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

// Send posts the report to the webhook.
func (s *SlackSender) Send(ctx context.Context, report *types.ScanReport) error {
	payload := buildSlackPayload(report)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}

func buildSlackPayload(report *types.ScanReport) slackPayload {
	var fields []slackText
	for _, kind := range types.AllKinds {
		count := report.CountByKind()[kind]
		text := fmt.Sprintf("*%s:*\n%d", kindLabel(kind), count)
		if breakdown := regionBreakdown(report, kind); breakdown != "" {
			text = fmt.Sprintf("*%s:*\n%s*Total: %d*", kindLabel(kind), breakdown, count)
		}
		fields = append(fields, slackText{Type: "mrkdwn", Text: text})
	}

	// Slack caps section fields at 10.
	if len(fields) > 10 {
		fields = fields[:10]
	}

	return slackPayload{
		Text: Summary(report),
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackText{Type: "plain_text", Text: "Cloud Cleaner Alert"},
			},
			{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: Summary(report)},
			},
			{
				Type:   "section",
				Fields: fields,
			},
			{
				Type: "section",
				Text: &slackText{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Potential Savings:* $%.2f/month", report.TotalEstimatedSavings),
				},
			},
			{
				Type: "context",
				Elements: []slackText{{
					Type: "mrkdwn",
					Text: fmt.Sprintf("Generated at %s", report.CompletedAt.UTC().Format("2006-01-02 15:04:05 UTC")),
				}},
			},
		},
	}
}
