package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// payloadFunc renders an alert as the JSON body for one webhook type.
type payloadFunc func(a *Alert) any

var payloads = map[string]payloadFunc{
	"slack": slackPayload,
	"teams": teamsPayload,
	"http":  httpPayload,
}

// deliver posts a to every configured webhook. Failures are logged.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		render, ok := payloads[wh.Type]
		if !ok {
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		log := slog.With("type", wh.Type, "rule", a.RuleName, "batch_id", a.BatchID, "device_id", a.DeviceID, "state", a.State)
		if err := e.post(url, render(a)); err != nil {
			log.Error("alerts: webhook delivery failed", "err", err)
			continue
		}
		log.Debug("alerts: webhook delivered")
	}
}

func (e *Engine) post(url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// fact is one labelled line of device context shown in chat cards.
type fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func facts(a *Alert) []fact {
	out := []fact{
		{"Batch", a.BatchID},
		{"Device", a.DeviceID},
		{"Origin", a.Origin},
	}
	if a.Metric != "" && a.Metric != "device_id" {
		out = append(out, fact{a.Metric, strconv.FormatFloat(a.Value, 'f', 2, 64)})
	}
	score := "unscored"
	if a.Score != nil {
		score = strconv.FormatFloat(*a.Score, 'f', 4, 64)
	}
	return append(out, fact{"Score", score})
}

// headline is the one-line summary shared by every chat target.
func headline(a *Alert) string {
	if a.State == StateResolved {
		return fmt.Sprintf("[RESOLVED] %s on %s", a.RuleName, a.DeviceID)
	}
	return fmt.Sprintf("%s %s on %s", severityLabel(a.Severity), a.RuleName, a.DeviceID)
}

// slackPayload uses Block Kit with a plain-text fallback.
func slackPayload(a *Alert) any {
	fields := make([]map[string]string, 0, 5)
	for _, f := range facts(a) {
		fields = append(fields, map[string]string{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s*\n%s", f.Name, f.Value),
		})
	}
	return map[string]any{
		"text": headline(a),
		"blocks": []map[string]any{
			{"type": "section", "text": map[string]string{"type": "mrkdwn", "text": "*" + headline(a) + "*\n" + a.Message}},
			{"type": "section", "fields": fields},
		},
	}
}

func teamsPayload(a *Alert) any {
	return map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": stateColor(a),
		"summary":    headline(a),
		"title":      headline(a),
		"sections": []map[string]any{{
			"activityTitle": a.Message,
			"facts":         facts(a),
		}},
	}
}

func httpPayload(a *Alert) any {
	return map[string]any{
		"event": "alert." + a.State,
		"alert": a,
	}
}

func severityLabel(s string) string {
	return "[" + strings.ToUpper(normalizeSeverity(s)) + "]"
}

func stateColor(a *Alert) string {
	if a.State == StateResolved {
		return "2EB67D"
	}
	switch normalizeSeverity(a.Severity) {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}

func normalizeSeverity(s string) string {
	switch s {
	case "critical", "warning":
		return s
	default:
		return "info"
	}
}
