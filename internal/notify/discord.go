// Package notify posts terminal cron job failures to a Discord webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"explainx/internal/config"
	"explainx/internal/cron"
)

const (
	colorRed      = 0xff0000
	maxFieldChars = 1000
	sendTimeout   = 10 * time.Second
)

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title     string       `json:"title"`
	Color     int          `json:"color"`
	Fields    []embedField `json:"fields"`
	Timestamp string       `json:"timestamp"`
}

type webhookPayload struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

// Discord is a cron.RunObserver that reports runs ending in a terminal failure.
// Without a webhook URL it does nothing.
type Discord struct {
	url         string
	username    string
	environment string
	client      *http.Client
	log         *zap.Logger
	now         func() time.Time
}

var _ cron.RunObserver = (*Discord)(nil)

func NewDiscord(cfg config.DiscordConfig, log *zap.Logger) *Discord {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.WebhookURL == "" {
		log.Warn("Discord webhook URL not configured. Error notifications will not be sent.")
	}
	return &Discord{
		url:         cfg.WebhookURL,
		username:    cfg.Username,
		environment: cfg.Environment,
		client: &http.Client{
			Timeout:   sendTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log.With(zap.String("component", "discord")),
		now: time.Now,
	}
}

func (d *Discord) RunStarted(context.Context, cron.RunRecord) {}

func (d *Discord) RunFinished(ctx context.Context, rec cron.RunRecord) {
	if rec.Outcome != cron.OutcomeFailed || d.url == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if err := d.send(ctx, d.failureEmbed(rec)); err != nil {
		d.log.Error("Failed to send Discord notification", zap.String("job", rec.Job), zap.Error(err))
		return
	}
	d.log.Info("Error notification sent to Discord successfully", zap.String("job", rec.Job))
}

func (d *Discord) failureEmbed(rec cron.RunRecord) embed {
	ts := d.now().UTC().Format(time.RFC3339)
	return embed{
		Title: "🚨 Cron Job Failure",
		Color: colorRed,
		Fields: []embedField{
			{Name: "Error Message", Value: "```\n" + truncate(rec.Error, maxFieldChars) + "\n```"},
			{Name: "Timestamp", Value: ts, Inline: true},
			{Name: "Environment", Value: d.environment, Inline: true},
			{Name: "Operation", Value: rec.Job, Inline: true},
			{Name: "Attempts", Value: strconv.Itoa(rec.Attempts), Inline: true},
			{Name: "Trigger", Value: string(rec.Trigger), Inline: true},
			{Name: "Run ID", Value: rec.ID, Inline: true},
		},
		Timestamp: ts,
	}
}

func (d *Discord) send(ctx context.Context, e embed) error {
	body, err := json.Marshal(webhookPayload{Username: d.username, Embeds: []embed{e}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("discord webhook: unexpected status %s", resp.Status)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
