// Package notify delivers run summaries to Slack incoming webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vpsguard/vpsguard/internal/domain"
)

// block is one Slack Block Kit block. Only the shapes the summary needs.
type block struct {
	Type     string `json:"type"`
	Text     *text  `json:"text,omitempty"`
	Elements []text `json:"elements,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func header(s string) block {
	return block{Type: "header", Text: &text{Type: "plain_text", Text: s}}
}

func section(s string) block {
	return block{Type: "section", Text: &text{Type: "mrkdwn", Text: s}}
}

func contextBlock(s string) block {
	return block{Type: "context", Elements: []text{{Type: "mrkdwn", Text: s}}}
}

// SlackNotifier posts Block Kit messages to every configured webhook. Each
// target gets exactly one attempt per run; a flapping webhook must not stall
// the scan, and the next scheduled run retries naturally.
type SlackNotifier struct {
	targets []string
	client  *http.Client
}

func NewSlackNotifier(targets []string) *SlackNotifier {
	return &SlackNotifier{
		targets: targets,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the summary to all targets concurrently. It succeeds when at
// least one webhook accepted the message.
func (n *SlackNotifier) Send(ctx context.Context, summary domain.NotificationSummary) error {
	return n.post(ctx, buildBlocks(summary))
}

// SendTest posts a short verification message so an operator can confirm the
// webhook wiring before trusting the schedule.
func (n *SlackNotifier) SendTest(ctx context.Context) error {
	blocks := []block{
		header("vpsguard - Test Message"),
		section("*Test notification*\n\nIf you can read this, webhook delivery is working."),
	}
	return n.post(ctx, blocks)
}

func (n *SlackNotifier) post(ctx context.Context, blocks []block) error {
	if len(n.targets) == 0 {
		return fmt.Errorf("no webhook targets configured")
	}

	payload, err := json.Marshal(map[string]any{"blocks": blocks})
	if err != nil {
		return err
	}

	errs := make([]error, len(n.targets))
	var wg sync.WaitGroup
	for i, target := range n.targets {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			errs[i] = n.postOne(ctx, target, payload)
		}(i, target)
	}
	wg.Wait()

	var failed []string
	for i, err := range errs {
		if err == nil {
			return nil // at least one delivery landed
		}
		failed = append(failed, fmt.Sprintf("target %d: %v", i+1, err))
	}
	return fmt.Errorf("all webhooks failed: %s", strings.Join(failed, "; "))
}

func (n *SlackNotifier) postOne(ctx context.Context, target string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	return nil
}

func buildBlocks(s domain.NotificationSummary) []block {
	title := fmt.Sprintf("VPS Security Scan - %s", s.Timestamp.Format("2006-01-02 15:04"))
	if s.Hostname != "" {
		title = fmt.Sprintf("[%s] %s", s.Hostname, title)
	}
	blocks := []block{header(title)}

	if s.AllOK && len(s.Critical) == 0 && len(s.Warnings) == 0 && len(s.Fixed) == 0 {
		blocks = append(blocks, section(":white_check_mark: *All checks passed.*"))
	}

	if len(s.Critical) > 0 {
		body := fmt.Sprintf("*CRITICAL ALERTS: %d*\n%s", len(s.Critical), bulletList(s.Critical))
		if s.Mention != "" {
			body = s.Mention + "\n\n" + body
		}
		blocks = append(blocks, section(body))

		for _, f := range s.Critical {
			if len(f.Details) == 0 {
				continue
			}
			details := f.Details
			more := ""
			if len(details) > 5 {
				more = fmt.Sprintf("\n  ... and %d more", len(details)-5)
				details = details[:5]
			}
			blocks = append(blocks, contextBlock("  - "+strings.Join(details, "\n  - ")+more))
		}
	}

	if len(s.Fixed) > 0 {
		var lines []string
		for _, fix := range s.Fixed {
			lines = append(lines, fmt.Sprintf("- %s: %s", fix.CheckID, fix.Action))
		}
		blocks = append(blocks, section(fmt.Sprintf("*Auto-remediated: %d*\n%s",
			len(s.Fixed), strings.Join(lines, "\n"))))
	}

	if len(s.Warnings) > 0 {
		blocks = append(blocks, section(fmt.Sprintf("*Warnings: %d*\n%s",
			len(s.Warnings), bulletList(s.Warnings))))
	}

	if len(s.Info) > 0 {
		blocks = append(blocks, contextBlock(fmt.Sprintf("*Info: %d*\n%s",
			len(s.Info), bulletList(s.Info))))
	}

	if len(s.Resolved) > 0 {
		var lines []string
		for _, rec := range s.Resolved {
			lines = append(lines, fmt.Sprintf("- %s", rec.Message))
		}
		blocks = append(blocks, section(fmt.Sprintf(":white_check_mark: *Resolved: %d*\n%s",
			len(s.Resolved), strings.Join(lines, "\n"))))
	}

	blocks = append(blocks,
		block{Type: "divider"},
		contextBlock("vpsguard | next scan in 6 hours"))
	return blocks
}

func bulletList(findings []domain.Finding) string {
	var lines []string
	for _, f := range findings {
		lines = append(lines, "- "+f.Message)
	}
	return strings.Join(lines, "\n")
}
