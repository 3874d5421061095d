package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"translator-agent/internal/command"
)

type AlertPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Source      string `json:"source"`
	Code        string `json:"code,omitempty"`
	Timestamp   string `json:"timestamp"`
}

type Dispatcher struct {
	WebhookURL string
	client     *http.Client
	wg         sync.WaitGroup
}

func NewDispatcher(webhookURL string) *Dispatcher {
	return &Dispatcher{
		WebhookURL: webhookURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// CommandRejected reports a RegexMessageParser command that could not be
// applied. Resource and file lookups are warnings; the rest are errors.
func (d *Dispatcher) CommandRejected(source, line string, err error) {
	code := command.CodeOf(err)
	severity := "error"
	switch code {
	case command.ErrCodeResourceNotFound, command.ErrCodeFileNotFound:
		severity = "warning"
	}
	d.Send(AlertPayload{
		Title:       "Translator command rejected",
		Description: fmt.Sprintf("%s\n%v", line, err),
		Severity:    severity,
		Source:      source,
		Code:        string(code),
	})
}

// Send posts the alert asynchronously. It is a no-op without a webhook URL.
func (d *Dispatcher) Send(alert AlertPayload) {
	if d.WebhookURL == "" {
		return
	}
	if alert.Timestamp == "" {
		alert.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	// Discord and Slack read "content"; custom receivers get the fields.
	body, err := json.Marshal(struct {
		Content string `json:"content"`
		AlertPayload
	}{
		Content:      fmt.Sprintf("[%s] **%s**\n%s\nSource: %s", alert.Severity, alert.Title, alert.Description, alert.Source),
		AlertPayload: alert,
	})
	if err != nil {
		log.Printf("Failed to marshal alert: %v", err)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		resp, err := d.client.Post(d.WebhookURL, "application/json", bytes.NewBuffer(body))
		if err != nil {
			log.Printf("Failed to send webhook: %v", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			log.Printf("Webhook returned status %d", resp.StatusCode)
		}
	}()
}

// Wait blocks until in-flight webhooks have completed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
