// Package notify posts alerts for freshly discovered timeline events.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/partrack/partrack/pkg/types"
)

// Notifier announces a new event on a project's timeline. extra marks an
// additional event posted under an already-used name.
type Notifier interface {
	PostEvent(ctx context.Context, proj *types.Project, ev types.Event, extra bool) error
}

// Nop is a Notifier that does nothing.
type Nop struct{}

// PostEvent implements Notifier.
func (Nop) PostEvent(context.Context, *types.Project, types.Event, bool) error { return nil }

// Slack posts event announcements to an incoming webhook.
type Slack struct {
	webhook string
	http    *http.Client
	logger  zerolog.Logger
}

// NewSlack returns a Slack notifier for the given webhook URL.
func NewSlack(webhook string, logger zerolog.Logger) *Slack {
	return &Slack{webhook: webhook, http: http.DefaultClient, logger: logger}
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Fallback   string       `json:"fallback"`
	Color      string       `json:"color"`
	Pretext    string       `json:"pretext"`
	Title      string       `json:"title"`
	TitleLink  string       `json:"title_link,omitempty"`
	Text       string       `json:"text"`
	Fields     []slackField `json:"fields"`
	Footer     string       `json:"footer"`
	FooterIcon string       `json:"footer_icon"`
	Timestamp  int64        `json:"ts"`
}

type slackMessage struct {
	Attachments []slackAttachment `json:"attachments"`
}

// slackDate renders a date with client-side pretty formatting and a
// plain-text fallback. https://api.slack.com/docs/message-formatting
func slackDate(d types.Date) string {
	t := d.Time()
	return fmt.Sprintf("<!date^%d^{date_pretty}|%s>", t.Unix(), t.Format("Mon Jan 2 15:04:05 2006"))
}

// PostEvent implements Notifier.
func (s *Slack) PostEvent(ctx context.Context, proj *types.Project, ev types.Event, extra bool) error {
	att := slackAttachment{
		Fallback:  ev.Description,
		Color:     "good",
		Pretext:   "802.1 announcement",
		Title:     ev.Description,
		TitleLink: ev.URL,
		Text:      proj.Title,
		Fields: []slackField{
			{Title: "Start date", Value: slackDate(ev.Date), Short: true},
		},
		Footer:     "802.1",
		FooterIcon: "https://platform.slack-edge.com/img/default_application_icon.png",
		Timestamp:  ev.Date.Time().Unix(),
	}
	if ev.EndDate != nil {
		att.Fields = append(att.Fields, slackField{Title: "End date", Value: slackDate(*ev.EndDate), Short: true})
	}
	if proj.DraftURL != "" {
		att.Fields = append(att.Fields, slackField{
			Title: "Draft",
			Value: fmt.Sprintf("<%s|%s>", proj.DraftURL, proj.DraftNo),
			Short: true,
		})
	}

	payload, err := json.Marshal(slackMessage{Attachments: []slackAttachment{att}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhook, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook: status %d", resp.StatusCode)
	}
	s.logger.Debug().Str("event", ev.Name).Bool("extra", extra).Msg("Posted event to Slack")
	return nil
}

var (
	_ Notifier = Nop{}
	_ Notifier = (*Slack)(nil)
)
