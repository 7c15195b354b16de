// Package notification reacts to matching events: interested leads hear
// about new properties on WhatsApp and agencies receive a digest e-mail
// after each batch run.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"realty_crm_backend/internal/email"
	"realty_crm_backend/internal/events"
	"realty_crm_backend/internal/whatsapp"
	"realty_crm_backend/platform/logger"
)

// WhatsAppSender sends WhatsApp messages.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

var newPropertyMessage = template.Must(template.New("new_property").Parse(
	`Olá {{.Name}}! Temos um imóvel novo que combina com o que você procura.

🏠 {{.Title}}{{if .Code}} (cód. {{.Code}}){{end}}
📍 {{.Neighborhood}}{{if .Distance}}, a {{.Distance}} da sua região de interesse{{end}}

Gostaria de agendar uma visita?`))

type newPropertyMessageData struct {
	Name         string
	Title        string
	Code         string
	Neighborhood string
	Distance     string
}

type Module struct {
	whatsapp WhatsAppSender
	email    email.Sender
	log      *logger.Logger
}

// New wires the senders. A nil WhatsAppSender disables lead messages.
func New(wa WhatsAppSender, sender email.Sender, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{whatsapp: wa, email: sender, log: log}
}

// RegisterHandlers subscribes to the matching events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.NewPropertyMatched{}.EventName(), m)
	bus.Subscribe(events.MatchingCompleted{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.NewPropertyMatched:
		return m.handleNewPropertyMatched(ctx, e)
	case events.MatchingCompleted:
		return m.handleMatchingCompleted(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// handleNewPropertyMatched messages every lead with a usable phone. One
// failing lead does not stop the others.
func (m *Module) handleNewPropertyMatched(ctx context.Context, e events.NewPropertyMatched) error {
	if m.whatsapp == nil || !e.WhatsAppEnabled {
		return nil
	}

	var errs []error
	sent := 0
	for _, lead := range e.Leads {
		if strings.TrimSpace(lead.Phone) == "" {
			m.log.EntitySkipped("lead", lead.LeadID.String(), "no phone number")
			continue
		}

		msg, err := renderNewPropertyMessage(e, lead)
		if err != nil {
			return err
		}

		if err := m.whatsapp.SendMessage(ctx, lead.Phone, msg); err != nil {
			if errors.Is(err, whatsapp.ErrInvalidPhone) {
				m.log.EntitySkipped("lead", lead.LeadID.String(), "invalid phone number")
				continue
			}
			errs = append(errs, fmt.Errorf("lead %s: %w", lead.LeadID, err))
			continue
		}
		sent++
	}

	m.log.Info("new property notifications sent",
		"clientId", e.ClientID,
		"propertyId", e.PropertyID,
		"sent", sent,
		"failed", len(errs),
	)
	return errors.Join(errs...)
}

func renderNewPropertyMessage(e events.NewPropertyMatched, lead events.MatchedLead) (string, error) {
	title := e.PropertyTitle
	if title == "" {
		title = "Imóvel"
	}
	data := newPropertyMessageData{
		Name:         firstName(lead.Name),
		Title:        title,
		Code:         e.PropertyCode,
		Neighborhood: e.Neighborhood,
	}
	if lead.DistanceKm > 0 {
		data.Distance = strings.Replace(fmt.Sprintf("%.1f km", lead.DistanceKm), ".", ",", 1)
	}

	var b strings.Builder
	if err := newPropertyMessage.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render whatsapp message: %w", err)
	}
	return b.String(), nil
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "tudo bem"
	}
	return fields[0]
}

func (m *Module) handleMatchingCompleted(ctx context.Context, e events.MatchingCompleted) error {
	to := strings.TrimSpace(e.NotificationEmail)
	if to == "" {
		return nil
	}

	digest := email.MatchDigest{
		ClientName:     e.ClientName,
		LeadsProcessed: e.LeadsProcessed,
		MatchesFound:   e.MatchesFound,
		ReportKey:      e.ReportKey,
		Matches:        make([]email.DigestRow, 0, len(e.TopMatches)),
	}
	for _, s := range e.TopMatches {
		digest.Matches = append(digest.Matches, email.DigestRow{
			LeadName:     s.LeadName,
			PropertyCode: s.PropertyCode,
			Neighborhood: s.Neighborhood,
			Score:        s.Score,
			DistanceKm:   s.DistanceKm,
		})
	}

	if err := m.email.SendMatchDigest(ctx, to, digest); err != nil {
		return fmt.Errorf("send match digest to %s: %w", to, err)
	}
	m.log.Info("match digest sent", "clientId", e.ClientID, "matches", e.MatchesFound)
	return nil
}
