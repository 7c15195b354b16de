package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"realty_crm_backend/internal/email"
	"realty_crm_backend/internal/events"
	"realty_crm_backend/internal/whatsapp"
	"realty_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type sentMessage struct {
	phone string
	text  string
}

type testWhatsApp struct {
	sent []sentMessage
	fail map[string]error
}

func (w *testWhatsApp) SendMessage(_ context.Context, phone, message string) error {
	if err := w.fail[phone]; err != nil {
		return err
	}
	w.sent = append(w.sent, sentMessage{phone: phone, text: message})
	return nil
}

type testSender struct {
	to     string
	digest email.MatchDigest
	calls  int
}

func (s *testSender) SendMatchDigest(_ context.Context, to string, digest email.MatchDigest) error {
	s.calls++
	s.to = to
	s.digest = digest
	return nil
}

func newPropertyEvent(leads ...events.MatchedLead) events.NewPropertyMatched {
	return events.NewPropertyMatched{
		BaseEvent:       events.NewBaseEvent(),
		ClientID:        "acme",
		WhatsAppEnabled: true,
		PropertyID:      uuid.New(),
		PropertyCode:    "AP-1",
		PropertyTitle:   "Apartamento 3 quartos",
		Neighborhood:    "Pinheiros",
		Operation:       "sale",
		Leads:           leads,
	}
}

func TestNewPropertyMatchedMessagesLeads(t *testing.T) {
	wa := &testWhatsApp{}
	m := New(wa, nil, logger.Nop())

	e := newPropertyEvent(
		events.MatchedLead{LeadID: uuid.New(), Name: "Ana Souza", Phone: "+5511999990000", Score: 91, DistanceKm: 1.26},
		events.MatchedLead{LeadID: uuid.New(), Name: "Bruno", Phone: ""},
	)
	if err := m.Handle(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wa.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(wa.sent))
	}
	text := wa.sent[0].text
	for _, want := range []string{"Olá Ana!", "Apartamento 3 quartos (cód. AP-1)", "Pinheiros, a 1,3 km"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected message to contain %q, got %q", want, text)
		}
	}
}

func TestNewPropertyMatchedRespectsClientFlag(t *testing.T) {
	wa := &testWhatsApp{}
	m := New(wa, nil, logger.Nop())

	e := newPropertyEvent(events.MatchedLead{LeadID: uuid.New(), Name: "Ana", Phone: "+5511999990000"})
	e.WhatsAppEnabled = false
	if err := m.Handle(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wa.sent) != 0 {
		t.Fatalf("expected no messages, got %d", len(wa.sent))
	}
}

func TestNewPropertyMatchedContinuesAfterFailures(t *testing.T) {
	wa := &testWhatsApp{fail: map[string]error{
		"123":            fmt.Errorf("%w: %q", whatsapp.ErrInvalidPhone, "123"),
		"+5511988887777": errors.New("gateway down"),
	}}
	m := New(wa, nil, logger.Nop())

	e := newPropertyEvent(
		events.MatchedLead{LeadID: uuid.New(), Name: "Invalid", Phone: "123"},
		events.MatchedLead{LeadID: uuid.New(), Name: "Down", Phone: "+5511988887777"},
		events.MatchedLead{LeadID: uuid.New(), Name: "Ana", Phone: "+5511999990000"},
	)
	err := m.Handle(context.Background(), e)
	if err == nil || !strings.Contains(err.Error(), "gateway down") {
		t.Fatalf("expected the gateway failure to be reported, got %v", err)
	}
	if len(wa.sent) != 1 || wa.sent[0].phone != "+5511999990000" {
		t.Fatalf("expected the last lead to be messaged, got %+v", wa.sent)
	}
}

func TestMatchingCompletedSendsDigest(t *testing.T) {
	sender := &testSender{}
	m := New(nil, sender, logger.Nop())

	e := events.MatchingCompleted{
		BaseEvent:         events.NewBaseEvent(),
		ClientID:          "acme",
		ClientName:        "Acme Imoveis",
		NotificationEmail: " ops@acme.example ",
		LeadsProcessed:    12,
		MatchesFound:      3,
		ReportKey:         "acme/20260302T080000Z.json",
		TopMatches: []events.MatchSummary{
			{LeadName: "Ana", PropertyCode: "AP-1", Neighborhood: "Se", Score: 97.9, DistanceKm: 0.17},
		},
	}
	if err := m.Handle(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.to != "ops@acme.example" {
		t.Fatalf("unexpected recipient %q", sender.to)
	}
	if sender.digest.MatchesFound != 3 || len(sender.digest.Matches) != 1 || sender.digest.Matches[0].PropertyCode != "AP-1" {
		t.Fatalf("unexpected digest %+v", sender.digest)
	}
}

func TestMatchingCompletedWithoutRecipient(t *testing.T) {
	sender := &testSender{}
	m := New(nil, sender, logger.Nop())

	if err := m.Handle(context.Background(), events.MatchingCompleted{ClientID: "acme"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("expected no digest, got %d", sender.calls)
	}
}

func TestRegisterHandlersSubscribesToMatchingEvents(t *testing.T) {
	bus := events.NewInMemoryBus(logger.Nop())
	wa := &testWhatsApp{}
	New(wa, nil, logger.Nop()).RegisterHandlers(bus)

	e := newPropertyEvent(events.MatchedLead{LeadID: uuid.New(), Name: "Ana", Phone: "+5511999990000"})
	if err := bus.PublishSync(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wa.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(wa.sent))
	}
}
