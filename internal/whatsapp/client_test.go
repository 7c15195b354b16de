package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"realty_crm_backend/platform/logger"
)

type gatewayConfig struct{ url string }

func (c gatewayConfig) GetWhatsAppURL() string      { return c.url }
func (c gatewayConfig) GetWhatsAppKey() string      { return "user:pass" }
func (c gatewayConfig) GetWhatsAppDeviceID() string { return "device-1" }
func (c gatewayConfig) IsWhatsAppEnabled() bool     { return c.url != "" }

func TestSendMessage(t *testing.T) {
	var got gowaRequest
	var auth, device string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/send/message" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		device = r.Header.Get("X-Device-Id")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(gatewayConfig{url: srv.URL + "/"}, logger.Nop())
	if err := c.SendMessage(context.Background(), "(11) 98765-4321", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Phone != "5511987654321" || got.Message != "hello" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if auth != "Basic dXNlcjpwYXNz" || device != "device-1" {
		t.Fatalf("unexpected headers %q %q", auth, device)
	}
}

func TestSendMessageRejectsInvalidPhone(t *testing.T) {
	c := NewClient(gatewayConfig{url: "http://gateway.invalid"}, logger.Nop())
	if err := c.SendMessage(context.Background(), "123", "hello"); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
}

func TestSendMessageReportsGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "device offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(gatewayConfig{url: srv.URL}, logger.Nop())
	if err := c.SendMessage(context.Background(), "+5511987654321", "hello"); err == nil {
		t.Fatalf("expected an error from the gateway")
	}
}

func TestNilClientIsNoop(t *testing.T) {
	c := NewClient(gatewayConfig{}, logger.Nop())
	if c != nil {
		t.Fatalf("expected nil client without a gateway URL")
	}
	if err := c.SendMessage(context.Background(), "+5511987654321", "hello"); err != nil {
		t.Fatalf("expected nil client to be a no-op, got %v", err)
	}
}
