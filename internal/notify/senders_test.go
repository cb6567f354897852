package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"reflect"
	"strings"
	"sync"
	"testing"

	"roadwatch/internal/config"
	"roadwatch/internal/domain"
	"roadwatch/internal/permanent"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTelegramSenderSend(t *testing.T) {
	t.Parallel()

	type sendMessagePayload struct {
		ChatID    string
		Text      string
		ParseMode string
	}

	var (
		mu       sync.Mutex
		received []sendMessagePayload
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method=%s", r.Method)
		}
		if r.URL.Path != "/bottoken/sendMessage" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(2 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		mu.Lock()
		received = append(received, sendMessagePayload{
			ChatID:    r.FormValue("chat_id"),
			Text:      r.FormValue("text"),
			ParseMode: r.FormValue("parse_mode"),
		})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":101,"date":1,"chat":{"id":-100,"type":"group"}}}`)
	}))
	defer server.Close()

	sender := NewTelegramSender(config.TelegramNotifier{
		Enabled:  true,
		BotToken: "token",
		ChatID:   "-100",
		APIBase:  server.URL,
	})
	result, err := sender.Send(context.Background(), domain.OutboundMessage{
		ID:       "msg-1",
		Subject:  "ESCALATION: Overdue Pothole Repair - ID: PH-001",
		Body:     "Location: Queen & Main\n",
		Category: domain.CategoryEscalation,
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if result.MessageID != 101 {
		t.Fatalf("message id=%d", result.MessageID)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 request, got %d", len(received))
	}
	if received[0].ParseMode != "HTML" {
		t.Fatalf("parse mode=%q", received[0].ParseMode)
	}
	if received[0].ChatID != "-100" {
		t.Fatalf("chat id=%q", received[0].ChatID)
	}
	want := "<b>ESCALATION: Overdue Pothole Repair - ID: PH-001</b>\n\nLocation: Queen &amp; Main"
	if received[0].Text != want {
		t.Fatalf("text=%q", received[0].Text)
	}
}

func TestTelegramSenderErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		code      int
		permanent bool
	}{
		{name: "chat not found", code: http.StatusBadRequest, permanent: true},
		{name: "bot blocked", code: http.StatusForbidden, permanent: true},
		{name: "unknown method", code: http.StatusNotFound, permanent: true},
		{name: "rate limited", code: http.StatusTooManyRequests, permanent: false},
		{name: "server error", code: http.StatusBadGateway, permanent: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.code)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"ok":          false,
					"error_code":  tt.code,
					"description": tt.name,
					"parameters":  map[string]any{"retry_after": 1},
				})
			}))
			defer server.Close()

			sender := NewTelegramSender(config.TelegramNotifier{BotToken: "token", ChatID: "-100", APIBase: server.URL})
			_, err := sender.Send(context.Background(), domain.OutboundMessage{ID: "msg-1", Subject: "s", Body: "b"})
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := permanent.Is(err); got != tt.permanent {
				t.Fatalf("permanent=%v want %v (err=%v)", got, tt.permanent, err)
			}
		})
	}
}

func TestTelegramSenderRequiresToken(t *testing.T) {
	t.Parallel()

	sender := NewTelegramSender(config.TelegramNotifier{ChatID: "1"})
	if _, err := sender.Send(context.Background(), domain.OutboundMessage{}); err == nil {
		t.Fatalf("expected init error")
	}
}

func TestNormalizeChatID(t *testing.T) {
	t.Parallel()

	if got := normalizeChatID(" -100123 "); got != int64(-100123) {
		t.Fatalf("numeric chat id=%#v", got)
	}
	if got := normalizeChatID("@roads_ops"); got != "@roads_ops" {
		t.Fatalf("named chat id=%#v", got)
	}
}

func TestWebhookSenderSend(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method=%s", r.Method)
		}
		if r.Header.Get("X-Test") != "1" {
			t.Errorf("missing custom header")
		}
		if r.Header.Get("X-Roadwatch-Message-Id") != "msg-7" {
			t.Errorf("message id header=%q", r.Header.Get("X-Roadwatch-Message-Id"))
		}
		var payload domain.OutboundMessage
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.PotholeID != "PH-007" || payload.Category != domain.CategoryStatusUpdate {
			t.Errorf("payload=%+v", payload)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := NewWebhookSender(config.HTTPNotifier{
		Enabled:    true,
		URL:        server.URL,
		Method:     http.MethodPut,
		TimeoutSec: 2,
		Headers:    map[string]string{"X-Test": "1"},
	})
	_, err := sender.Send(context.Background(), domain.OutboundMessage{
		ID:        "msg-7",
		PotholeID: "PH-007",
		Category:  domain.CategoryStatusUpdate,
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
}

func TestWebhookSenderStatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		permanent bool
	}{
		{status: http.StatusBadRequest, permanent: true},
		{status: http.StatusTooManyRequests, permanent: false},
		{status: http.StatusBadGateway, permanent: false},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = io.WriteString(w, "nope")
		}))
		sender := NewWebhookSender(config.HTTPNotifier{URL: server.URL, TimeoutSec: 2})
		_, err := sender.Send(context.Background(), domain.OutboundMessage{ID: "msg-1"})
		server.Close()
		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if permanent.Is(err) != tt.permanent {
			t.Fatalf("status %d: permanent=%v err=%v", tt.status, permanent.Is(err), err)
		}
		if !strings.Contains(err.Error(), "nope") {
			t.Fatalf("status %d: body missing from error: %v", tt.status, err)
		}
	}
}

func TestEmailSenderSend(t *testing.T) {
	t.Parallel()

	sender, err := NewEmailSender(config.EmailNotifier{
		SMTPHost: "smtp.local",
		SMTPPort: 2525,
		Username: "mailer",
		Password: "secret",
		From:     "roads@brampton.ca",
	})
	if err != nil {
		t.Fatalf("new email sender: %v", err)
	}

	var (
		gotAddr string
		gotAuth smtp.Auth
		gotFrom string
		gotTo   []string
		gotBody []byte
	)
	sender.sendMail = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotBody = addr, auth, from, to, msg
		return nil
	}

	_, err = sender.Send(context.Background(), domain.OutboundMessage{
		ID:      "msg-1",
		To:      []string{"supervisor@brampton.ca", "manager@brampton.ca"},
		Subject: "Pothole Report\r\nBcc: spam@example.com",
		Body:    "line one\nline two",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if gotAddr != "smtp.local:2525" || gotFrom != "roads@brampton.ca" || gotAuth == nil {
		t.Fatalf("unexpected smtp call addr=%q from=%q auth=%v", gotAddr, gotFrom, gotAuth)
	}
	if !reflect.DeepEqual(gotTo, []string{"supervisor@brampton.ca", "manager@brampton.ca"}) {
		t.Fatalf("to=%v", gotTo)
	}
	if !bytes.Contains(gotBody, []byte("Subject: Pothole Report  Bcc: spam@example.com\r\n")) {
		t.Fatalf("subject header not sanitized:\n%s", gotBody)
	}
	if !bytes.Contains(gotBody, []byte("Message-ID: <msg-1@roadwatch>\r\n")) {
		t.Fatalf("missing message id:\n%s", gotBody)
	}
	if !bytes.HasSuffix(gotBody, []byte("\r\n\r\nline one\r\nline two")) {
		t.Fatalf("unexpected body:\n%s", gotBody)
	}
}

func TestEmailSenderErrors(t *testing.T) {
	t.Parallel()

	sender, err := NewEmailSender(config.EmailNotifier{SMTPHost: "smtp.local", From: "roads@brampton.ca"})
	if err != nil {
		t.Fatalf("new email sender: %v", err)
	}
	sender.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	if _, err := sender.Send(context.Background(), domain.OutboundMessage{}); !permanent.Is(err) {
		t.Fatalf("missing recipients must be permanent, got %v", err)
	}
	_, err = sender.Send(context.Background(), domain.OutboundMessage{To: []string{"a@b.c"}})
	if err == nil || permanent.Is(err) {
		t.Fatalf("smtp failure must be retryable, got %v", err)
	}
}

func TestLogSenderSend(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	sender := NewLogSender(slog.New(slog.NewTextHandler(&out, nil)))
	if _, err := sender.Send(context.Background(), domain.OutboundMessage{ID: "msg-9", Subject: "hello"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if !strings.Contains(out.String(), "message_id=msg-9") {
		t.Fatalf("log output=%q", out.String())
	}
}
