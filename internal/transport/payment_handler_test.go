package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"shopfront/internal/domain"
	"shopfront/internal/payment"
	"shopfront/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockPaymentService struct {
	handledEvents []*payment.Event
	handleErr     error
}

func (m *mockPaymentService) CreateIntent(ctx context.Context, userID, orderID uuid.UUID) (*service.PaymentIntentResult, error) {
	return nil, service.ErrOrderNotPayable
}

func (m *mockPaymentService) Confirm(ctx context.Context, userID, orderID uuid.UUID, intentID string) (*domain.Order, error) {
	return nil, service.ErrOrderNotPayable
}

func (m *mockPaymentService) HandleEvent(ctx context.Context, event *payment.Event) error {
	if m.handleErr != nil {
		return m.handleErr
	}
	m.handledEvents = append(m.handledEvents, event)
	return nil
}

func (m *mockPaymentService) History(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return nil, nil
}

type mockVerifier struct {
	event *payment.Event
	err   error
}

func (m *mockVerifier) VerifyWebhook(payload []byte, signatureHeader string) (*payment.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.event, nil
}

func postWebhook(handler *PaymentHandler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	handler.Webhook(w, req)
	return w
}

func TestWebhook_VerifiedEventIsHandled(t *testing.T) {
	svc := &mockPaymentService{}
	event := &payment.Event{
		Type: payment.EventIntentSucceeded,
		Intent: &payment.Intent{
			ID:     "pi_test_123",
			Status: payment.IntentStatusSucceeded,
		},
	}
	handler := NewPaymentHandler(svc, &mockVerifier{event: event}, zap.NewNop())

	w := postWebhook(handler, []byte(`{"type":"payment_intent.succeeded"}`), "t=1,v1=abc")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp map[string]bool
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp["received"] {
		t.Error("expected received acknowledgement")
	}

	if len(svc.handledEvents) != 1 || svc.handledEvents[0] != event {
		t.Errorf("expected exactly the verified event to be handled, got %d events", len(svc.handledEvents))
	}
}

func TestWebhook_BadSignatureRejectedBeforeProcessing(t *testing.T) {
	svc := &mockPaymentService{}
	handler := NewPaymentHandler(svc, &mockVerifier{err: payment.ErrInvalidSignature}, zap.NewNop())

	w := postWebhook(handler, []byte(`{"type":"payment_intent.succeeded"}`), "t=1,v1=wrong")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(svc.handledEvents) != 0 {
		t.Error("unverified delivery must not reach the payment service")
	}
}

func TestWebhook_HandlerFailureReturns500(t *testing.T) {
	svc := &mockPaymentService{handleErr: context.DeadlineExceeded}
	event := &payment.Event{Type: payment.EventIntentSucceeded}
	handler := NewPaymentHandler(svc, &mockVerifier{event: event}, zap.NewNop())

	w := postWebhook(handler, []byte(`{}`), "t=1,v1=abc")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
