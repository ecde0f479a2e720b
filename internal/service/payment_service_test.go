package service

import (
	"context"
	"testing"

	"shopfront/internal/domain"
	"shopfront/internal/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakeGateway records created intents and serves them back by id
type fakeGateway struct {
	intents     map[string]*payment.Intent
	lastAmount  int64
	lastMeta    map[string]string
	createCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: make(map[string]*payment.Intent)}
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	g.createCalls++
	g.lastAmount = amountCents
	g.lastMeta = metadata
	intent := &payment.Intent{
		ID:           "pi_" + uuid.New().String()[:8],
		ClientSecret: "secret_" + uuid.New().String()[:8],
		Status:       "requires_payment_method",
		Metadata:     metadata,
	}
	g.intents[intent.ID] = intent
	return intent, nil
}

func (g *fakeGateway) RetrieveIntent(ctx context.Context, id string) (*payment.Intent, error) {
	intent, ok := g.intents[id]
	if !ok {
		return &payment.Intent{ID: id, Status: "requires_payment_method"}, nil
	}
	return intent, nil
}

func (g *fakeGateway) succeed(id string) {
	if intent, ok := g.intents[id]; ok {
		intent.Status = payment.IntentStatusSucceeded
	}
}

func paymentTestSetup() (*mockOrderRepository, *fakeGateway, PaymentService) {
	repo := newMockOrderRepository()
	gateway := newFakeGateway()
	service := NewPaymentService(repo, gateway, zap.NewNop())
	return repo, gateway, service
}

func TestCreateIntent_ConvertsAmountToCents(t *testing.T) {
	repo, gateway, service := paymentTestSetup()
	owner := uuid.New()
	order := pendingOrder(owner) // total 42.50
	repo.add(order)

	result, err := service.CreateIntent(context.Background(), owner, order.ID)
	if err != nil {
		t.Fatalf("expected intent to be created, got %v", err)
	}

	if gateway.lastAmount != 4250 {
		t.Errorf("expected amount 4250 cents, got %d", gateway.lastAmount)
	}
	if result.ClientSecret == "" {
		t.Error("expected a client secret")
	}
	if gateway.lastMeta["order_id"] != order.ID.String() {
		t.Errorf("expected order id in metadata, got %q", gateway.lastMeta["order_id"])
	}
	if gateway.lastMeta["user_id"] != owner.String() {
		t.Errorf("expected user id in metadata, got %q", gateway.lastMeta["user_id"])
	}
}

func TestCreateIntent_StrangerCannotPay(t *testing.T) {
	repo, _, service := paymentTestSetup()
	order := pendingOrder(uuid.New())
	repo.add(order)

	_, err := service.CreateIntent(context.Background(), uuid.New(), order.ID)
	if err != ErrOrderNotPayable {
		t.Fatalf("expected ErrOrderNotPayable, got %v", err)
	}
}

func TestCreateIntent_NonPendingOrderNotPayable(t *testing.T) {
	repo, _, service := paymentTestSetup()
	owner := uuid.New()

	for _, status := range []domain.OrderStatus{
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
	} {
		order := pendingOrder(owner)
		order.Status = status
		repo.add(order)

		if _, err := service.CreateIntent(context.Background(), owner, order.ID); err != ErrOrderNotPayable {
			t.Errorf("expected ErrOrderNotPayable for %s order, got %v", status, err)
		}
	}
}

func TestCreateIntent_UnknownOrder(t *testing.T) {
	_, _, service := paymentTestSetup()

	_, err := service.CreateIntent(context.Background(), uuid.New(), uuid.New())
	if err != ErrOrderNotPayable {
		t.Fatalf("expected ErrOrderNotPayable, got %v", err)
	}
}

func TestConfirm_MovesOrderToProcessing(t *testing.T) {
	repo, gateway, service := paymentTestSetup()
	owner := uuid.New()
	order := pendingOrder(owner)
	repo.add(order)

	if _, err := service.CreateIntent(context.Background(), owner, order.ID); err != nil {
		t.Fatalf("failed to create intent: %v", err)
	}

	var intentID string
	for id := range gateway.intents {
		intentID = id
	}
	gateway.succeed(intentID)

	confirmed, err := service.Confirm(context.Background(), owner, order.ID, intentID)
	if err != nil {
		t.Fatalf("expected confirmation to succeed, got %v", err)
	}
	if confirmed.Status != domain.OrderStatusProcessing {
		t.Errorf("expected status PROCESSING, got %s", confirmed.Status)
	}
	if confirmed.PaymentRef != intentID {
		t.Errorf("expected payment ref %s, got %s", intentID, confirmed.PaymentRef)
	}
}

func TestConfirm_IncompletePaymentRejected(t *testing.T) {
	repo, gateway, service := paymentTestSetup()
	owner := uuid.New()
	order := pendingOrder(owner)
	repo.add(order)

	if _, err := service.CreateIntent(context.Background(), owner, order.ID); err != nil {
		t.Fatalf("failed to create intent: %v", err)
	}

	var intentID string
	for id := range gateway.intents {
		intentID = id
	}

	// Intent never succeeded on the gateway side
	_, err := service.Confirm(context.Background(), owner, order.ID, intentID)
	if err != ErrPaymentNotCompleted {
		t.Fatalf("expected ErrPaymentNotCompleted, got %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("expected order to remain PENDING, got %s", order.Status)
	}
}

func TestConfirm_StrangerForbidden(t *testing.T) {
	repo, gateway, service := paymentTestSetup()
	owner := uuid.New()
	order := pendingOrder(owner)
	repo.add(order)

	if _, err := service.CreateIntent(context.Background(), owner, order.ID); err != nil {
		t.Fatalf("failed to create intent: %v", err)
	}
	var intentID string
	for id := range gateway.intents {
		intentID = id
	}
	gateway.succeed(intentID)

	_, err := service.Confirm(context.Background(), uuid.New(), order.ID, intentID)
	if err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestConfirmAndWebhook_AreIdempotentTogether(t *testing.T) {
	repo, gateway, service := paymentTestSetup()
	owner := uuid.New()
	order := pendingOrder(owner)
	repo.add(order)

	if _, err := service.CreateIntent(context.Background(), owner, order.ID); err != nil {
		t.Fatalf("failed to create intent: %v", err)
	}
	var intentID string
	for id := range gateway.intents {
		intentID = id
	}
	gateway.succeed(intentID)

	// Synchronous confirm first
	if _, err := service.Confirm(context.Background(), owner, order.ID, intentID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// Webhook arrives afterwards for the same charge
	event := &payment.Event{
		Type:   payment.EventIntentSucceeded,
		Intent: gateway.intents[intentID],
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("webhook handling failed: %v", err)
	}

	// And the client retries confirm
	confirmed, err := service.Confirm(context.Background(), owner, order.ID, intentID)
	if err != nil {
		t.Fatalf("repeated confirm failed: %v", err)
	}

	if confirmed.Status != domain.OrderStatusProcessing {
		t.Errorf("expected status PROCESSING after replays, got %s", confirmed.Status)
	}
	if confirmed.PaymentRef != intentID {
		t.Errorf("expected original payment ref preserved, got %s", confirmed.PaymentRef)
	}
}

func TestHandleEvent_IgnoresOtherEventTypes(t *testing.T) {
	repo, _, service := paymentTestSetup()
	owner := uuid.New()
	order := pendingOrder(owner)
	repo.add(order)

	event := &payment.Event{
		Type: "payment_intent.payment_failed",
		Intent: &payment.Intent{
			ID:       "pi_failed",
			Metadata: map[string]string{"order_id": order.ID.String()},
		},
	}

	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected ignored event to succeed, got %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Errorf("expected order untouched by failed-payment event, got %s", order.Status)
	}
}

func TestHandleEvent_RejectsMissingOrderMetadata(t *testing.T) {
	_, _, service := paymentTestSetup()

	event := &payment.Event{
		Type:   payment.EventIntentSucceeded,
		Intent: &payment.Intent{ID: "pi_no_meta", Metadata: map[string]string{}},
	}

	if err := service.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("expected an error for event without order metadata")
	}
}

func TestHistory_OnlyPaidOrders(t *testing.T) {
	repo, gateway, service := paymentTestSetup()
	owner := uuid.New()

	unpaid := pendingOrder(owner)
	repo.add(unpaid)

	paid := pendingOrder(owner)
	repo.add(paid)

	if _, err := service.CreateIntent(context.Background(), owner, paid.ID); err != nil {
		t.Fatalf("failed to create intent: %v", err)
	}
	var intentID string
	for id := range gateway.intents {
		intentID = id
	}
	gateway.succeed(intentID)
	if _, err := service.Confirm(context.Background(), owner, paid.ID, intentID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	history, err := service.History(context.Background(), owner)
	if err != nil {
		t.Fatalf("failed to list history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 paid order in history, got %d", len(history))
	}
	if history[0].ID != paid.ID {
		t.Errorf("expected paid order %s, got %s", paid.ID, history[0].ID)
	}
}
