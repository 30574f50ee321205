package paymentControllers

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patriocele/fragrance-api/config"
	"github.com/patriocele/fragrance-api/middleware"
	"github.com/patriocele/fragrance-api/models"
	"github.com/patriocele/fragrance-api/payfast"
	"github.com/patriocele/fragrance-api/store"
)

type fakeNotifier struct {
	confirmed []models.Order
}

func (f *fakeNotifier) OrderConfirmed(o models.Order) {
	f.confirmed = append(f.confirmed, o)
}

func seedPendingOrder(t *testing.T, m *store.Memory, userID string, total float64, items ...models.OrderItem) models.Order {
	t.Helper()
	ctx := context.Background()
	o := models.Order{
		UserID:        userID,
		OrderRef:      "ref-" + userID,
		TotalAmount:   total,
		Status:        models.OrderStatusPendingPayment,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: "payfast",
	}
	require.NoError(t, m.CreateOrder(ctx, &o))
	for i := range items {
		items[i].OrderID = o.ID
	}
	require.NoError(t, m.CreateOrderItems(ctx, items))
	return o
}

func notification(t *testing.T, mPaymentID, status, pfID string) payfast.Notification {
	t.Helper()
	n, err := payfast.ParseITN([]byte("m_payment_id=" + mPaymentID +
		"&payment_status=" + status + "&pf_payment_id=" + pfID))
	require.NoError(t, err)
	return n
}

func TestReconcileTransitionTable(t *testing.T) {
	cases := []struct {
		gatewayStatus string
		wantStatus    models.OrderStatus
		wantPayment   models.PaymentStatus
	}{
		{"COMPLETE", models.OrderStatusConfirmed, models.PaymentStatusPaid},
		{"CANCELLED", models.OrderStatusCancelled, models.PaymentStatusCancelled},
		{"FAILED", models.OrderStatusFailed, models.PaymentStatusFailed},
		{"UNKNOWN_VALUE", models.OrderStatusPendingPayment, models.PaymentStatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.gatewayStatus, func(t *testing.T) {
			ctx := context.Background()
			m := store.NewMemory()
			r := NewReconciler(m, m, nil, nil)
			o := seedPendingOrder(t, m, "user-1", 100)

			err := r.Reconcile(ctx, notification(t, "1", tc.gatewayStatus, "pf-1"))
			require.NoError(t, err)

			got, err := m.OrderByID(ctx, o.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, got.Status)
			assert.Equal(t, tc.wantPayment, got.PaymentStatus)
			assert.Equal(t, "pf-1", got.PayfastPaymentID)
		})
	}
}

func TestReconcileCompleteRunsFollowUps(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	notifier := &fakeNotifier{}
	r := NewReconciler(m, m, nil, notifier)

	p := models.Product{Name: "Oud Royale", Price: 500, StockQuantity: 10}
	require.NoError(t, m.CreateProduct(ctx, &p))
	require.NoError(t, m.UpsertCartLine(ctx, &models.CartItem{
		UserID: "user-1", ProductID: p.ID, SizeVariant: "30ml", Quantity: 2,
	}))
	o := seedPendingOrder(t, m, "user-1", 1199.99,
		models.OrderItem{ProductID: p.ID, Quantity: 2, UnitPrice: 500, SizeVariant: "30ml"})

	require.NoError(t, r.Reconcile(ctx, notification(t, "1", "COMPLETE", "pf-1")))

	after, err := m.ProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, after.StockQuantity)

	lines, err := m.CartLines(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.Len(t, notifier.confirmed, 1)
	assert.Equal(t, o.ID, notifier.confirmed[0].ID)
	assert.Equal(t, models.OrderStatusConfirmed, notifier.confirmed[0].Status)
}

func TestReconcileDuplicateDeliveryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	notifier := &fakeNotifier{}
	r := NewReconciler(m, m, nil, notifier)

	p := models.Product{Name: "A", Price: 500, StockQuantity: 10}
	require.NoError(t, m.CreateProduct(ctx, &p))
	o := seedPendingOrder(t, m, "user-1", 1000,
		models.OrderItem{ProductID: p.ID, Quantity: 2, UnitPrice: 500})

	n := notification(t, "1", "COMPLETE", "pf-1")
	require.NoError(t, r.Reconcile(ctx, n))
	require.NoError(t, r.Reconcile(ctx, n)) // duplicate delivery

	got, err := m.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, got.Status)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)

	// Stock decremented once, broadcast once
	after, err := m.ProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, after.StockQuantity)
	assert.Len(t, notifier.confirmed, 1)
}

func TestReconcileUnknownStatusNoSideEffects(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	notifier := &fakeNotifier{}
	r := NewReconciler(m, m, nil, notifier)

	p := models.Product{Name: "A", Price: 500, StockQuantity: 10}
	require.NoError(t, m.CreateProduct(ctx, &p))
	require.NoError(t, m.UpsertCartLine(ctx, &models.CartItem{
		UserID: "user-1", ProductID: p.ID, Quantity: 1,
	}))
	o := seedPendingOrder(t, m, "user-1", 500,
		models.OrderItem{ProductID: p.ID, Quantity: 1, UnitPrice: 500})

	require.NoError(t, r.Reconcile(ctx, notification(t, "1", "PENDING_WEIRD", "pf-9")))

	got, err := m.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPendingPayment, got.Status)
	assert.Equal(t, models.PaymentStatusPending, got.PaymentStatus)

	after, err := m.ProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, after.StockQuantity)
	lines, err := m.CartLines(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, lines, 1)
	assert.Empty(t, notifier.confirmed)
}

func TestReconcileLateContradictionIgnored(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	r := NewReconciler(m, m, nil, nil)
	o := seedPendingOrder(t, m, "user-1", 100)

	require.NoError(t, r.Reconcile(ctx, notification(t, "1", "COMPLETE", "pf-1")))
	require.NoError(t, r.Reconcile(ctx, notification(t, "1", "CANCELLED", "pf-2")))

	got, err := m.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, "pf-1", got.PayfastPaymentID)
}

func TestReconcileUnknownOrderIsTerminal(t *testing.T) {
	m := store.NewMemory()
	r := NewReconciler(m, m, nil, nil)
	// Unknown order is logged but acknowledged so the gateway stops retrying.
	assert.NoError(t, r.Reconcile(context.Background(), notification(t, "999", "COMPLETE", "pf-1")))
}

func TestReconcileMalformedPaymentIDIsTerminal(t *testing.T) {
	m := store.NewMemory()
	r := NewReconciler(m, m, nil, nil)
	n := payfast.Notification{MPaymentID: "not-a-number", PaymentStatus: "COMPLETE"}
	assert.NoError(t, r.Reconcile(context.Background(), n))
}

func TestReconcileAmountMismatchSkipsTransition(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	r := NewReconciler(m, m, nil, nil)
	o := seedPendingOrder(t, m, "user-1", 1199.99)

	n, err := payfast.ParseITN([]byte("m_payment_id=1&payment_status=COMPLETE&pf_payment_id=pf-1&amount_gross=999.99"))
	require.NoError(t, err)
	require.NoError(t, r.Reconcile(ctx, n))

	got, err := m.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, got.PaymentStatus)
}

// -------- Handler tests --------

type failingOrderStore struct {
	*store.Memory
}

func (f *failingOrderStore) ApplyPaymentTransition(ctx context.Context, id uint, from models.PaymentStatus,
	status models.OrderStatus, payment models.PaymentStatus, pfPaymentID string) (bool, error) {
	return false, errors.New("datastore write failed")
}

func itnRouter(rec *Reconciler, pf config.PayFast) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.POST("/payment/notify", middleware.PayFastITNAuth(pf), WebhookHandler(rec))
	r.GET("/payment/return", ReturnHandler())
	return r
}

// signedITN builds a production-style signed notification body.
func signedITN(passphrase string, pairs [][2]string) string {
	var b strings.Builder
	for _, p := range pairs {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	signed := b.String() + "&passphrase=" + url.QueryEscape(passphrase)
	sum := md5.Sum([]byte(signed))
	return b.String() + "&signature=" + hex.EncodeToString(sum[:])
}

func postITN(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payment/notify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookHandlerRespondsOK(t *testing.T) {
	m := store.NewMemory()
	seedPendingOrder(t, m, "user-1", 100)
	rec := NewReconciler(m, m, nil, nil)
	pf := config.PayFast{Mode: "live", Passphrase: "secretphrase"}
	r := itnRouter(rec, pf)

	w := postITN(r, signedITN("secretphrase", [][2]string{
		{"m_payment_id", "1"},
		{"payment_status", "COMPLETE"},
		{"pf_payment_id", "pf-1"},
	}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	got, err := m.OrderByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
}

func TestWebhookHandlerUnknownOrderStillOK(t *testing.T) {
	m := store.NewMemory()
	rec := NewReconciler(m, m, nil, nil)
	r := itnRouter(rec, config.PayFast{Mode: "sandbox"})

	w := postITN(r, "m_payment_id=404&payment_status=COMPLETE&pf_payment_id=pf-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestWebhookHandlerRejectsBadSignature(t *testing.T) {
	m := store.NewMemory()
	seedPendingOrder(t, m, "user-1", 100)
	rec := NewReconciler(m, m, nil, nil)
	pf := config.PayFast{Mode: "live", Passphrase: "secretphrase"}
	r := itnRouter(rec, pf)

	w := postITN(r, "m_payment_id=1&payment_status=COMPLETE&pf_payment_id=pf-1&signature=deadbeef")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// No state change on rejected notifications
	got, err := m.OrderByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, got.PaymentStatus)
}

func TestWebhookHandlerMethodNotAllowed(t *testing.T) {
	m := store.NewMemory()
	rec := NewReconciler(m, m, nil, nil)
	r := itnRouter(rec, config.PayFast{Mode: "sandbox"})

	req := httptest.NewRequest(http.MethodGet, "/payment/notify", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestWebhookHandlerStoreFailureIs500(t *testing.T) {
	m := store.NewMemory()
	seedPendingOrder(t, m, "user-1", 100)
	f := &failingOrderStore{Memory: m}
	rec := NewReconciler(f, m, nil, nil)
	r := itnRouter(rec, config.PayFast{Mode: "sandbox"})

	w := postITN(r, "m_payment_id=1&payment_status=COMPLETE&pf_payment_id=pf-1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestReturnHandler(t *testing.T) {
	m := store.NewMemory()
	rec := NewReconciler(m, m, nil, nil)
	r := itnRouter(rec, config.PayFast{Mode: "sandbox"})

	req := httptest.NewRequest(http.MethodGet, "/payment/return?order_id=42&payment_status=COMPLETE", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Payment successful!")

	// Hint absent: soft failure message, still 200
	req = httptest.NewRequest(http.MethodGet, "/payment/return", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cancelled or failed")
}
