package paymentControllers

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/patriocele/fragrance-api/models"
	"github.com/patriocele/fragrance-api/payfast"
	"github.com/patriocele/fragrance-api/store"
)

// Notifier is told about orders whose payment was just confirmed. The
// websocket feed implements it; tests use a capture fake.
type Notifier interface {
	OrderConfirmed(order models.Order)
}

// Reconciler applies gateway notifications to order state, idempotently.
// It is the only writer of final payment state.
type Reconciler struct {
	store store.Store
	tx    store.TxRunner
	// Optional advisory dedupe guard; the conditional DB update remains
	// authoritative when rdb is nil or unreachable.
	rdb      *redis.Client
	notifier Notifier
}

func NewReconciler(s store.Store, tx store.TxRunner, rdb *redis.Client, n Notifier) *Reconciler {
	return &Reconciler{store: s, tx: tx, rdb: rdb, notifier: n}
}

// transitionFor maps a reported payment status to the (status,
// payment_status) pair written to the order. Unrecognized values map to the
// pending pair.
func transitionFor(paymentStatus string) (models.OrderStatus, models.PaymentStatus) {
	switch paymentStatus {
	case payfast.StatusComplete:
		return models.OrderStatusConfirmed, models.PaymentStatusPaid
	case payfast.StatusCancelled:
		return models.OrderStatusCancelled, models.PaymentStatusCancelled
	case payfast.StatusFailed:
		return models.OrderStatusFailed, models.PaymentStatusFailed
	default:
		return models.OrderStatusPendingPayment, models.PaymentStatusPending
	}
}

// Reconcile looks the order up by the notification's tracking id and applies
// the transition. A nil return means a terminal decision was reached and the
// gateway is owed 200; a non-nil return means a local failure worth a retry.
func (r *Reconciler) Reconcile(ctx context.Context, n payfast.Notification) error {
	id64, err := strconv.ParseUint(n.MPaymentID, 10, 64)
	if err != nil {
		log.Printf("ITN with malformed m_payment_id %q ignored", n.MPaymentID)
		return nil
	}
	orderID := uint(id64)

	order, err := r.store.OrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Gateways retry on non-2xx; an unknown order will not
			// become known, so acknowledge and log the anomaly.
			log.Printf("ITN for unknown order %d (pf_payment_id=%s)", orderID, n.PfPaymentID)
			return nil
		}
		return err
	}

	if n.AmountGross > 0 && math.Abs(n.AmountGross-order.TotalAmount) > 0.01 {
		log.Printf("ITN amount mismatch for order %d: got %.2f, expected %.2f; no transition applied",
			orderID, n.AmountGross, order.TotalAmount)
		return nil
	}

	if r.duplicateDelivery(ctx, n) {
		log.Printf("duplicate ITN for order %d (pf_payment_id=%s) short-circuited", orderID, n.PfPaymentID)
		return nil
	}

	status, payment := transitionFor(n.PaymentStatus)

	// Terminal states are absorbing: only a still-pending order can move.
	// Replayed notifications fail the guard and fall through as no-ops.
	applied, err := r.store.ApplyPaymentTransition(ctx, orderID,
		models.PaymentStatusPending, status, payment, n.PfPaymentID)
	if err != nil {
		// The gateway will retry; release the guard so the retry is not
		// mistaken for a duplicate.
		r.releaseGuard(ctx, n)
		return err
	}
	if !applied {
		log.Printf("order %d already reconciled; ITN %s ignored", orderID, n.PfPaymentID)
		return nil
	}
	log.Printf("order %d reconciled to (%s, %s)", orderID, status, payment)

	if payment == models.PaymentStatusPaid {
		r.confirmFollowUps(ctx, order)
	}
	return nil
}

// duplicateDelivery consults the optional Redis guard. Redis errors are
// advisory only and never block reconciliation.
func (r *Reconciler) duplicateDelivery(ctx context.Context, n payfast.Notification) bool {
	if r.rdb == nil || n.PfPaymentID == "" {
		return false
	}
	key := "payfast:itn:" + n.PfPaymentID + ":" + n.PaymentStatus
	set, err := r.rdb.SetNX(ctx, key, 1, 24*time.Hour).Result()
	if err != nil {
		log.Printf("ITN dedupe guard unavailable: %v", err)
		return false
	}
	return !set
}

func (r *Reconciler) releaseGuard(ctx context.Context, n payfast.Notification) {
	if r.rdb == nil || n.PfPaymentID == "" {
		return
	}
	r.rdb.Del(ctx, "payfast:itn:"+n.PfPaymentID+":"+n.PaymentStatus)
}

// confirmFollowUps runs the post-payment side effects: stock decrement per
// item, cart clearing, and the confirmed-order broadcast. Failures are
// logged, never fatal to the 200 owed to the gateway, and cannot run twice
// because only the first transition to paid reaches here.
func (r *Reconciler) confirmFollowUps(ctx context.Context, order models.Order) {
	items, err := r.store.OrderItems(ctx, order.ID)
	if err != nil {
		log.Printf("order %d: failed to load items for stock decrement: %v", order.ID, err)
		items = nil
	}
	for _, it := range items {
		if err := r.store.DecrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			log.Printf("order %d: stock decrement failed for product %d: %v", order.ID, it.ProductID, err)
		}
	}
	if err := r.store.ClearCart(ctx, order.UserID); err != nil {
		log.Printf("order %d: cart clear failed for user %s: %v", order.ID, order.UserID, err)
	}
	if r.notifier != nil {
		confirmed, err := r.store.OrderByID(ctx, order.ID)
		if err != nil {
			confirmed = order
			confirmed.Status = models.OrderStatusConfirmed
			confirmed.PaymentStatus = models.PaymentStatusPaid
		}
		r.notifier.OrderConfirmed(confirmed)
	}
}

// -------- Handlers --------

// WebhookHandler is the notify_url target. It always answers 200 "OK" once a
// terminal decision is reached; 500 only when the datastore write failed and
// a gateway retry can help.
func WebhookHandler(r *Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, ok := notificationFrom(c)
		if !ok {
			return
		}
		if err := r.Reconcile(c.Request.Context(), n); err != nil {
			log.Printf("ITN reconciliation failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database update failed"})
			return
		}
		c.String(http.StatusOK, "OK")
	}
}

// notificationFrom prefers the middleware-parsed ITN and falls back to
// parsing the body directly when the route runs without the middleware.
func notificationFrom(c *gin.Context) (payfast.Notification, bool) {
	if v, exists := c.Get(payfast.ITNContextKey); exists {
		return v.(payfast.Notification), true
	}
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return payfast.Notification{}, false
	}
	n, err := payfast.ParseITN(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return payfast.Notification{}, false
	}
	return n, true
}

// ReturnHandler serves the synchronous browser redirect back from the
// payment page. The status hint is informational only; this path never
// writes order state and the webhook may later contradict it.
func ReturnHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Query("order_id")
		if c.Query("payment_status") == payfast.StatusComplete {
			c.JSON(http.StatusOK, gin.H{
				"success":  true,
				"message":  "Payment successful!",
				"order_id": orderID,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "Payment was cancelled or failed",
		})
	}
}
