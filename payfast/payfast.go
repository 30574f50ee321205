// Package payfast implements the PayFast hosted payment page request format
// and the ITN (Instant Transaction Notification) wire format.
package payfast

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/patriocele/fragrance-api/config"
)

// ITNContextKey is where the verification middleware stashes the parsed
// notification for the webhook handler.
const ITNContextKey = "payfast_itn"

// Payment statuses reported by the gateway in an ITN.
const (
	StatusComplete  = "COMPLETE"
	StatusCancelled = "CANCELLED"
	StatusFailed    = "FAILED"
)

// Documented field length limits for buyer-supplied strings. Values over the
// limit are truncated, not rejected.
const (
	maxNameLen        = 100
	maxEmailLen       = 100
	maxPhoneLen       = 20
	maxItemNameLen    = 100
	maxDescriptionLen = 255
)

type field struct {
	name, value string
}

// PaymentRequest carries everything the redirect builder needs. It reads the
// order but never writes it.
type PaymentRequest struct {
	OrderID   uint
	UserID    string
	Amount    float64
	FirstName string
	LastName  string
	Email     string
	Phone     string
	ItemName  string
	ItemDesc  string
}

// BuildRedirectURL constructs the hosted payment page URL. The order id and
// amount travel as m_payment_id / amount and again as custom tracking fields
// so the webhook can look the order back up unambiguously. The amount is
// always a 2-decimal string.
func BuildRedirectURL(cfg config.PayFast, p PaymentRequest) string {
	orderID := strconv.FormatUint(uint64(p.OrderID), 10)
	fields := []field{
		{"merchant_id", cfg.MerchantID},
		{"merchant_key", cfg.MerchantKey},
		{"return_url", cfg.ReturnURL + "?order_id=" + orderID},
		{"cancel_url", cfg.CancelURL + "?order_id=" + orderID},
		{"notify_url", cfg.NotifyURL},
		{"name_first", truncate(p.FirstName, maxNameLen)},
		{"name_last", truncate(p.LastName, maxNameLen)},
		{"email_address", truncate(p.Email, maxEmailLen)},
		{"cell_number", truncate(p.Phone, maxPhoneLen)},
		{"m_payment_id", orderID},
		{"amount", FormatAmount(p.Amount)},
		{"item_name", truncate(p.ItemName, maxItemNameLen)},
		{"item_description", truncate(p.ItemDesc, maxDescriptionLen)},
		{"custom_int1", orderID},
		{"custom_str1", p.UserID},
	}

	var b strings.Builder
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(f.name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.value))
	}
	encoded := b.String()
	return cfg.ProcessURL + "?" + encoded + "&signature=" + sign(encoded, cfg.Passphrase)
}

// FormatAmount renders an amount the way the gateway expects it: exactly two
// decimal places.
func FormatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// sign computes the MD5 signature over an already-encoded parameter string,
// with the passphrase appended when configured.
func sign(encoded, passphrase string) string {
	if passphrase != "" {
		encoded += "&passphrase=" + url.QueryEscape(passphrase)
	}
	sum := md5.Sum([]byte(encoded))
	return hex.EncodeToString(sum[:])
}

// Notification is a parsed ITN body. Field order as received is retained
// because the signature is computed over the fields in that order.
type Notification struct {
	MPaymentID    string
	PfPaymentID   string
	PaymentStatus string
	AmountGross   float64
	Signature     string

	fields []field
}

// ParseITN decodes a urlencoded ITN body, preserving field order.
func ParseITN(body []byte) (Notification, error) {
	var n Notification
	for _, pair := range strings.Split(string(body), "&") {
		if pair == "" {
			continue
		}
		name, rawValue, _ := strings.Cut(pair, "=")
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return Notification{}, fmt.Errorf("payfast: bad ITN field %q: %w", name, err)
		}
		n.fields = append(n.fields, field{name, value})
		switch name {
		case "m_payment_id":
			n.MPaymentID = value
		case "pf_payment_id":
			n.PfPaymentID = value
		case "payment_status":
			n.PaymentStatus = value
		case "amount_gross":
			n.AmountGross, _ = strconv.ParseFloat(value, 64)
		case "signature":
			n.Signature = value
		}
	}
	if n.MPaymentID == "" {
		return Notification{}, fmt.Errorf("payfast: ITN missing m_payment_id")
	}
	return n, nil
}

// VerifySignature recomputes the MD5 over the received fields (signature
// excluded, order preserved) and compares it to the posted signature.
func (n Notification) VerifySignature(passphrase string) bool {
	if n.Signature == "" {
		return false
	}
	var b strings.Builder
	for _, f := range n.fields {
		if f.name == "signature" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(f.name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.value))
	}
	return strings.EqualFold(sign(b.String(), passphrase), n.Signature)
}
