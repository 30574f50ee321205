package payfast

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patriocele/fragrance-api/config"
)

func testConfig() config.PayFast {
	return config.PayFast{
		MerchantID:  "10043505",
		MerchantKey: "mezhxf8ti9t1l",
		Passphrase:  "secretphrase",
		ProcessURL:  "https://sandbox.payfast.co.za/eng/process",
		ReturnURL:   "https://shop.example.com/payment/return",
		CancelURL:   "https://shop.example.com/payment/cancel",
		NotifyURL:   "https://shop.example.com/payment/notify",
	}
}

func TestBuildRedirectURL(t *testing.T) {
	redirect := BuildRedirectURL(testConfig(), PaymentRequest{
		OrderID:   42,
		UserID:    "user-1",
		Amount:    1199.99,
		FirstName: "Thandi",
		LastName:  "Nkosi",
		Email:     "thandi@example.com",
		Phone:     "+27123456789",
		ItemName:  "Patriocele Fragrance Order #42",
		ItemDesc:  "2 perfume item(s)",
	})

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "sandbox.payfast.co.za", u.Host)
	assert.Equal(t, "42", q.Get("m_payment_id"))
	assert.Equal(t, "1199.99", q.Get("amount"))
	assert.Equal(t, "42", q.Get("custom_int1"))
	assert.Equal(t, "user-1", q.Get("custom_str1"))
	assert.Equal(t, "https://shop.example.com/payment/return?order_id=42", q.Get("return_url"))
	assert.NotEmpty(t, q.Get("signature"))
}

func TestBuildRedirectURLTruncatesBuyerFields(t *testing.T) {
	long := strings.Repeat("x", 300)
	redirect := BuildRedirectURL(testConfig(), PaymentRequest{
		OrderID:   7,
		Amount:    10,
		FirstName: long,
		LastName:  long,
		Email:     long,
		Phone:     long,
		ItemName:  long,
		ItemDesc:  long,
	})

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	q := u.Query()

	assert.Len(t, q.Get("name_first"), 100)
	assert.Len(t, q.Get("name_last"), 100)
	assert.Len(t, q.Get("email_address"), 100)
	assert.Len(t, q.Get("cell_number"), 20)
	assert.Len(t, q.Get("item_name"), 100)
	assert.Len(t, q.Get("item_description"), 255)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1199.99", FormatAmount(1199.99))
	assert.Equal(t, "10.00", FormatAmount(10))
	assert.Equal(t, "0.50", FormatAmount(0.5))
}

// itnBody builds a signed urlencoded ITN the way the gateway does: md5 over
// the fields in posted order with the passphrase appended.
func itnBody(t *testing.T, passphrase string, pairs [][2]string) string {
	t.Helper()
	var b strings.Builder
	for _, p := range pairs {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	signed := b.String()
	if passphrase != "" {
		signed += "&passphrase=" + url.QueryEscape(passphrase)
	}
	sum := md5.Sum([]byte(signed))
	return b.String() + "&signature=" + hex.EncodeToString(sum[:])
}

func TestParseITN(t *testing.T) {
	body := itnBody(t, "secretphrase", [][2]string{
		{"m_payment_id", "42"},
		{"pf_payment_id", "1089250"},
		{"payment_status", "COMPLETE"},
		{"item_name", "Patriocele Fragrance Order #42"},
		{"amount_gross", "1199.99"},
	})

	n, err := ParseITN([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "42", n.MPaymentID)
	assert.Equal(t, "1089250", n.PfPaymentID)
	assert.Equal(t, "COMPLETE", n.PaymentStatus)
	assert.InDelta(t, 1199.99, n.AmountGross, 0.001)
	assert.True(t, n.VerifySignature("secretphrase"))
}

func TestParseITNMissingPaymentID(t *testing.T) {
	_, err := ParseITN([]byte("payment_status=COMPLETE&pf_payment_id=1"))
	require.Error(t, err)
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	body := itnBody(t, "secretphrase", [][2]string{
		{"m_payment_id", "42"},
		{"pf_payment_id", "1089250"},
		{"payment_status", "COMPLETE"},
	})

	tampered := strings.Replace(body, "COMPLETE", "CANCELLED", 1)
	n, err := ParseITN([]byte(tampered))
	require.NoError(t, err)
	assert.False(t, n.VerifySignature("secretphrase"))

	// Wrong passphrase fails too
	n, err = ParseITN([]byte(body))
	require.NoError(t, err)
	assert.False(t, n.VerifySignature("otherphrase"))
}

func TestVerifySignatureMissingSignature(t *testing.T) {
	n, err := ParseITN([]byte("m_payment_id=42&payment_status=COMPLETE"))
	require.NoError(t, err)
	assert.False(t, n.VerifySignature("secretphrase"))
}

func TestVerifySignaturePreservesFieldOrder(t *testing.T) {
	// Same fields in a different order must produce a different signature,
	// so verification has to respect the received order.
	a := itnBody(t, "pp", [][2]string{{"m_payment_id", "1"}, {"payment_status", "FAILED"}})
	b := itnBody(t, "pp", [][2]string{{"payment_status", "FAILED"}, {"m_payment_id", "1"}})
	require.NotEqual(t, a, b)

	na, err := ParseITN([]byte(a))
	require.NoError(t, err)
	nb, err := ParseITN([]byte(b))
	require.NoError(t, err)
	assert.True(t, na.VerifySignature("pp"))
	assert.True(t, nb.VerifySignature("pp"))
}
