package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/patriocele/fragrance-api/config"
	"github.com/patriocele/fragrance-api/payfast"
)

// PayFastITNAuth parses the notification body, verifies its signature against
// the shared passphrase and stashes the parsed notification for the handler.
// A forged or broken signature is rejected with an error status so the
// gateway does not treat the delivery as acknowledged. Verification is
// skipped in sandbox mode, where the gateway does not sign consistently.
func PayFastITNAuth(cfg config.PayFast) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read notification body"})
			c.Abort()
			return
		}

		n, err := payfast.ParseITN(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		if cfg.Mode != "sandbox" && cfg.Mode != "dev" {
			if !n.VerifySignature(cfg.Passphrase) {
				log.Printf("ITN signature verification failed (pf_payment_id=%s)", n.PfPaymentID)
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification signature"})
				c.Abort()
				return
			}
		}

		c.Set(payfast.ITNContextKey, n)
		c.Next()
	}
}
