package config

import (
	"os"
	"strconv"
	"time"
)

// Config is loaded once at startup and handed to each component explicitly.
type Config struct {
	HTTPAddr    string
	DatabaseURL string
	RedisAddr   string

	JWTSecret   string
	AdminAPIKey string

	PayFast PayFast

	// Pricing constants used by the order writer. The rounded total computed
	// from these is what webhook amounts are later compared against.
	VATRate         float64
	FlatShippingFee float64

	RequestTimeout time.Duration
}

// PayFast holds the hosted payment page credentials and callback URLs.
type PayFast struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	ProcessURL  string
	ReturnURL   string
	CancelURL   string
	NotifyURL   string
	// Mode "sandbox" skips ITN signature verification, like the gateway's
	// own sandbox does not sign consistently.
	Mode string
}

func Load() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),
		PayFast: PayFast{
			MerchantID:  getenv("PAYFAST_MERCHANT_ID", "10043505"),
			MerchantKey: getenv("PAYFAST_MERCHANT_KEY", "mezhxf8ti9t1l"),
			Passphrase:  os.Getenv("PAYFAST_PASSPHRASE"),
			ProcessURL:  getenv("PAYFAST_PROCESS_URL", "https://sandbox.payfast.co.za/eng/process"),
			ReturnURL:   getenv("PAYFAST_RETURN_URL", "http://localhost:8080/payment/return"),
			CancelURL:   getenv("PAYFAST_CANCEL_URL", "http://localhost:8080/payment/cancel"),
			NotifyURL:   getenv("PAYFAST_NOTIFY_URL", "http://localhost:8080/payment/notify"),
			Mode:        getenv("PAYFAST_MODE", "sandbox"),
		},
		VATRate:         getenvFloat("VAT_RATE", 0.15),
		FlatShippingFee: getenvFloat("FLAT_SHIPPING_FEE", 49.99),
		RequestTimeout:  getenvDuration("REQUEST_TIMEOUT", 10*time.Second),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
