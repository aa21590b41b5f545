package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Web        Web
	DB         DB
	Cors       Cors
	Session    Session
	Pricing    Pricing
	SSLCommerz SSLCommerz
	Stripe     Stripe
	Email      Email
	Rate       Rate
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost:5432"`
	Name       string `conf:"default:storefront"`
	DisableTLS bool   `conf:"default:true"`
}

type Cors struct {
	Origin string
}

type Session struct {
	Lifetime time.Duration `conf:"default:24h"`
}

// Pricing holds the tax rate and the flat shipping fee as decimal strings
// so the values parse exactly.
type Pricing struct {
	TaxRate     string `conf:"default:0.10"`
	ShippingFee string `conf:"default:10.00"`
}

func (p Pricing) Rates() (tax decimal.Decimal, shipping decimal.Decimal, err error) {
	tax, err = decimal.NewFromString(p.TaxRate)
	if err != nil {
		return tax, shipping, fmt.Errorf("parsing tax rate %q: %w", p.TaxRate, err)
	}

	shipping, err = decimal.NewFromString(p.ShippingFee)
	if err != nil {
		return tax, shipping, fmt.Errorf("parsing shipping fee %q: %w", p.ShippingFee, err)
	}

	return tax, shipping, nil
}

type SSLCommerz struct {
	StoreID    string `conf:"default:teststore"`
	StorePass  string `conf:"default:teststore@ssl,mask"`
	Sandbox    bool   `conf:"default:true"`
	SuccessURL string `conf:"default:http://localhost:8000/checkout/success"`
	FailURL    string `conf:"default:http://localhost:8000/checkout/fail"`
	CancelURL  string `conf:"default:http://localhost:8000/checkout/cancel"`
	IPNURL     string `conf:"default:http://localhost:8000/checkout/ipn"`
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	SuccessURL    string `conf:"default:http://localhost:8000/checkout/success"`
	CancelURL     string `conf:"default:http://localhost:8000/checkout/cancel"`
}

type Email struct {
	Host         string `conf:"default:localhost"`
	Port         string `conf:"default:25"`
	Address      string
	Password     string        `conf:"mask"`
	TokenTimeout time.Duration `conf:"default:15m"`
}

type Rate struct {
	AuthRPS   float64       `conf:"default:5"`
	AuthBurst int           `conf:"default:10"`
	Expiry    time.Duration `conf:"default:30m"`
}
