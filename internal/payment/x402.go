// Package payment implements the toy x402 "payment required"
// convention gating specific read routes. It is explicitly a
// placeholder protocol, not a hardened payment system.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Header names carried by paying requests
const (
	TokenHeader     = "X-Payment"
	SignatureHeader = "X-Payment-Signature"
)

// Quote is the machine-readable pricing metadata returned with every
// 402 response
type Quote struct {
	Route       string `json:"route"`
	Price       int    `json:"price"`
	Currency    string `json:"currency"`
	Chain       string `json:"chain"`
	Description string `json:"description"`
	PaymentURL  string `json:"payment_url"`
}

// Table maps priced routes to their integer price and verifies
// payment proofs
type Table struct {
	prices        map[string]int
	currency      string
	chain         string
	description   string
	paymentURL    string
	demoToken     string
	signingSecret string
}

// Config carries the environment-provided payment settings
type Config struct {
	Currency      string
	Chain         string
	Description   string
	PaymentURL    string
	DemoToken     string
	SigningSecret string
}

// NewTable builds a pricing table over the given route->price map
func NewTable(prices map[string]int, cfg Config) *Table {
	return &Table{
		prices:        prices,
		currency:      cfg.Currency,
		chain:         cfg.Chain,
		description:   cfg.Description,
		paymentURL:    cfg.PaymentURL,
		demoToken:     cfg.DemoToken,
		signingSecret: cfg.SigningSecret,
	}
}

// Price returns the price for a route and whether the route is priced
// at all
func (t *Table) Price(route string) (int, bool) {
	price, ok := t.prices[route]
	return price, ok
}

// QuoteFor builds the 402 response body for a priced route
func (t *Table) QuoteFor(route string) Quote {
	price, _ := t.prices[route]
	return Quote{
		Route:       route,
		Price:       price,
		Currency:    t.currency,
		Chain:       t.chain,
		Description: t.description,
		PaymentURL:  t.paymentURL,
	}
}

// Verify checks a payment proof. It accepts either the configured demo
// token verbatim, or any token accompanied by a signature equal to
// HMAC-SHA256(signing_secret, token), compared in constant time.
func (t *Table) Verify(token, signature string) bool {
	if token == "" {
		return false
	}
	if t.demoToken != "" && hmac.Equal([]byte(token), []byte(t.demoToken)) {
		return true
	}
	if signature == "" || t.signingSecret == "" {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(Sign(t.signingSecret, token)))
}

// Sign computes the hex HMAC-SHA256 signature of a payment token
func Sign(secret, token string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
