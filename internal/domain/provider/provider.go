package provider

import (
	"context"
)

// PaymentProvider abstracts an external charge gateway. Ordinary business
// failures (declines, expired cards) come back as outcome values, never as
// errors; the error return is reserved for misuse and transport-level
// breakage the caller cannot persist as a terminal transaction status.
// Implementations never touch the ledger store.
type PaymentProvider interface {
	// Charge attempts to capture the amount against a tokenized instrument.
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeOutcome, error)

	// TokenizeInstrument exchanges raw card details for a gateway-side token.
	TokenizeInstrument(ctx context.Context, req *TokenizeRequest) (*TokenizeOutcome, error)

	// CreateAlternativeInstrument provisions a non-card payment handle
	// (virtual account, e-wallet redirect, retail outlet code, QR string).
	CreateAlternativeInstrument(ctx context.Context, req *AlternativeInstrumentRequest) (*AlternativeInstrumentOutcome, error)

	// Name returns the provider name used for adapter selection and
	// transaction reference prefixes.
	Name() string
}

// ChargeRequest is a provider-agnostic charge instruction. Amount is in the
// smallest currency unit, converted by the caller before the adapter runs.
type ChargeRequest struct {
	UserID    int64
	Amount    int64 // smallest currency unit
	Currency  string
	Reference string // internal transaction reference, round-trips through the gateway
	Token     string // gateway-side instrument token
	Statement string // human-readable order description
}

// ChargeOutcome is the tagged result of a charge attempt.
type ChargeOutcome struct {
	Succeeded        bool
	GatewayReference string
	FailureCode      string
	FailureMessage   string
}

// TokenizeRequest carries raw instrument details to the gateway. The raw
// values are never persisted.
type TokenizeRequest struct {
	CardNumber  string
	ExpiryMonth int
	ExpiryYear  int
	CVC         string
}

// TokenizeOutcome is the tagged result of instrument tokenization.
type TokenizeOutcome struct {
	Succeeded      bool
	Token          string
	LastFour       string
	Brand          string
	ExpiryMonth    int
	ExpiryYear     int
	FailureMessage string
}

// AlternativeInstrumentKind enumerates non-card payment flows.
type AlternativeInstrumentKind string

const (
	InstrumentVirtualAccount AlternativeInstrumentKind = "VIRTUAL_ACCOUNT"
	InstrumentEWallet        AlternativeInstrumentKind = "EWALLET"
	InstrumentRetailOutlet   AlternativeInstrumentKind = "RETAIL_OUTLET"
	InstrumentQRCode         AlternativeInstrumentKind = "QR_CODE"
)

// AlternativeInstrumentRequest asks the gateway for a presentable payment
// handle the customer completes out of band.
type AlternativeInstrumentRequest struct {
	Kind      AlternativeInstrumentKind
	Amount    int64 // smallest currency unit
	Currency  string
	Reference string
	Channel   string // bank code, wallet name or store chain, kind-specific
}

// AlternativeInstrumentOutcome carries the handle to present to the customer:
// a VA number, a redirect URL, a payment code or a QR string.
type AlternativeInstrumentOutcome struct {
	Succeeded      bool
	Handle         string
	ExpiresAt      string
	FailureMessage string
}

// Error types for provider operations
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
