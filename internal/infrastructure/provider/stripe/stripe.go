package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/aionlinecourses/billing-service/internal/domain/provider"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/paymentmethod"
	"go.uber.org/zap"
)

// StripeProvider implements the PaymentProvider interface against the Stripe
// card network API.
type StripeProvider struct {
	logger *zap.Logger
}

// NewStripeProvider creates a new Stripe provider
func NewStripeProvider(secretKey string, logger *zap.Logger) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{logger: logger}
}

// Name returns the provider name
func (s *StripeProvider) Name() string {
	return "stripe"
}

// Charge captures the amount against a tokenized payment method with an
// off-session confirmed PaymentIntent. Card declines come back as outcome
// values so the caller can persist a terminal FAILED transaction.
func (s *StripeProvider) Charge(ctx context.Context, req *provider.ChargeRequest) (*provider.ChargeOutcome, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(req.Token),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
		Description:   stripe.String(req.Statement),
	}
	params.Context = ctx
	params.AddMetadata("reference", req.Reference)

	pi, err := paymentintent.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			s.logger.Warn("Stripe charge declined",
				zap.String("reference", req.Reference),
				zap.String("code", string(stripeErr.Code)),
				zap.String("decline_code", string(stripeErr.DeclineCode)))
			return &provider.ChargeOutcome{
				Succeeded:        false,
				FailureCode:      declineCode(stripeErr),
				FailureMessage:   stripeErr.Msg,
				GatewayReference: paymentIntentID(stripeErr),
			}, nil
		}
		s.logger.Error("Stripe charge transport failure",
			zap.String("reference", req.Reference),
			zap.Error(err))
		return nil, fmt.Errorf("stripe charge failed: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return &provider.ChargeOutcome{
			Succeeded:        false,
			GatewayReference: pi.ID,
			FailureCode:      string(pi.Status),
			FailureMessage:   fmt.Sprintf("payment intent in status %s", pi.Status),
		}, nil
	}

	return &provider.ChargeOutcome{
		Succeeded:        true,
		GatewayReference: pi.ID,
	}, nil
}

// TokenizeInstrument exchanges raw card details for a Stripe PaymentMethod id.
func (s *StripeProvider) TokenizeInstrument(ctx context.Context, req *provider.TokenizeRequest) (*provider.TokenizeOutcome, error) {
	params := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(req.CardNumber),
			ExpMonth: stripe.Int64(int64(req.ExpiryMonth)),
			ExpYear:  stripe.Int64(int64(req.ExpiryYear)),
			CVC:      stripe.String(req.CVC),
		},
	}
	params.Context = ctx

	pm, err := paymentmethod.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			s.logger.Warn("Stripe tokenization rejected",
				zap.String("code", string(stripeErr.Code)))
			return &provider.TokenizeOutcome{
				Succeeded:      false,
				FailureMessage: stripeErr.Msg,
			}, nil
		}
		return nil, fmt.Errorf("stripe tokenization failed: %w", err)
	}

	outcome := &provider.TokenizeOutcome{
		Succeeded: true,
		Token:     pm.ID,
	}
	if pm.Card != nil {
		outcome.LastFour = pm.Card.Last4
		outcome.Brand = string(pm.Card.Brand)
		outcome.ExpiryMonth = int(pm.Card.ExpMonth)
		outcome.ExpiryYear = int(pm.Card.ExpYear)
	}
	return outcome, nil
}

// CreateAlternativeInstrument is not part of the card-network surface.
func (s *StripeProvider) CreateAlternativeInstrument(ctx context.Context, req *provider.AlternativeInstrumentRequest) (*provider.AlternativeInstrumentOutcome, error) {
	return nil, &provider.ProviderError{
		Code:    "NOT_SUPPORTED",
		Message: fmt.Sprintf("stripe does not provision %s instruments", req.Kind),
	}
}

func declineCode(err *stripe.Error) string {
	if err.DeclineCode != "" {
		return string(err.DeclineCode)
	}
	return string(err.Code)
}

func paymentIntentID(err *stripe.Error) string {
	if err.PaymentIntent != nil {
		return err.PaymentIntent.ID
	}
	return ""
}
