package provider

import (
	"fmt"

	"github.com/aionlinecourses/billing-service/internal/config"
	"github.com/aionlinecourses/billing-service/internal/domain/errors"
	"github.com/aionlinecourses/billing-service/internal/domain/provider"
	midtransProvider "github.com/aionlinecourses/billing-service/internal/infrastructure/provider/midtrans"
	stripeProvider "github.com/aionlinecourses/billing-service/internal/infrastructure/provider/stripe"
	"go.uber.org/zap"
)

// Factory creates payment providers by name
type Factory struct {
	config *config.Config
	logger *zap.Logger
}

// NewFactory creates a new provider factory
func NewFactory(config *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		config: config,
		logger: logger,
	}
}

// GetProvider returns the payment provider for the given name. The empty
// string selects stripe.
func (f *Factory) GetProvider(name string) (provider.PaymentProvider, error) {
	switch name {
	case "", "stripe":
		return f.createStripeProvider()
	case "midtrans":
		return f.createMidtransProvider()
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnknownProvider, name)
	}
}

func (f *Factory) createStripeProvider() (provider.PaymentProvider, error) {
	if f.config.Service.StripeSecretKey == "" {
		return nil, fmt.Errorf("stripe secret key not configured")
	}

	return stripeProvider.NewStripeProvider(
		f.config.Service.StripeSecretKey,
		f.logger,
	), nil
}

func (f *Factory) createMidtransProvider() (provider.PaymentProvider, error) {
	if f.config.Service.MidtransServerKey == "" {
		return nil, fmt.Errorf("midtrans server key not configured")
	}

	return midtransProvider.NewMidtransProvider(
		f.config.Service.MidtransServerKey,
		f.config.Service.MidtransIsProduction,
		f.logger,
	), nil
}
