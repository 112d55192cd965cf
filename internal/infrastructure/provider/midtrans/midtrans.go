package midtrans

import (
	"context"
	"fmt"

	"github.com/aionlinecourses/billing-service/internal/domain/provider"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"go.uber.org/zap"
)

// MidtransProvider implements the PaymentProvider interface for the regional
// multi-method gateway: card charges plus virtual account, e-wallet, retail
// outlet and QR instruments via the Core API.
type MidtransProvider struct {
	client coreapi.Client
	logger *zap.Logger
}

// NewMidtransProvider creates a new Midtrans provider
func NewMidtransProvider(serverKey string, production bool, logger *zap.Logger) *MidtransProvider {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	var c coreapi.Client
	c.New(serverKey, env)

	return &MidtransProvider{client: c, logger: logger}
}

// Name returns the provider name
func (m *MidtransProvider) Name() string {
	return "midtrans"
}

// Charge captures the amount against a card token. The gateway reports
// declines in-band as transaction_status=deny, which maps to a failed
// outcome rather than an error.
func (m *MidtransProvider) Charge(ctx context.Context, req *provider.ChargeRequest) (*provider.ChargeOutcome, error) {
	chargeReq := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeCreditCard,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: req.Amount,
		},
		CreditCard: &coreapi.CreditCardDetails{
			TokenID: req.Token,
		},
	}

	resp, midErr := m.client.ChargeTransaction(chargeReq)
	if midErr != nil {
		if midErr.StatusCode >= 400 && midErr.StatusCode < 500 {
			m.logger.Warn("Midtrans charge rejected",
				zap.String("reference", req.Reference),
				zap.Int("status_code", midErr.StatusCode))
			return &provider.ChargeOutcome{
				Succeeded:      false,
				FailureCode:    fmt.Sprintf("%d", midErr.StatusCode),
				FailureMessage: midErr.Message,
			}, nil
		}
		m.logger.Error("Midtrans charge transport failure",
			zap.String("reference", req.Reference),
			zap.Error(midErr))
		return nil, fmt.Errorf("midtrans charge failed: %w", midErr)
	}

	switch resp.TransactionStatus {
	case "capture", "settlement":
		return &provider.ChargeOutcome{
			Succeeded:        true,
			GatewayReference: resp.TransactionID,
		}, nil
	default:
		m.logger.Warn("Midtrans charge not settled",
			zap.String("reference", req.Reference),
			zap.String("transaction_status", resp.TransactionStatus),
			zap.String("fraud_status", resp.FraudStatus))
		return &provider.ChargeOutcome{
			Succeeded:        false,
			GatewayReference: resp.TransactionID,
			FailureCode:      resp.TransactionStatus,
			FailureMessage:   resp.StatusMessage,
		}, nil
	}
}

// TokenizeInstrument exchanges raw card details for a Core API card token.
// The token response carries no instrument metadata, so last four and expiry
// are echoed from the request.
func (m *MidtransProvider) TokenizeInstrument(ctx context.Context, req *provider.TokenizeRequest) (*provider.TokenizeOutcome, error) {
	resp, midErr := m.client.CardToken(req.CardNumber, req.ExpiryMonth, req.ExpiryYear, req.CVC, m.client.ClientKey)
	if midErr != nil {
		if midErr.StatusCode >= 400 && midErr.StatusCode < 500 {
			return &provider.TokenizeOutcome{
				Succeeded:      false,
				FailureMessage: midErr.Message,
			}, nil
		}
		return nil, fmt.Errorf("midtrans card tokenization failed: %w", midErr)
	}

	lastFour := req.CardNumber
	if len(lastFour) > 4 {
		lastFour = lastFour[len(lastFour)-4:]
	}

	return &provider.TokenizeOutcome{
		Succeeded:   true,
		Token:       resp.TokenID,
		LastFour:    lastFour,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
	}, nil
}

// CreateAlternativeInstrument provisions a non-card payment handle. The
// charge stays pending on the gateway until the customer completes it out of
// band; settlement arrives later as a webhook.
func (m *MidtransProvider) CreateAlternativeInstrument(ctx context.Context, req *provider.AlternativeInstrumentRequest) (*provider.AlternativeInstrumentOutcome, error) {
	chargeReq := &coreapi.ChargeReq{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: req.Amount,
		},
	}

	switch req.Kind {
	case provider.InstrumentVirtualAccount:
		chargeReq.PaymentType = coreapi.PaymentTypeBankTransfer
		chargeReq.BankTransfer = &coreapi.BankTransferDetails{
			Bank: midtrans.Bank(req.Channel),
		}
	case provider.InstrumentEWallet:
		chargeReq.PaymentType = coreapi.PaymentTypeGopay
		chargeReq.Gopay = &coreapi.GopayDetails{
			EnableCallback: true,
		}
	case provider.InstrumentRetailOutlet:
		chargeReq.PaymentType = coreapi.PaymentTypeConvenienceStore
		chargeReq.ConvStore = &coreapi.ConvStoreDetails{
			Store: req.Channel,
		}
	case provider.InstrumentQRCode:
		chargeReq.PaymentType = coreapi.PaymentTypeQris
		chargeReq.Qris = &coreapi.QrisDetails{
			Acquirer: "gopay",
		}
	default:
		return nil, &provider.ProviderError{
			Code:    "UNSUPPORTED_INSTRUMENT",
			Message: fmt.Sprintf("unsupported instrument kind: %s", req.Kind),
		}
	}

	resp, midErr := m.client.ChargeTransaction(chargeReq)
	if midErr != nil {
		if midErr.StatusCode >= 400 && midErr.StatusCode < 500 {
			return &provider.AlternativeInstrumentOutcome{
				Succeeded:      false,
				FailureMessage: midErr.Message,
			}, nil
		}
		return nil, fmt.Errorf("midtrans instrument creation failed: %w", midErr)
	}

	outcome := &provider.AlternativeInstrumentOutcome{
		Succeeded: true,
		Handle:    instrumentHandle(req.Kind, resp),
		ExpiresAt: resp.ExpiryTime,
	}
	if outcome.Handle == "" {
		outcome.Succeeded = false
		outcome.FailureMessage = fmt.Sprintf("gateway returned no handle for %s", req.Kind)
	}
	return outcome, nil
}

// instrumentHandle extracts the customer-facing handle from the kind-specific
// part of the charge response.
func instrumentHandle(kind provider.AlternativeInstrumentKind, resp *coreapi.ChargeResponse) string {
	switch kind {
	case provider.InstrumentVirtualAccount:
		if len(resp.VaNumbers) > 0 {
			return resp.VaNumbers[0].VANumber
		}
		return resp.PermataVaNumber
	case provider.InstrumentEWallet:
		for _, action := range resp.Actions {
			if action.Name == "deeplink-redirect" {
				return action.URL
			}
		}
		if len(resp.Actions) > 0 {
			return resp.Actions[0].URL
		}
		return ""
	case provider.InstrumentRetailOutlet:
		return resp.PaymentCode
	case provider.InstrumentQRCode:
		return resp.QRString
	default:
		return ""
	}
}
