package errors

import "errors"

var (
	// ErrDuplicateSubscription indicates an ACTIVE or TRIALING subscription
	// already exists for the (user, course) pair
	ErrDuplicateSubscription = errors.New("user already has an active subscription for this course")

	// ErrSubscriptionNotFound indicates that the specified subscription was not found
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrSubscriptionTerminal indicates the subscription is in a terminal state
	ErrSubscriptionTerminal = errors.New("subscription is canceled or expired")

	// ErrCourseNotFound indicates the referenced course does not exist
	ErrCourseNotFound = errors.New("course not found")

	// ErrPaymentMethodNotFound indicates the payment method does not exist or
	// does not belong to the user
	ErrPaymentMethodNotFound = errors.New("payment method not found")

	// ErrTransactionNotFound indicates that the referenced transaction was not found
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrChargeDeclined indicates the gateway declined the charge; the FAILED
	// transaction record has already been persisted when this is returned
	ErrChargeDeclined = errors.New("charge declined by payment gateway")

	// ErrRefundNotAllowed indicates the transaction is not in a refundable state
	ErrRefundNotAllowed = errors.New("only completed transactions can be refunded")

	// ErrDisputeNotFound indicates that the specified dispute was not found
	ErrDisputeNotFound = errors.New("dispute not found")

	// ErrDisputeTerminal indicates the dispute already reached a terminal status
	ErrDisputeTerminal = errors.New("dispute is already resolved or cancelled")

	// ErrInvalidSignature indicates the webhook signature did not match the payload
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedPayload indicates the webhook payload could not be decoded
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrEventInFlight indicates another delivery of the same event id is being
	// processed; the gateway should redeliver later
	ErrEventInFlight = errors.New("webhook event is already being processed")

	// ErrUnknownProvider indicates no gateway adapter is registered for the name
	ErrUnknownProvider = errors.New("unknown payment provider")
)
