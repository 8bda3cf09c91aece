package billing

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindForbidden
	KindConflict
	KindNotFound
	KindExternal
	KindInvalid
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so wrapped copies still compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrNotProvider           = newError(KindForbidden, "not_provider", "only providers can manage subscriptions")
	ErrAlreadySubscribed     = newError(KindConflict, "already_subscribed", "user already has an active subscription")
	ErrNoPaymentMethod       = newError(KindConflict, "no_payment_method", "add a payment method before subscribing")
	ErrNothingToCancel       = newError(KindConflict, "nothing_to_cancel", "no active subscription to cancel")
	ErrNothingToRenew        = newError(KindConflict, "nothing_to_renew", "no subscription to renew")
	ErrLastPaymentMethod     = newError(KindConflict, "last_payment_method", "cannot delete the only payment method")
	ErrSubscriptionNotFound  = newError(KindNotFound, "subscription_not_found", "subscription not found")
	ErrPaymentMethodNotFound = newError(KindNotFound, "payment_method_not_found", "payment method not found")
	ErrInvoiceNotFound       = newError(KindNotFound, "invoice_not_found", "invoice not found")
	ErrPlanLimitReached      = newError(KindForbidden, "plan_limit_reached", "plan limit reached; upgrade your plan to create more")
	ErrPlanNotSynced         = newError(KindConflict, "plan_not_synced", "plan has no gateway price yet")
	ErrNoGatewayCustomer     = newError(KindConflict, "no_gateway_customer", "no billing account yet; subscribe first")
	ErrUnknownPlan           = newError(KindInvalid, "unknown_plan", "unknown plan or billing cycle")
	ErrUnknownResource       = newError(KindInvalid, "unknown_resource", "unknown resource kind")
)

// External wraps a gateway failure.
func External(msg string, err error) *Error {
	return &Error{Kind: KindExternal, Code: "gateway_error", Message: msg, Err: err}
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
