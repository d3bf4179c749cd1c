package workflow

import (
	"errors"
	"fmt"

	"github.com/Lixing-Zhang/tailortech/internal/measurement"
	"github.com/Lixing-Zhang/tailortech/internal/pricing"
	"github.com/Lixing-Zhang/tailortech/internal/tailorapi"
)

var (
	// ErrBusy is returned while another step of the same workflow waits on the network
	ErrBusy = errors.New("workflow busy: a request is already in flight")
	// ErrInvalidState is returned when a step is called out of order
	ErrInvalidState = errors.New("step not allowed in current state")
)

// Kind classifies a user-visible failure
type Kind int

const (
	KindValidation Kind = iota + 1
	KindInvalidCoupon
	KindInsufficientBalance
	KindNetwork
	KindPartialSubmission
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindInvalidCoupon:
		return "InvalidCoupon"
	case KindInsufficientBalance:
		return "InsufficientBalance"
	case KindNetwork:
		return "NetworkError"
	case KindPartialSubmission:
		return "PartialSubmission"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Failure is what a step reports to the user. RequestID is set for
// PartialSubmission: the request exists on the server but its measurements do not.
type Failure struct {
	Kind      Kind
	Message   string
	RequestID int64
	Err       error
}

func (f *Failure) Error() string {
	if f.Err != nil && f.Err.Error() != f.Message {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// IsKind reports whether err is a Failure of kind k
func IsKind(err error, k Kind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == k
}

func validation(msg string, err error) *Failure {
	return &Failure{Kind: KindValidation, Message: msg, Err: err}
}

func network(err error) *Failure {
	return &Failure{Kind: KindNetwork, Message: err.Error(), Err: err}
}

func partial(requestID int64, err error) *Failure {
	return &Failure{
		Kind:      KindPartialSubmission,
		Message:   fmt.Sprintf("payment taken and request %d created, but its measurements were not saved; submit again to finish", requestID),
		RequestID: requestID,
		Err:       err,
	}
}

// unrecorded reports a payment whose request could not be created
func unrecorded(paymentID string, err error) *Failure {
	return &Failure{
		Kind:    KindPartialSubmission,
		Message: fmt.Sprintf("payment %s taken but the request was not created; submit again to finish", paymentID),
		Err:     err,
	}
}

// Classify converts any step error into a Failure. Unknown errors are
// treated as network failures. Nil stays nil.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}

	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	switch {
	case errors.Is(err, pricing.ErrInvalidCoupon):
		return &Failure{Kind: KindInvalidCoupon, Message: err.Error(), Err: err}
	case errors.Is(err, pricing.ErrInsufficientBalance), tailorapi.IsInsufficientBalance(err):
		return &Failure{Kind: KindInsufficientBalance, Message: "insufficient balance", Err: err}
	case errors.Is(err, measurement.ErrIncomplete):
		return validation(msgFillFields, err)
	}
	return network(err)
}
