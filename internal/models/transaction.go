package models

import "time"

// TransactionStatus is the lifecycle state of a request or order transaction
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "Pending"
	StatusAccepted   TransactionStatus = "Accepted"
	StatusInProgress TransactionStatus = "InProgress"
	StatusShipped    TransactionStatus = "Shipped"
	StatusFinished   TransactionStatus = "Finished"
	StatusRejected   TransactionStatus = "Rejected"
)

var statusTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:    {StatusAccepted, StatusRejected},
	StatusAccepted:   {StatusInProgress},
	StatusInProgress: {StatusShipped},
	StatusShipped:    {StatusFinished},
}

// CanTransition reports whether s may move to next.
func (s TransactionStatus) CanTransition(next TransactionStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInProgress, StatusShipped, StatusFinished, StatusRejected:
		return true
	}
	return false
}

// Transaction groups what a client bought from one tailor
type Transaction struct {
	ID              int64             `json:"id"`
	TransactionDate time.Time         `json:"transactionDate"`
	UserID          int64             `json:"userId"`
	TailorID        int64             `json:"tailorId"`
	Products        []Product         `json:"products"`
	Requests        []Request         `json:"requests"`
	Status          TransactionStatus `json:"status"`
	TotalPrice      Money             `json:"totalPrice"`
}

// IsRequest reports whether the transaction carries custom requests rather than products.
func (t Transaction) IsRequest() bool {
	return len(t.Requests) > 0
}

// UpdateStatusRequest is the body of the update-status endpoints
type UpdateStatusRequest struct {
	TransactionID int64             `json:"transactionId"`
	NewStatus     TransactionStatus `json:"newStatus"`
}

// ConfirmReceivedRequest is the body of the confirm-received endpoints
type ConfirmReceivedRequest struct {
	TransactionID int64 `json:"transactionId"`
}
