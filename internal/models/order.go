package models

// CreateOrderRequest is the body of POST /orders/create.
// Products from different tailors are split into one transaction per tailor.
type CreateOrderRequest struct {
	UserID     int64             `json:"UserID"`
	Name       string            `json:"Name"`
	ProductIDs []int64           `json:"ProductIDs"`
	Status     TransactionStatus `json:"Status"`
	TotalPrice Money             `json:"TotalPrice"`
}

// CreateOrderResponse lists the transactions created for an order
type CreateOrderResponse struct {
	TransactionIDs []int64 `json:"transactionIds"`
}
