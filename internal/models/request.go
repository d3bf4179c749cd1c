package models

// CreateRequestRequest is the body of POST /requests/create.
// RequestType is the category code.
type CreateRequestRequest struct {
	UserID      int64             `json:"UserID"`
	Name        string            `json:"Name"`
	Desc        string            `json:"Desc"`
	Price       Money             `json:"Price"`
	RequestType int               `json:"RequestType"`
	TailorID    int64             `json:"TailorID"`
	Status      TransactionStatus `json:"Status"`
	TotalPrice  Money             `json:"TotalPrice"`
}

// CreatedResponse carries the ID of a created resource
type CreatedResponse struct {
	ID int64 `json:"ID"`
}

// Request is a persisted custom tailoring request
type Request struct {
	ID          int64          `json:"id"`
	TailorID    int64          `json:"tailorId"`
	UserID      int64          `json:"userId"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       Money          `json:"price"`
	Category    Category       `json:"category"`
	Measurement map[string]any `json:"measurement,omitempty"`
}
