package models

// Product is a ready-made item a tailor lists for sale.
// Ordering a product marks it inactive.
type Product struct {
	ID          int64  `json:"id"`
	TailorID    int64  `json:"tailorId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       Money  `json:"price"`
	Size        string `json:"size"`
	ImgURL      string `json:"imgUrl"`
	IsActive    bool   `json:"isActive"`
}

// CartItem links a product into a client's cart
type CartItem struct {
	UserID    int64 `json:"UserID"`
	ProductID int64 `json:"ProductID"`
}

// CartResponse is the body of GET /carts/get-cart/{id}
type CartResponse struct {
	Products []Product `json:"products"`
}
