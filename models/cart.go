package models

// CartLine is one product-and-quantity entry of a session cart. The JSON
// names match the snapshot format written to the cart slot.
type CartLine struct {
	ProductID int     `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ImageRef  string  `json:"image_url,omitempty"`
}

func (l CartLine) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

type ProductInput struct {
	ProductID int     `json:"id" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	UnitPrice float64 `json:"price" binding:"gte=0"`
	ImageRef  string  `json:"image_url"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type CartResponse struct {
	Items []CartLine `json:"items"`
	Total float64    `json:"total"`
	Count int        `json:"count"`
}
