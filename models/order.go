package models

type Order struct {
	ID              int     `json:"id"`
	CustomerName    string  `json:"customer_name"`
	CustomerPhone   string  `json:"customer_phone"`
	CustomerAddress string  `json:"customer_address"`
	ItemsSummary    string  `json:"items_summary"`
	TotalPrice      float64 `json:"total_price"`
	ReceiptURL      string  `json:"receipt_url"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
}

// OrderSubmission is the multipart checkout payload sent to the store API.
type OrderSubmission struct {
	Address      StructuredAddress
	ItemsSummary string
	TotalPrice   float64
	ReceiptURL   string
	ReceiptName  string
	Receipt      []byte
}

type CheckoutResult struct {
	OrderID      int     `json:"order_id,omitempty"`
	WhatsAppLink string  `json:"whatsapp_link,omitempty"`
	ItemsSummary string  `json:"items_summary"`
	Total        float64 `json:"total"`
	ReceiptURL   string  `json:"receipt_url,omitempty"`
}

type OrderNotification struct {
	OrderID      int
	ItemsSummary string
	Total        float64
	Address      StructuredAddress
}

type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type SessionStatus struct {
	SessionID  string `json:"session_id"`
	IsLoggedIn bool   `json:"is_logged_in"`
	CartCount  int    `json:"cart_count"`
}
