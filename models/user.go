package models

type SignupRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserProfile struct {
	ID       string `json:"id,omitempty"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// ProfileResponse is the account page: the profile plus order statistics.
type ProfileResponse struct {
	User        UserProfile `json:"user"`
	TotalOrders int         `json:"total_orders"`
	TotalSpent  float64     `json:"total_spent"`
}
