package auth

// LoginPayload represents the login request body.
type LoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// RegisterPayload represents the registration request body.
type RegisterPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// MeResponse represents the current user response.
type MeResponse struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
}
