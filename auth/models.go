package auth

import "time"

// Operator is the domain representation of an account allowed to write
// records. Its ID is the actor stamped into ENTRY_BY and UPDATE_BY.
type Operator struct {
	ID           string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// RegisterRequest contains operator registration data supplied by callers.
type RegisterRequest struct {
	OperatorID string `json:"operator_id"`
	Name       string `json:"name"`
	Password   string `json:"password"`
}

// LoginRequest contains operator login credentials.
type LoginRequest struct {
	OperatorID string `json:"operator_id"`
	Password   string `json:"password"`
}
