package models

// Role distinguishes the two kinds of account. It is fixed by the login
// endpoint used and never inferred from profile fields.
type Role int

const (
	RoleUser Role = iota
	RoleTailor
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleTailor:
		return "tailor"
	default:
		return "unknown"
	}
}

// LoginRequest is the body of POST /login/user and POST /login/tailor
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by login and GET /validate.
// Exactly one of User or Tailor is set, matching Role.
type SessionResponse struct {
	Token  string  `json:"token,omitempty"`
	Role   Role    `json:"role"`
	User   *User   `json:"user,omitempty"`
	Tailor *Tailor `json:"tailor,omitempty"`
}
