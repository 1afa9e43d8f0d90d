package service

// LoginRequest is the body of a local login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,max=100"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// DelegatedLoginRequest is the body of a login forwarded to the external identity provider.
type DelegatedLoginRequest struct {
	Login    string `json:"login" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=50"`
}

type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=100"`
	Password  string `json:"password" validate:"required,max=100"`
	Address   string `json:"address" validate:"required,max=200"`
}

type RegisterResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ExplainRequest asks for a policy trace of the identity carried by Token.
// An empty Policies list evaluates every registered policy.
type ExplainRequest struct {
	Token    string   `json:"token" validate:"required"`
	Policies []string `json:"policies,omitempty"`
}

// ProfileResponse is the public view of an account.
type ProfileResponse struct {
	ID        string   `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Address   string   `json:"address,omitempty"`
	Roles     []string `json:"roles"`
}
