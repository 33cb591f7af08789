package model

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type SignUpResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Tokens are stateless, signing out only tells the client to forget its token.
type SignOutRequest struct{}

type SignOutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type GetMeRequest struct{}

type GetMeResponse User

func (r SignUpResponse) AccessTokenInfo() string {
	return r.Token
}

func (r SignInResponse) AccessTokenInfo() string {
	return r.Token
}

func (r SignOutResponse) AccessTokenInfo() string {
	return ""
}
