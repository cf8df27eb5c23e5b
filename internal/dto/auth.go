package dto

// SignupRequest registers a customer together with their first site.
type SignupRequest struct {
	SiteType     string  `json:"site_type" validate:"required"`
	SiteName     string  `json:"site_name" validate:"required"`
	SiteURL      string  `json:"site_url" validate:"required"`
	SiteTZ       string  `json:"site_tz" validate:"required"`
	SiteCategory *string `json:"site_category"`

	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`

	AgreePrivacy bool `json:"agree_privacy"`
}

// CustomerSummary is the public view of a customer.
type CustomerSummary struct {
	CustomerID int64  `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair carries a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// DetailResponse is a plain acknowledgement message.
type DetailResponse struct {
	Detail string `json:"detail"`
}
