package models

// Response status strings shared by all endpoints.
const (
	StatusOTPSent = "OTP_SENT"
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// LoginRequest is the payload for POST /api/login.
type LoginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Platform    string `json:"platform"`
}

// LoginResponse reports whether the OTP was dispatched.
type LoginResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// OTPRequest is the payload for POST /api/submit-otp.
type OTPRequest struct {
	OTP       string `json:"otp"`
	SessionID string `json:"sessionId"`
}

// OTPResponse carries the authenticated session record on success.
type OTPResponse struct {
	Status      string       `json:"status"`
	Message     string       `json:"message"`
	SessionData *SessionData `json:"sessionData,omitempty"`
}

// AddProductsRequest is the payload for POST /api/add-products.
// Variants maps a product id (the final path segment of the product URL)
// to the desired variant label, matched by substring against the page.
type AddProductsRequest struct {
	SessionID   string            `json:"sessionId"`
	ProductURLs []string          `json:"productUrls"`
	Variants    map[string]string `json:"variants"`
}

// AddProductsResponse returns the normalized cart.
type AddProductsResponse struct {
	Status      string       `json:"status"`
	CartDetails *CartDetails `json:"cartDetails,omitempty"`
	FinalPrice  float64      `json:"finalPrice,omitempty"`
	Message     string       `json:"message,omitempty"`
}

// ErrorResponse is the uniform error shape for all endpoints.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
