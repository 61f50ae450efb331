package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"grocery-autocart/internal/automation"
	"grocery-autocart/internal/platform"
	"grocery-autocart/pkg/models"
)

const demoOTP = "123456"

var phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// Automator is the orchestrator as the boundary sees it.
type Automator interface {
	InitiateLogin(ctx context.Context, phoneNumber, platformName string) (string, error)
	SubmitOTP(ctx context.Context, sessionID, otp string) (*models.SessionData, error)
	AddProductsToCart(ctx context.Context, sessionID string, productURLs []string, variants map[string]string) (*models.CartDetails, error)
	CleanupSession(ctx context.Context, sessionID string)
	Session(ctx context.Context, sessionID string) (*models.SessionData, error)
}

// Pinger is the reachability check for a persistence collaborator.
type Pinger interface {
	PingStore(ctx context.Context) error
	PingCache(ctx context.Context) error
}

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	auto     Automator
	health   Pinger
	demoMode bool
	logger   *zap.Logger
}

// NewHandler creates the boundary handler. demoMode enables the fixed-OTP
// short circuit used for demos and tests.
func NewHandler(auto Automator, health Pinger, demoMode bool, logger *zap.Logger) *Handler {
	return &Handler{
		auto:     auto,
		health:   health,
		demoMode: demoMode,
		logger:   logger.Named("api"),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, models.ErrorResponse{
		Status:  models.StatusError,
		Message: message,
		Code:    code,
	})
}

// mapError translates orchestrator errors into status codes. Internal detail
// stays in the logs; callers get a short message.
func (h *Handler) mapError(w http.ResponseWriter, err error, code string) {
	var unsupported *platform.ErrUnsupportedPlatform
	switch {
	case errors.Is(err, automation.ErrInvalidPhoneNumber):
		h.writeError(w, http.StatusBadRequest, "Invalid phone number format", code)
	case errors.As(err, &unsupported):
		h.writeError(w, http.StatusBadRequest, unsupported.Error(), code)
	case errors.Is(err, automation.ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, "Session not found", code)
	case errors.Is(err, automation.ErrSessionNotAuthenticated):
		h.writeError(w, http.StatusUnauthorized, "Session not authenticated", code)
	default:
		h.logger.Error("request failed", zap.String("code", code), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Something went wrong", code)
	}
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "LOGIN_FAILED")
		return
	}
	if req.PhoneNumber == "" || req.Platform == "" {
		h.writeError(w, http.StatusBadRequest, "Phone number and platform are required", "LOGIN_FAILED")
		return
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		h.writeError(w, http.StatusBadRequest, "Invalid phone number format", "LOGIN_FAILED")
		return
	}
	if !platform.Supported(req.Platform) {
		h.writeError(w, http.StatusBadRequest, "Unsupported platform: "+req.Platform, "LOGIN_FAILED")
		return
	}

	sessionID, err := h.auto.InitiateLogin(r.Context(), req.PhoneNumber, req.Platform)
	if err != nil {
		h.mapError(w, err, "LOGIN_FAILED")
		return
	}

	message := "OTP has been sent to your phone"
	if h.demoMode {
		message = "Demo OTP '" + demoOTP + "' has been sent."
	}
	h.writeJSON(w, http.StatusOK, models.LoginResponse{
		Status:    models.StatusOTPSent,
		Message:   message,
		SessionID: sessionID,
	})
}

// SubmitOTP handles POST /api/submit-otp.
func (h *Handler) SubmitOTP(w http.ResponseWriter, r *http.Request) {
	var req models.OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "OTP_SUBMISSION_FAILED")
		return
	}
	if req.OTP == "" || req.SessionID == "" {
		h.writeError(w, http.StatusBadRequest, "OTP and session ID are required", "OTP_SUBMISSION_FAILED")
		return
	}
	// Demo mode verifies against the fixed code here at the boundary; the
	// orchestrator performs no OTP verification of its own.
	if h.demoMode && req.OTP != demoOTP {
		h.writeError(w, http.StatusUnauthorized, "Invalid OTP. Try '"+demoOTP+"'", "OTP_SUBMISSION_FAILED")
		return
	}

	sess, err := h.auto.SubmitOTP(r.Context(), req.SessionID, req.OTP)
	if err != nil {
		h.mapError(w, err, "OTP_SUBMISSION_FAILED")
		return
	}

	h.writeJSON(w, http.StatusOK, models.OTPResponse{
		Status:      models.StatusSuccess,
		Message:     "OTP verified successfully",
		SessionData: sess.Redacted(),
	})
}

// AddProducts handles POST /api/add-products.
func (h *Handler) AddProducts(w http.ResponseWriter, r *http.Request) {
	var req models.AddProductsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "ADD_PRODUCTS_FAILED")
		return
	}
	if req.SessionID == "" {
		h.writeError(w, http.StatusBadRequest, "Session ID is required", "ADD_PRODUCTS_FAILED")
		return
	}
	if len(req.ProductURLs) == 0 {
		h.writeError(w, http.StatusBadRequest, "Product URLs must be a non-empty array", "ADD_PRODUCTS_FAILED")
		return
	}
	if len(req.Variants) == 0 {
		h.writeError(w, http.StatusBadRequest, "Variants must be a non-empty object", "ADD_PRODUCTS_FAILED")
		return
	}
	for _, raw := range req.ProductURLs {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			h.writeError(w, http.StatusBadRequest, "Invalid URL: "+raw, "ADD_PRODUCTS_FAILED")
			return
		}
	}

	cart, err := h.auto.AddProductsToCart(r.Context(), req.SessionID, req.ProductURLs, req.Variants)
	if err != nil {
		h.mapError(w, err, "ADD_PRODUCTS_FAILED")
		return
	}

	h.writeJSON(w, http.StatusOK, models.AddProductsResponse{
		Status:      models.StatusSuccess,
		CartDetails: cart,
		FinalPrice:  cart.Total,
	})
}

// GetSession handles GET /api/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := h.auto.Session(r.Context(), id)
	if err != nil {
		h.mapError(w, err, "SESSION_LOOKUP_FAILED")
		return
	}
	h.writeJSON(w, http.StatusOK, sess.Redacted())
}

// DeleteSession handles DELETE /api/sessions/{id}. Cleanup is best-effort
// and never reports failure.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h.auto.CleanupSession(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// ListPlatforms handles GET /api/platforms.
func (h *Handler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string][]string{"platforms": platform.Names()})
}

// Health handles GET /api/health: 200 when both persistence collaborators
// answer, 503 when either is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := map[string]string{
		"store": "connected",
		"cache": "connected",
	}
	healthy := true

	if err := h.health.PingStore(ctx); err != nil {
		h.logger.Warn("durable store health check failed", zap.Error(err))
		services["store"] = "error"
		healthy = false
	}
	if err := h.health.PingCache(ctx); err != nil {
		h.logger.Warn("cache health check failed", zap.Error(err))
		services["cache"] = "error"
		healthy = false
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  services,
	})
}
