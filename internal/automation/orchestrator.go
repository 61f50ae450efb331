// Package automation turns abstract intents (log in, submit OTP, add these
// products) into scripted browser interaction sequences against a platform's
// selectors, persisting session state after every sequence.
package automation

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grocery-autocart/internal/config"
	"grocery-autocart/internal/platform"
	"grocery-autocart/internal/store"
	"grocery-autocart/pkg/models"
)

var phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// Orchestrator is the session state machine:
// unauthenticated -> otp_pending -> authenticated -> cart_building -> cart_ready,
// with failed reachable from any non-terminal state. Any step failure is
// fatal to the whole operation; a retried intent restarts its phase from the
// beginning, relying on restored cookies to skip redundant work.
type Orchestrator struct {
	driver   Driver
	sessions SessionRepository
	cfg      *config.Config
	logger   *zap.Logger
}

// New wires the orchestrator.
func New(driver Driver, sessions SessionRepository, cfg *config.Config, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		driver:   driver,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger.Named("automation"),
	}
}

type step struct {
	name string
	fn   func() error
}

// runSteps executes the steps in order; the first failure moves the session
// to failed, closes its context, and returns an OperationError naming the step.
func (o *Orchestrator) runSteps(ctx context.Context, op string, sess *models.SessionData, steps []step) error {
	for _, st := range steps {
		if err := st.fn(); err != nil {
			return o.fail(ctx, op, st.name, sess, err)
		}
	}
	return nil
}

// fail is the single transition into the terminal state. It never leaves a
// failed session holding a live context.
func (o *Orchestrator) fail(ctx context.Context, op, stepName string, sess *models.SessionData, cause error) error {
	o.logger.Error("operation failed",
		zap.String("op", op),
		zap.String("step", stepName),
		zap.String("session_id", sess.ID),
		zap.Error(cause))

	o.driver.Close(sess.ID)

	sess.State = models.StateFailed
	sess.FailureReason = stepName + ": " + cause.Error()
	sess.UpdatedAt = time.Now()
	if err := o.sessions.Save(ctx, sess); err != nil {
		o.logger.Warn("failed to persist failed session state",
			zap.String("session_id", sess.ID), zap.Error(err))
	}

	return &OperationError{Op: op, Step: stepName, Err: cause}
}

// captureState pulls cookies, URL, and the DOM snapshot from the live
// context into the session record. All three are read before any is applied,
// so a failure partway commits nothing.
func (o *Orchestrator) captureState(ctx context.Context, sess *models.SessionData) error {
	cookies, err := o.driver.Cookies(ctx, sess.ID)
	if err != nil {
		return err
	}
	url, err := o.driver.CurrentURL(ctx, sess.ID)
	if err != nil {
		return err
	}
	snapshot, err := o.driver.Snapshot(ctx, sess.ID)
	if err != nil {
		return err
	}

	sess.Cookies = cookies
	sess.CurrentURL = url
	sess.DOMSnapshot = snapshot
	sess.UpdatedAt = time.Now()
	return nil
}

// InitiateLogin starts a fresh session on the platform and drives it up to
// the point where the platform has sent an OTP. Returns the new session id.
func (o *Orchestrator) InitiateLogin(ctx context.Context, phoneNumber, platformName string) (string, error) {
	if !phonePattern.MatchString(phoneNumber) {
		return "", ErrInvalidPhoneNumber
	}
	cfg, err := platform.Resolve(platformName)
	if err != nil {
		return "", err
	}

	now := time.Now()
	sess := &models.SessionData{
		ID:          uuid.New().String(),
		PhoneNumber: phoneNumber,
		Platform:    platformName,
		State:       models.StateUnauthenticated,
		Cookies:     []models.Cookie{},
		CurrentURL:  cfg.BaseURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := o.sessions.Save(ctx, sess); err != nil {
		return "", err
	}

	if o.cfg.MockMode {
		sess.State = models.StateOTPPending
		sess.UpdatedAt = time.Now()
		if err := o.sessions.Save(ctx, sess); err != nil {
			return "", err
		}
		o.logger.Info("mock login initiated", zap.String("session_id", sess.ID))
		return sess.ID, nil
	}

	sel := cfg.Selectors
	steps := []step{
		{"restore browser context", func() error { return o.driver.RestoreOrCreate(ctx, sess.ID, sess) }},
		{"navigate to platform", func() error { return o.driver.Navigate(ctx, sess.ID, cfg.BaseURL) }},
		{"wait for login button", func() error { return o.driver.WaitForSelector(ctx, sess.ID, sel.LoginButton, 0) }},
		{"click login button", func() error { return o.driver.Click(ctx, sess.ID, sel.LoginButton) }},
		{"wait for phone input", func() error { return o.driver.WaitForSelector(ctx, sess.ID, sel.PhoneInput, 0) }},
		{"enter phone number", func() error { return o.driver.Type(ctx, sess.ID, sel.PhoneInput, phoneNumber) }},
		{"submit phone number", func() error { return o.driver.Click(ctx, sess.ID, sel.SubmitButton) }},
		{"settle after submit", func() error { return o.settle(ctx, o.cfg.SettleDelay) }},
		{"capture session state", func() error { return o.captureState(ctx, sess) }},
	}
	if err := o.runSteps(ctx, "initiate login", sess, steps); err != nil {
		return "", err
	}

	sess.State = models.StateOTPPending
	if err := o.sessions.Save(ctx, sess); err != nil {
		return "", err
	}

	o.logger.Info("login initiated",
		zap.String("session_id", sess.ID),
		zap.String("platform", platformName))
	return sess.ID, nil
}

// SubmitOTP drives the OTP entry sequence and marks the session
// authenticated. The OTP value itself is not verified here; the platform's
// page accepts or rejects it.
func (o *Orchestrator) SubmitOTP(ctx context.Context, sessionID, otp string) (*models.SessionData, error) {
	sess, err := o.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if o.cfg.MockMode {
		sess.IsAuthenticated = true
		sess.State = models.StateAuthenticated
		sess.UpdatedAt = time.Now()
		if err := o.sessions.Save(ctx, sess); err != nil {
			return nil, err
		}
		return sess, nil
	}

	cfg, err := platform.Resolve(sess.Platform)
	if err != nil {
		return nil, err
	}

	sel := cfg.Selectors
	steps := []step{
		{"restore browser context", func() error { return o.driver.RestoreOrCreate(ctx, sess.ID, sess) }},
		{"wait for otp input", func() error { return o.driver.WaitForSelector(ctx, sess.ID, sel.OTPInput, 0) }},
		{"enter otp", func() error { return o.driver.Type(ctx, sess.ID, sel.OTPInput, otp) }},
		{"submit otp", func() error { return o.driver.Click(ctx, sess.ID, sel.OTPSubmitButton) }},
		{"settle after submit", func() error { return o.settle(ctx, o.cfg.OTPSettleDelay) }},
		{"capture session state", func() error { return o.captureState(ctx, sess) }},
	}
	if err := o.runSteps(ctx, "submit otp", sess, steps); err != nil {
		return nil, err
	}

	sess.IsAuthenticated = true
	sess.State = models.StateAuthenticated
	if err := o.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	o.logger.Info("otp submitted", zap.String("session_id", sess.ID))
	return sess, nil
}

// AddProductsToCart visits each product URL strictly in the given order,
// selects the requested variant where one is mapped, adds the product, then
// opens the cart view and extracts the normalized price breakdown.
func (o *Orchestrator) AddProductsToCart(ctx context.Context, sessionID string, productURLs []string, variants map[string]string) (*models.CartDetails, error) {
	sess, err := o.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsAuthenticated {
		return nil, ErrSessionNotAuthenticated
	}

	if o.cfg.MockMode {
		return o.mockCart(ctx, sess)
	}

	cfg, err := platform.Resolve(sess.Platform)
	if err != nil {
		return nil, err
	}

	if err := o.driver.RestoreOrCreate(ctx, sess.ID, sess); err != nil {
		return nil, o.fail(ctx, "add products", "restore browser context", sess, err)
	}

	sess.State = models.StateCartBuilding
	sess.UpdatedAt = time.Now()
	if err := o.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	// URLs are processed sequentially: later cart state can depend on
	// earlier additions (delivery fee thresholds), and all of them share
	// this session's single execution context.
	for _, productURL := range productURLs {
		if err := o.addSingleProduct(ctx, sess, productURL, variants, cfg); err != nil {
			return nil, err
		}
	}

	cart, err := o.extractCart(ctx, sess, cfg)
	if err != nil {
		return nil, err
	}

	sess.State = models.StateCartReady
	if err := o.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	o.logger.Info("cart extracted",
		zap.String("session_id", sess.ID),
		zap.Int("items", len(cart.Items)),
		zap.Float64("total", cart.Total),
		zap.Strings("warnings", cart.Warnings))
	return cart, nil
}

func (o *Orchestrator) addSingleProduct(ctx context.Context, sess *models.SessionData, productURL string, variants map[string]string, cfg *platform.Config) error {
	sel := cfg.Selectors
	productID := productIDFromURL(productURL)
	desired := variants[productID]

	steps := []step{
		{"navigate to product", func() error { return o.driver.Navigate(ctx, sess.ID, productURL) }},
	}
	if desired != "" {
		steps = append(steps,
			step{"wait for variant options", func() error { return o.driver.WaitForSelector(ctx, sess.ID, sel.Variant, 0) }},
			step{"select variant", func() error {
				matched, err := o.driver.SelectVariant(ctx, sess.ID, sel.Variant, desired)
				if err != nil {
					return err
				}
				if !matched {
					// Not an error: the page's default variant stays selected.
					o.logger.Warn("variant label not found, keeping default",
						zap.String("session_id", sess.ID),
						zap.String("product_id", productID),
						zap.String("variant", desired))
				}
				return nil
			}},
		)
	}
	steps = append(steps,
		step{"wait for add-to-cart button", func() error { return o.driver.WaitForSelector(ctx, sess.ID, sel.AddToCartButton, 0) }},
		step{"click add-to-cart", func() error { return o.driver.Click(ctx, sess.ID, sel.AddToCartButton) }},
		step{"settle after add", func() error { return o.settle(ctx, o.cfg.SettleDelay) }},
	)

	return o.runSteps(ctx, "add product "+productID, sess, steps)
}

func (o *Orchestrator) extractCart(ctx context.Context, sess *models.SessionData, cfg *platform.Config) (*models.CartDetails, error) {
	var snapshot string
	steps := []step{
		{"open cart view", func() error { return o.driver.Click(ctx, sess.ID, cfg.Selectors.CartButton) }},
		{"settle cart view", func() error { return o.settle(ctx, o.cfg.SettleDelay) }},
		{"capture cart snapshot", func() error {
			var err error
			snapshot, err = o.driver.Snapshot(ctx, sess.ID)
			return err
		}},
		{"capture session state", func() error { return o.captureState(ctx, sess) }},
	}
	if err := o.runSteps(ctx, "extract cart", sess, steps); err != nil {
		return nil, err
	}

	return ParseCart(snapshot), nil
}

// CleanupSession releases the execution context and removes the persisted
// record. Best-effort by contract: it runs on already-degraded paths, so
// failures are logged and swallowed.
func (o *Orchestrator) CleanupSession(ctx context.Context, sessionID string) {
	o.driver.Close(sessionID)
	if err := o.sessions.Delete(ctx, sessionID); err != nil {
		o.logger.Warn("failed to delete session record",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	o.logger.Info("session cleaned up", zap.String("session_id", sessionID))
}

// Session returns the persisted record for inspection endpoints.
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*models.SessionData, error) {
	return o.loadSession(ctx, sessionID)
}

func (o *Orchestrator) loadSession(ctx context.Context, sessionID string) (*models.SessionData, error) {
	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// settle pauses for a fixed delay after submit-style actions where the
// platforms expose no readiness signal. Honors cancellation.
func (o *Orchestrator) settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// productIDFromURL derives the product identifier from the URL's final path
// segment; it is the key callers use in the variants map.
func productIDFromURL(raw string) string {
	trimmed := strings.TrimSuffix(raw, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
