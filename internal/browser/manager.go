// Package browser owns the live browser execution contexts. One browser
// process is shared by the whole service and started lazily on first use;
// each logical session gets its own isolated CDP browser context (separate
// cookie jar) inside it, registered here by session id. Only the registry
// touches contexts directly - callers route every DOM operation through it
// by id.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"grocery-autocart/internal/config"
	"grocery-autocart/pkg/models"
)

// execContext is one session's isolated browser context as the registry
// drives it. *session is the production implementation; tests substitute a
// fake via the manager's factory.
type execContext interface {
	navigate(url string, timeout time.Duration) error
	click(selector string, timeout time.Duration) error
	typeText(selector, text string, timeout time.Duration) error
	waitForSelector(selector string, timeout time.Duration) error
	evaluate(script string, out interface{}, timeout time.Duration) error
	selectVariant(selector, label string, timeout time.Duration) (bool, error)
	cookies(timeout time.Duration) ([]models.Cookie, error)
	setCookies(cookies []models.Cookie, timeout time.Duration) error
	currentURL(timeout time.Duration) (string, error)
	snapshot(timeout time.Duration) (string, error)
	close()
}

type contextFactory func(browserCtx context.Context, sessionID string, logger *zap.Logger) (execContext, error)

// Manager is the browser session registry. It enforces at most one active
// execution context per session id and caps the total number of live
// contexts, since they all share one browser process's resource limits.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger

	initOnce      sync.Once
	initErr       error
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	remote        *RemoteBrowser

	start      func(ctx context.Context) error
	newContext contextFactory

	sem *semaphore.Weighted

	mu       sync.RWMutex
	closed   bool
	sessions map[string]execContext
}

// NewManager creates the registry. Browser startup is deferred until the
// first context is requested.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		logger:   logger.Named("browser"),
		sem:      semaphore.NewWeighted(cfg.MaxContexts),
		sessions: make(map[string]execContext),
	}
	m.start = m.startBrowser
	m.newContext = func(browserCtx context.Context, sessionID string, logger *zap.Logger) (execContext, error) {
		return newSession(browserCtx, sessionID, logger)
	}
	return m
}

// initialize starts the shared browser process exactly once.
func (m *Manager) initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.initErr = m.start(ctx)
	})
	return m.initErr
}

// startBrowser launches the one browser process all sessions share. In local
// mode Chrome is exec'd directly; in docker mode a headless-shell container
// is launched and driven over its CDP endpoint.
func (m *Manager) startBrowser(ctx context.Context) error {
	switch m.cfg.BrowserMode {
	case "docker":
		launcher, err := NewRemoteLauncher(m.cfg.BrowserImage, m.logger)
		if err != nil {
			return err
		}
		remote, err := launcher.Launch(ctx)
		if err != nil {
			launcher.Close()
			return err
		}
		m.remote = remote
		m.allocCtx, m.allocCancel = chromedp.NewRemoteAllocator(context.Background(), remote.ConnectURL)
		m.logger.Info("remote browser started",
			zap.String("image", m.cfg.BrowserImage),
			zap.String("connect_url", remote.ConnectURL))
	default:
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", m.cfg.Headless),
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
			chromedp.DisableGPU,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-background-timer-throttling", true),
			chromedp.Flag("disable-backgrounding-occluded-windows", true),
			chromedp.Flag("disable-renderer-backgrounding", true),
			chromedp.Flag("disable-features", "TranslateUI"),
			chromedp.Flag("disable-ipc-flooding-protection", true),
			chromedp.WindowSize(1920, 1080),
		)
		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
		m.logger.Info("local browser allocator ready", zap.Bool("headless", m.cfg.Headless))
	}

	// One chromedp context off the allocator is the shared browser itself;
	// running it connects (docker) or spawns (local) the single process.
	// Sessions never attach here directly - each gets its own isolated CDP
	// browser context carved out of this one.
	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx)
	if err := chromedp.Run(m.browserCtx); err != nil {
		m.browserCancel()
		m.allocCancel()
		return fmt.Errorf("failed to start shared browser: %w", err)
	}
	return nil
}

// RestoreOrCreate binds a live execution context to the session id. If one is
// already active it is reused unchanged. Otherwise a fresh isolated context
// is created, persisted cookies are replayed into it, and the last known URL
// is restored. Any failure tears the new context down before returning, so a
// failed restore never leaves a dangling registration.
func (m *Manager) RestoreOrCreate(ctx context.Context, sessionID string, state *models.SessionData) error {
	m.mu.RLock()
	_, exists := m.sessions[sessionID]
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrShuttingDown
	}
	if exists {
		return nil
	}

	if err := m.initialize(ctx); err != nil {
		return fmt.Errorf("browser startup failed: %w", err)
	}

	if !m.sem.TryAcquire(1) {
		return ErrContextLimitReached
	}

	s, err := m.newContext(m.browserCtx, sessionID, m.logger)
	if err != nil {
		m.sem.Release(1)
		return err
	}

	if state != nil {
		if err := s.setCookies(state.Cookies, m.cfg.BrowserTimeout); err != nil {
			s.close()
			m.sem.Release(1)
			return err
		}
		if state.CurrentURL != "" {
			if err := s.navigate(state.CurrentURL, m.cfg.BrowserTimeout); err != nil {
				s.close()
				m.sem.Release(1)
				return err
			}
		}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		s.close()
		m.sem.Release(1)
		return ErrShuttingDown
	}
	if _, raced := m.sessions[sessionID]; raced {
		// Another caller restored the same session while we were working;
		// keep theirs, discard ours.
		m.mu.Unlock()
		s.close()
		m.sem.Release(1)
		return nil
	}
	m.sessions[sessionID] = s
	m.mu.Unlock()

	m.logger.Info("browser context ready", zap.String("session_id", sessionID))
	return nil
}

// Close releases the session's context and unregisters it. Closing an
// unknown or already-closed session is a no-op: cleanup paths call this
// defensively.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	s.close()
	m.sem.Release(1)
	m.logger.Info("browser context closed", zap.String("session_id", sessionID))
}

// ActiveContexts reports the number of live execution contexts.
func (m *Manager) ActiveContexts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) session(sessionID string) (execContext, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Navigate loads url in the session's context and waits for the DOM to be ready.
func (m *Manager) Navigate(ctx context.Context, sessionID, url string) error {
	s, err := m.session(sessionID)
	if err != nil {
		return err
	}
	return s.navigate(url, m.cfg.BrowserTimeout)
}

// Click clicks the first element matched by selector.
func (m *Manager) Click(ctx context.Context, sessionID, selector string) error {
	s, err := m.session(sessionID)
	if err != nil {
		return err
	}
	return s.click(selector, m.cfg.BrowserTimeout)
}

// Type sends text to the first element matched by selector.
func (m *Manager) Type(ctx context.Context, sessionID, selector, text string) error {
	s, err := m.session(sessionID)
	if err != nil {
		return err
	}
	return s.typeText(selector, text, m.cfg.BrowserTimeout)
}

// WaitForSelector blocks until selector is visible or timeout elapses.
// A zero timeout uses the process-wide default.
func (m *Manager) WaitForSelector(ctx context.Context, sessionID, selector string, timeout time.Duration) error {
	s, err := m.session(sessionID)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = m.cfg.SelectorTimeout
	}
	return s.waitForSelector(selector, timeout)
}

// SelectVariant clicks the first variant element whose text contains label.
// Returns false without error when nothing matches.
func (m *Manager) SelectVariant(ctx context.Context, sessionID, selector, label string) (bool, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return false, err
	}
	return s.selectVariant(selector, label, m.cfg.BrowserTimeout)
}

// Evaluate runs script in the session's page and decodes the result into out.
func (m *Manager) Evaluate(ctx context.Context, sessionID, script string, out interface{}) error {
	s, err := m.session(sessionID)
	if err != nil {
		return err
	}
	return s.evaluate(script, out, m.cfg.BrowserTimeout)
}

// Cookies captures the context's current cookie jar.
func (m *Manager) Cookies(ctx context.Context, sessionID string) ([]models.Cookie, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.cookies(m.cfg.BrowserTimeout)
}

// CurrentURL returns the page's current location.
func (m *Manager) CurrentURL(ctx context.Context, sessionID string) (string, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return "", err
	}
	return s.currentURL(m.cfg.BrowserTimeout)
}

// Snapshot captures the full page markup.
func (m *Manager) Snapshot(ctx context.Context, sessionID string) (string, error) {
	s, err := m.session(sessionID)
	if err != nil {
		return "", err
	}
	return s.snapshot(m.cfg.BrowserTimeout)
}

// Shutdown closes every context and tears down the shared browser process.
// New contexts are refused from the moment it begins, so a racing restore
// cannot register behind it.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]execContext)
	m.mu.Unlock()

	for id, s := range sessions {
		s.close()
		m.sem.Release(1)
		m.logger.Debug("browser context closed on shutdown", zap.String("session_id", id))
	}

	if m.browserCancel != nil {
		m.browserCancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
	if m.remote != nil {
		if err := m.remote.Stop(ctx); err != nil {
			m.logger.Warn("failed to stop remote browser", zap.Error(err))
		}
	}
	m.logger.Info("browser manager shut down")
}
