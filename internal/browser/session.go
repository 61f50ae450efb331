package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"grocery-autocart/pkg/models"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const disposeTimeout = 5 * time.Second

// session is one isolated execution context bound to a single session id: a
// dedicated CDP browser context (its own cookie jar) holding one tab inside
// the shared browser process. All DOM operations are serialized through mu
// because the CDP connection is not safe for concurrent commands on one page.
type session struct {
	id        string
	ctx       context.Context
	cancel    context.CancelFunc
	ctlCtx    context.Context
	browserID cdp.BrowserContextID
	logger    *zap.Logger

	mu     sync.Mutex
	closed bool
}

// newSession carves an isolated browser context out of the shared browser,
// opens a tab inside it, and applies the per-context policies: viewport,
// user agent, and resource blocking. browserCtx must be the manager's
// already-running shared browser context.
func newSession(browserCtx context.Context, id string, logger *zap.Logger) (*session, error) {
	c := chromedp.FromContext(browserCtx)
	if c == nil || c.Browser == nil {
		return nil, errors.New("shared browser is not running")
	}
	ctlCtx := cdp.WithExecutor(browserCtx, c.Browser)

	browserID, err := target.CreateBrowserContext().Do(ctlCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to create isolated browser context: %w", err)
	}

	targetID, err := target.CreateTarget("about:blank").
		WithBrowserContextID(browserID).
		Do(ctlCtx)
	if err != nil {
		disposeBrowserContext(ctlCtx, browserID, logger)
		return nil, fmt.Errorf("failed to open tab in browser context: %w", err)
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx, chromedp.WithTargetID(targetID))

	s := &session{
		id:        id,
		ctx:       tabCtx,
		cancel:    cancel,
		ctlCtx:    ctlCtx,
		browserID: browserID,
		logger:    logger.With(zap.String("session_id", id)),
	}

	// Block heavy resource types before any navigation happens. This is a
	// fixed policy for the lifetime of the context.
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*fetch.EventRequestPaused); ok {
			go s.resolvePausedRequest(e)
		}
	})

	err = chromedp.Run(tabCtx,
		fetch.Enable(),
		chromedp.EmulateViewport(1920, 1080),
		emulation.SetUserAgentOverride(userAgent),
	)
	if err != nil {
		cancel()
		disposeBrowserContext(ctlCtx, browserID, logger)
		return nil, fmt.Errorf("failed to initialize browser context: %w", err)
	}
	return s, nil
}

// disposeBrowserContext releases a CDP browser context and its cookie jar.
// Best-effort: the browser may already be gone on shutdown paths.
func disposeBrowserContext(ctlCtx context.Context, id cdp.BrowserContextID, logger *zap.Logger) {
	if ctlCtx.Err() != nil {
		return
	}
	dctx, cancel := context.WithTimeout(ctlCtx, disposeTimeout)
	defer cancel()
	if err := target.DisposeBrowserContext(id).Do(dctx); err != nil {
		logger.Debug("failed to dispose browser context",
			zap.String("browser_context_id", string(id)), zap.Error(err))
	}
}

// resolvePausedRequest fails non-essential resource loads and continues the
// rest. Runs on its own goroutine; CDP replies must not block the event loop.
func (s *session) resolvePausedRequest(ev *fetch.EventRequestPaused) {
	c := chromedp.FromContext(s.ctx)
	if c == nil {
		return
	}
	execCtx := cdp.WithExecutor(s.ctx, c.Target)

	var action chromedp.Action
	switch ev.ResourceType {
	case network.ResourceTypeImage, network.ResourceTypeFont,
		network.ResourceTypeStylesheet, network.ResourceTypeMedia:
		action = fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient)
	default:
		action = fetch.ContinueRequest(ev.RequestID)
	}
	if err := action.Do(execCtx); err != nil {
		s.logger.Debug("request interception reply failed", zap.Error(err))
	}
}

// run executes chromedp actions under the session lock with a deadline.
func (s *session) run(timeout time.Duration, actions ...chromedp.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionNotFound
	}

	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (s *session) navigate(url string, timeout time.Duration) error {
	err := s.run(timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	return nil
}

func (s *session) click(selector string, timeout time.Duration) error {
	if err := s.run(timeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

func (s *session) typeText(selector, text string, timeout time.Duration) error {
	if err := s.run(timeout, chromedp.SendKeys(selector, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("type into %q failed: %w", selector, err)
	}
	return nil
}

func (s *session) waitForSelector(selector string, timeout time.Duration) error {
	start := time.Now()
	err := s.run(timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &SelectorTimeoutError{Selector: selector, Elapsed: time.Since(start)}
		}
		return fmt.Errorf("wait for %q failed: %w", selector, err)
	}
	return nil
}

func (s *session) evaluate(script string, out interface{}, timeout time.Duration) error {
	if err := s.run(timeout, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}
	return nil
}

// selectVariant clicks the first element matching selector whose visible text
// contains label. Substring and case-sensitive on purpose: platform labels
// vary in formatting ("1kg" vs "1 kg Pack") but not in case. A miss is not
// an error; the page's default variant stays selected.
func (s *session) selectVariant(selector, label string, timeout time.Duration) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const els = document.querySelectorAll(%q);
		for (const el of els) {
			if (el.textContent && el.textContent.includes(%q)) {
				el.click();
				return true;
			}
		}
		return false;
	})()`, selector, label)

	var clicked bool
	if err := s.evaluate(script, &clicked, timeout); err != nil {
		return false, err
	}
	return clicked, nil
}

func (s *session) cookies(timeout time.Duration) ([]models.Cookie, error) {
	var raw []*network.Cookie
	err := s.run(timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		cs, err := storage.GetCookies().WithBrowserContextID(s.browserID).Do(ctx)
		if err != nil {
			return err
		}
		raw = cs
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	cookies := make([]models.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return cookies, nil
}

func (s *session) setCookies(cookies []models.Cookie, timeout time.Duration) error {
	if len(cookies) == 0 {
		return nil
	}

	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &expires
		}
		params = append(params, p)
	}

	err := s.run(timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		return storage.SetCookies(params).WithBrowserContextID(s.browserID).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to replay cookies: %w", err)
	}
	return nil
}

func (s *session) currentURL(timeout time.Duration) (string, error) {
	var url string
	if err := s.run(timeout, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read current URL: %w", err)
	}
	return url, nil
}

func (s *session) snapshot(timeout time.Duration) (string, error) {
	var html string
	if err := s.run(timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to capture DOM snapshot: %w", err)
	}
	return html, nil
}

// close releases the tab and its isolated browser context (dropping the
// cookie jar with it). Safe to call more than once.
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	disposeBrowserContext(s.ctlCtx, s.browserID, s.logger)
}
