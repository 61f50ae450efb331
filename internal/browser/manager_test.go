package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"grocery-autocart/internal/config"
	"grocery-autocart/pkg/models"
)

// fakeContext stands in for a live browser context so the registry's
// bookkeeping can be exercised without Chrome.
type fakeContext struct {
	id            string
	ops           []string
	closed        bool
	setCookiesErr error
}

func (f *fakeContext) navigate(url string, _ time.Duration) error {
	f.ops = append(f.ops, "navigate:"+url)
	return nil
}

func (f *fakeContext) click(selector string, _ time.Duration) error {
	f.ops = append(f.ops, "click:"+selector)
	return nil
}

func (f *fakeContext) typeText(selector, text string, _ time.Duration) error {
	f.ops = append(f.ops, "type:"+selector)
	return nil
}

func (f *fakeContext) waitForSelector(selector string, _ time.Duration) error {
	f.ops = append(f.ops, "wait:"+selector)
	return nil
}

func (f *fakeContext) evaluate(script string, out interface{}, _ time.Duration) error {
	f.ops = append(f.ops, "evaluate")
	return nil
}

func (f *fakeContext) selectVariant(selector, label string, _ time.Duration) (bool, error) {
	f.ops = append(f.ops, "variant:"+label)
	return false, nil
}

func (f *fakeContext) cookies(_ time.Duration) ([]models.Cookie, error) {
	// Named after the owning context so routing across sessions is checkable.
	return []models.Cookie{{Name: "owner", Value: f.id}}, nil
}

func (f *fakeContext) setCookies(cookies []models.Cookie, _ time.Duration) error {
	if f.setCookiesErr != nil {
		return f.setCookiesErr
	}
	f.ops = append(f.ops, "setCookies")
	return nil
}

func (f *fakeContext) currentURL(_ time.Duration) (string, error) { return "", nil }
func (f *fakeContext) snapshot(_ time.Duration) (string, error)   { return "", nil }
func (f *fakeContext) close()                                     { f.closed = true }

// fakeManager returns a registry whose browser startup is stubbed out and
// whose contexts are fakes, recording each one created.
func fakeManager(maxContexts int64) (*Manager, *[]*fakeContext) {
	m := NewManager(&config.Config{
		MaxContexts:     maxContexts,
		BrowserTimeout:  time.Second,
		SelectorTimeout: time.Second,
	}, zap.NewNop())

	created := &[]*fakeContext{}
	m.start = func(ctx context.Context) error { return nil }
	m.newContext = func(_ context.Context, id string, _ *zap.Logger) (execContext, error) {
		fc := &fakeContext{id: id}
		*created = append(*created, fc)
		return fc, nil
	}
	return m, created
}

func TestOperationsOnUnknownSession(t *testing.T) {
	m, _ := fakeManager(2)
	ctx := context.Background()

	assert.ErrorIs(t, m.Navigate(ctx, "ghost", "https://blinkit.com"), ErrSessionNotFound)
	assert.ErrorIs(t, m.Click(ctx, "ghost", "button"), ErrSessionNotFound)
	assert.ErrorIs(t, m.Type(ctx, "ghost", "input", "text"), ErrSessionNotFound)
	assert.ErrorIs(t, m.WaitForSelector(ctx, "ghost", "body", time.Second), ErrSessionNotFound)

	_, err := m.SelectVariant(ctx, "ghost", ".variant", "1kg")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	var out bool
	assert.ErrorIs(t, m.Evaluate(ctx, "ghost", "1+1", &out), ErrSessionNotFound)

	_, err = m.Cookies(ctx, "ghost")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.CurrentURL(ctx, "ghost")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Snapshot(ctx, "ghost")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRestoreOrCreateIsIdempotent(t *testing.T) {
	m, created := fakeManager(2)
	ctx := context.Background()

	require.NoError(t, m.RestoreOrCreate(ctx, "s1", nil))
	require.NoError(t, m.RestoreOrCreate(ctx, "s1", nil))

	assert.Len(t, *created, 1, "second restore reuses the live context")
	assert.Equal(t, 1, m.ActiveContexts())
}

func TestRestoreOrCreateReplaysPersistedState(t *testing.T) {
	m, created := fakeManager(2)

	state := &models.SessionData{
		ID:         "s1",
		Cookies:    []models.Cookie{{Name: "auth", Value: "token"}},
		CurrentURL: "https://blinkit.com/home",
	}
	require.NoError(t, m.RestoreOrCreate(context.Background(), "s1", state))

	require.Len(t, *created, 1)
	assert.Equal(t, []string{"setCookies", "navigate:https://blinkit.com/home"},
		(*created)[0].ops, "cookies are replayed before the URL is restored")
}

func TestCloseLiveSessionThenOperationsFail(t *testing.T) {
	m, created := fakeManager(2)
	ctx := context.Background()

	require.NoError(t, m.RestoreOrCreate(ctx, "s1", nil))
	m.Close("s1")

	assert.True(t, (*created)[0].closed)
	assert.Equal(t, 0, m.ActiveContexts())
	assert.ErrorIs(t, m.Navigate(ctx, "s1", "https://blinkit.com"), ErrSessionNotFound)
}

func TestCloseUnknownSessionIsNoOp(t *testing.T) {
	m, _ := fakeManager(2)
	m.Close("ghost")
	m.Close("ghost")
	assert.Equal(t, 0, m.ActiveContexts())
}

func TestContextLimitAndRelease(t *testing.T) {
	m, _ := fakeManager(1)
	ctx := context.Background()

	require.NoError(t, m.RestoreOrCreate(ctx, "s1", nil))
	assert.ErrorIs(t, m.RestoreOrCreate(ctx, "s2", nil), ErrContextLimitReached)

	m.Close("s1")
	assert.NoError(t, m.RestoreOrCreate(ctx, "s2", nil), "closing a context frees its slot")
}

func TestRestoreFailureLeavesNoRegistration(t *testing.T) {
	m, _ := fakeManager(1)
	m.newContext = func(_ context.Context, id string, _ *zap.Logger) (execContext, error) {
		return &fakeContext{id: id, setCookiesErr: errors.New("cookie replay failed")}, nil
	}

	state := &models.SessionData{Cookies: []models.Cookie{{Name: "auth", Value: "x"}}}
	err := m.RestoreOrCreate(context.Background(), "s1", state)
	require.Error(t, err)
	assert.Equal(t, 0, m.ActiveContexts())

	// The slot was released, so the retry is not starved out.
	m.newContext = func(_ context.Context, id string, _ *zap.Logger) (execContext, error) {
		return &fakeContext{id: id}, nil
	}
	assert.NoError(t, m.RestoreOrCreate(context.Background(), "s1", nil))
}

func TestSessionsGetDistinctContexts(t *testing.T) {
	m, created := fakeManager(2)
	ctx := context.Background()

	require.NoError(t, m.RestoreOrCreate(ctx, "s1", nil))
	require.NoError(t, m.RestoreOrCreate(ctx, "s2", nil))
	require.Len(t, *created, 2)
	assert.NotSame(t, (*created)[0], (*created)[1])

	// Cookie reads route to the owning context, never a shared jar.
	cookies, err := m.Cookies(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", cookies[0].Value)

	cookies, err = m.Cookies(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "s2", cookies[0].Value)

	// Closing one session leaves the other untouched.
	m.Close("s1")
	assert.True(t, (*created)[0].closed)
	assert.False(t, (*created)[1].closed)
}

func TestShutdownRefusesNewContexts(t *testing.T) {
	m, created := fakeManager(2)
	ctx := context.Background()

	require.NoError(t, m.RestoreOrCreate(ctx, "s1", nil))
	m.Shutdown(ctx)

	assert.True(t, (*created)[0].closed)
	assert.Equal(t, 0, m.ActiveContexts())
	assert.ErrorIs(t, m.RestoreOrCreate(ctx, "s2", nil), ErrShuttingDown)
}

func TestSelectorTimeoutErrorMessage(t *testing.T) {
	err := &SelectorTimeoutError{Selector: ".add-to-cart", Elapsed: 10 * time.Second}
	assert.Contains(t, err.Error(), ".add-to-cart")
	assert.Contains(t, err.Error(), "10s")
}

func TestNavigationErrorUnwraps(t *testing.T) {
	cause := context.DeadlineExceeded
	err := &NavigationError{URL: "https://blinkit.com", Err: cause}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "https://blinkit.com")
}
