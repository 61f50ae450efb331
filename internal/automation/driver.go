package automation

import (
	"context"
	"time"

	"grocery-autocart/pkg/models"
)

// Driver is the browser session registry as the orchestrator sees it: every
// DOM operation is addressed by session id and executes against that
// session's isolated context. browser.Manager is the production
// implementation; tests substitute a recording double.
type Driver interface {
	RestoreOrCreate(ctx context.Context, sessionID string, state *models.SessionData) error
	Close(sessionID string)

	Navigate(ctx context.Context, sessionID, url string) error
	Click(ctx context.Context, sessionID, selector string) error
	Type(ctx context.Context, sessionID, selector, text string) error
	WaitForSelector(ctx context.Context, sessionID, selector string, timeout time.Duration) error
	SelectVariant(ctx context.Context, sessionID, selector, label string) (bool, error)

	Cookies(ctx context.Context, sessionID string) ([]models.Cookie, error)
	CurrentURL(ctx context.Context, sessionID string) (string, error)
	Snapshot(ctx context.Context, sessionID string) (string, error)
}

// SessionRepository is the layered session persistence as the orchestrator
// sees it. store.Layered is the production implementation.
type SessionRepository interface {
	Save(ctx context.Context, session *models.SessionData) error
	Get(ctx context.Context, id string) (*models.SessionData, error)
	Delete(ctx context.Context, id string) error
}
