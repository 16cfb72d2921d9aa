// Package app implements the cross-user sharing engine: envelope
// submission, the mailbox drain cycle, claim processing, the notification
// feed and the read/delete lifecycle. It is wired as a library; the HTTP
// server in this service is one of its callers.
package app

import (
	"errors"
	"fmt"
	"time"

	"scholarshelf/pkg/mailbox"
	"scholarshelf/pkg/notify"
	"scholarshelf/pkg/profile"
	"scholarshelf/pkg/storage"
	"scholarshelf/pkg/store"
)

// Operation outcomes callers are expected to branch on. Everything else is
// a transient failure and safe to retry.
var (
	// ErrTransportUnavailable means the mailbox could not be reached; a
	// submission was not delivered, or a drain cycle could not fetch.
	ErrTransportUnavailable = errors.New("transport mailbox unavailable")
	// ErrNotFound means the addressed record does not exist on the
	// requested side.
	ErrNotFound = errors.New("share record not found")
	// ErrAlreadyClaimed means the message was claimed before, by this or a
	// concurrent call. It is a benign no-op, not a fault.
	ErrAlreadyClaimed = errors.New("share already claimed")
)

const defaultTaskHorizonDays = 7

// Config holds runtime configuration for the share engine.
type Config struct {
	DatabaseURL     string
	Store           store.Store // optional; overrides DatabaseURL
	Mailbox         mailbox.Mailbox
	Content         storage.ContentStore
	Profiles        profile.Service
	Broadcaster     notify.Broadcaster // optional; defaults to in-process
	ProfileTTL      time.Duration
	TaskHorizonDays int
	PresignExpiry   time.Duration
}

// App is the share engine wiring together registries, transport and
// collaborators.
type App struct {
	store         store.Store
	mailbox       mailbox.Mailbox
	content       storage.ContentStore
	profiles      *profile.Cache
	broadcaster   notify.Broadcaster
	horizonDays   int
	presignExpiry time.Duration
}

// New constructs the engine. The durable store may be passed in directly
// (tests, embedded use) or opened from DatabaseURL.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	if cfg.Mailbox == nil {
		return nil, fmt.Errorf("mailbox required")
	}
	if cfg.Profiles == nil {
		return nil, fmt.Errorf("profile service required")
	}
	broadcaster := cfg.Broadcaster
	if broadcaster == nil {
		broadcaster = notify.NewMemoryBroadcaster()
	}
	horizon := cfg.TaskHorizonDays
	if horizon <= 0 {
		horizon = defaultTaskHorizonDays
	}
	presignExpiry := cfg.PresignExpiry
	if presignExpiry <= 0 {
		presignExpiry = 15 * time.Minute
	}
	return &App{
		store:         dataStore,
		mailbox:       cfg.Mailbox,
		content:       cfg.Content,
		profiles:      profile.NewCache(cfg.Profiles, cfg.ProfileTTL),
		broadcaster:   broadcaster,
		horizonDays:   horizon,
		presignExpiry: presignExpiry,
	}, nil
}

// Broadcaster exposes the refresh-signal channel so embedding code can
// subscribe and re-poll the feed when a drain or claim lands new state.
func (a *App) Broadcaster() notify.Broadcaster {
	return a.broadcaster
}

// InvalidateProfile drops the cached identity block for a user; call it
// from profile-update events.
func (a *App) InvalidateProfile(userID string) {
	a.profiles.Invalidate(userID)
}
