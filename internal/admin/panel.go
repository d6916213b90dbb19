package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"visionary-backend/internal/adminclient"
	"visionary-backend/internal/models"
	"visionary-backend/internal/notify"
	"visionary-backend/internal/querycache"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotAdmin        = errors.New("admin privileges required")
	ErrMutationPending = errors.New("a change for this record is already in flight")
	ErrUnknownTab      = errors.New("unknown tab")
)

// API is the remote admin service as the panel consumes it.
type API interface {
	CheckAdmin(ctx context.Context, email string) (bool, error)
	Statistics(ctx context.Context) (models.Statistics, error)
	Images(ctx context.Context) ([]models.Image, error)
	UserProfiles(ctx context.Context) ([]models.UserProfile, error)
	ArtStyles(ctx context.Context) ([]models.ArtStyle, error)
	ModerateImage(ctx context.Context, id string, status models.ModerationStatus) (models.Image, error)
	DeleteImage(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, userID string) error
	BanUser(ctx context.Context, userID string) (models.UserProfile, error)
	UnbanUser(ctx context.Context, userID string) (models.UserProfile, error)
}

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateChecking        State = "checking"
	StateDenied          State = "denied"
	StateReady           State = "ready"
)

type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabImages    Tab = "images"
	TabUsers     Tab = "users"
	TabArtStyles Tab = "art-styles"
)

const (
	KeyStatistics querycache.Key = "/api/admin/statistics"
	KeyImages     querycache.Key = "/api/admin/images"
	KeyProfiles   querycache.Key = "/api/admin/user-profiles"
	KeyArtStyles  querycache.Key = "/api/admin/art-styles"
)

func ParseTab(s string) (Tab, error) {
	switch tab := Tab(s); tab {
	case TabDashboard, TabImages, TabUsers, TabArtStyles:
		return tab, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
}

// queryKey is the collection shown on tab.
func (t Tab) queryKey() querycache.Key {
	switch t {
	case TabImages:
		return KeyImages
	case TabUsers:
		return KeyProfiles
	case TabArtStyles:
		return KeyArtStyles
	}
	return KeyStatistics
}

// Panel is one viewer's admin screen. Nothing beyond the admin check is
// requested until the check confirms the viewer, and each collection is
// requested only once its tab is opened.
type Panel struct {
	sugar    *zap.SugaredLogger
	api      API
	notifier notify.Notifier
	cache    *querycache.Cache

	mutex    sync.Mutex
	identity *models.Identity
	state    State
	tab      Tab
	pending  map[string]struct{}
}

func NewPanel(sugar *zap.SugaredLogger, api API, notifier notify.Notifier) *Panel {
	cache := querycache.New(sugar)
	cache.Register(KeyStatistics, func(ctx context.Context) (any, error) { return api.Statistics(ctx) })
	cache.Register(KeyImages, func(ctx context.Context) (any, error) { return api.Images(ctx) })
	cache.Register(KeyProfiles, func(ctx context.Context) (any, error) { return api.UserProfiles(ctx) })
	cache.Register(KeyArtStyles, func(ctx context.Context) (any, error) { return api.ArtStyles(ctx) })

	return &Panel{
		sugar:    sugar,
		api:      api,
		notifier: notifier,
		cache:    cache,
		state:    StateUnauthenticated,
		tab:      TabDashboard,
		pending:  make(map[string]struct{}),
	}
}

// Authenticate runs the admin check for identity. A repeated call with the
// same identity keeps the previous answer; a check that failed is retried.
func (p *Panel) Authenticate(ctx context.Context, identity *models.Identity) error {
	p.mutex.Lock()
	if identity == nil {
		p.identity = nil
		p.state = StateUnauthenticated
		p.mutex.Unlock()
		return nil
	}
	if p.identity != nil && p.identity.Email == identity.Email && (p.state == StateReady || p.state == StateDenied) {
		p.mutex.Unlock()
		return nil
	}
	p.identity = identity
	p.state = StateChecking
	p.mutex.Unlock()

	p.sugar.Debugf("Checking admin privileges of user ID [%s]", identity.UserID)
	isAdmin, err := p.api.CheckAdmin(ctx, identity.Email)

	p.mutex.Lock()
	if err != nil {
		// denied for now, the next call checks again
		p.state = StateDenied
		p.identity = nil
		p.mutex.Unlock()
		return fmt.Errorf("admin check: %w", err)
	}
	if !isAdmin {
		p.state = StateDenied
		p.mutex.Unlock()
		return nil
	}
	p.state = StateReady
	p.mutex.Unlock()

	return p.loadVisible(ctx)
}

func (p *Panel) SelectTab(ctx context.Context, tab Tab) error {
	if _, err := ParseTab(string(tab)); err != nil {
		return err
	}

	p.mutex.Lock()
	p.tab = tab
	ready := p.state == StateReady
	p.mutex.Unlock()

	if !ready {
		return nil
	}
	return p.loadVisible(ctx)
}

// loadVisible fetches whatever is on screen and not fresh: the statistics
// and the current tab's collection.
func (p *Panel) loadVisible(ctx context.Context) error {
	p.mutex.Lock()
	keys := []querycache.Key{KeyStatistics}
	if key := p.tab.queryKey(); key != KeyStatistics {
		keys = append(keys, key)
	}
	p.mutex.Unlock()

	// one failing collection must not cancel the other
	var g errgroup.Group
	for _, key := range keys {
		key := key
		g.Go(func() error {
			_, err := p.cache.Fetch(ctx, key)
			if err != nil {
				return fmt.Errorf("load %s: %w", key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

type mutation struct {
	target      string
	run         func(ctx context.Context) error
	invalidates querycache.Key
	success     string
	failure     string
}

// mutate applies the contract shared by every admin action: nothing local
// changes before the remote side accepted the change, after that the
// touched collection and the statistics are refetched.
func (p *Panel) mutate(ctx context.Context, m mutation) error {
	p.mutex.Lock()
	if p.state != StateReady {
		p.mutex.Unlock()
		return ErrNotAdmin
	}
	if _, busy := p.pending[m.target]; busy {
		p.mutex.Unlock()
		return ErrMutationPending
	}
	p.pending[m.target] = struct{}{}
	p.mutex.Unlock()

	defer func() {
		p.mutex.Lock()
		delete(p.pending, m.target)
		p.mutex.Unlock()
	}()

	err := m.run(ctx)
	if err != nil {
		p.sugar.Errorf("Admin change on %s failed: %v", m.target, err)

		p.notifier.Notify(notify.Failure(failureDescription(err, m.failure)))
		return err
	}

	p.cache.Invalidate(m.invalidates, KeyStatistics)
	err = p.loadVisible(ctx)
	if err != nil {
		p.sugar.Error(err)
	}

	p.notifier.Notify(notify.Success(m.success))
	return nil
}

// failureDescription shows the admin service's own message when it sent
// one. Transport errors get the fixed text of the action.
func failureDescription(err error, fallback string) string {
	var apiErr *adminclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func (p *Panel) ModerateImage(ctx context.Context, id string, status models.ModerationStatus) error {
	return p.mutate(ctx, mutation{
		target: "image:" + id,
		run: func(ctx context.Context) error {
			_, err := p.api.ModerateImage(ctx, id, status)
			return err
		},
		invalidates: KeyImages,
		success:     "Image moderation status updated",
		failure:     "Failed to update moderation status",
	})
}

func (p *Panel) DeleteImage(ctx context.Context, id string) error {
	return p.mutate(ctx, mutation{
		target:      "image:" + id,
		run:         func(ctx context.Context) error { return p.api.DeleteImage(ctx, id) },
		invalidates: KeyImages,
		success:     "Image deleted successfully",
		failure:     "Failed to delete image",
	})
}

func (p *Panel) DeleteUser(ctx context.Context, userID string) error {
	return p.mutate(ctx, mutation{
		target:      "user:" + userID,
		run:         func(ctx context.Context) error { return p.api.DeleteUser(ctx, userID) },
		invalidates: KeyProfiles,
		success:     "User deleted successfully",
		failure:     "Failed to delete user",
	})
}

func (p *Panel) BanUser(ctx context.Context, userID string) error {
	return p.mutate(ctx, mutation{
		target: "user:" + userID,
		run: func(ctx context.Context) error {
			_, err := p.api.BanUser(ctx, userID)
			return err
		},
		invalidates: KeyProfiles,
		success:     "User banned successfully",
		failure:     "Failed to ban user",
	})
}

func (p *Panel) UnbanUser(ctx context.Context, userID string) error {
	return p.mutate(ctx, mutation{
		target: "user:" + userID,
		run: func(ctx context.Context) error {
			_, err := p.api.UnbanUser(ctx, userID)
			return err
		},
		invalidates: KeyProfiles,
		success:     "User unbanned successfully",
		failure:     "Failed to unban user",
	})
}
