package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"visionary-backend/internal/adminclient"
	"visionary-backend/internal/models"
	"visionary-backend/internal/notify"

	"go.uber.org/zap"
)

// fakeAPI counts calls per endpoint and fails the ones listed in errs.
type fakeAPI struct {
	mutex   sync.Mutex
	isAdmin bool
	calls   map[string]int
	errs    map[string]error
	block   chan struct{}

	images   []models.Image
	profiles []models.UserProfile
}

func newFakeAPI(isAdmin bool) *fakeAPI {
	name := "Ada"
	return &fakeAPI{
		isAdmin: isAdmin,
		calls:   make(map[string]int),
		errs:    make(map[string]error),
		images: []models.Image{
			{ID: "img1", Prompt: "a lighthouse", ModerationStatus: models.ModerationPending},
			{ID: "img2", Prompt: "a fox", ModerationStatus: models.ModerationApproved, UserDisplayName: &name},
		},
		profiles: []models.UserProfile{
			{ID: "p1", UserID: "u1-0123456789", DisplayName: &name},
		},
	}
}

func (f *fakeAPI) record(name string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.calls[name]++
	return f.errs[name]
}

func (f *fakeAPI) count(name string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.calls[name]
}

func (f *fakeAPI) total() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) CheckAdmin(ctx context.Context, email string) (bool, error) {
	return f.isAdmin, f.record("check")
}

func (f *fakeAPI) Statistics(ctx context.Context) (models.Statistics, error) {
	return models.Statistics{TotalImages: 2, TotalUsers: 1, PendingModeration: 1}, f.record("statistics")
}

func (f *fakeAPI) Images(ctx context.Context) ([]models.Image, error) {
	return f.images, f.record("images")
}

func (f *fakeAPI) UserProfiles(ctx context.Context) ([]models.UserProfile, error) {
	return f.profiles, f.record("profiles")
}

func (f *fakeAPI) ArtStyles(ctx context.Context) ([]models.ArtStyle, error) {
	return []models.ArtStyle{}, f.record("artStyles")
}

func (f *fakeAPI) ModerateImage(ctx context.Context, id string, status models.ModerationStatus) (models.Image, error) {
	if f.block != nil {
		<-f.block
	}
	return models.Image{ID: id, ModerationStatus: status}, f.record("moderate")
}

func (f *fakeAPI) DeleteImage(ctx context.Context, id string) error {
	return f.record("deleteImage")
}

func (f *fakeAPI) DeleteUser(ctx context.Context, userID string) error {
	return f.record("deleteUser")
}

func (f *fakeAPI) BanUser(ctx context.Context, userID string) (models.UserProfile, error) {
	return models.UserProfile{UserID: userID, IsBanned: true}, f.record("ban")
}

func (f *fakeAPI) UnbanUser(ctx context.Context, userID string) (models.UserProfile, error) {
	return models.UserProfile{UserID: userID}, f.record("unban")
}

func newPanel(api API) (*Panel, *notify.Recorder) {
	recorder := &notify.Recorder{}
	return NewPanel(zap.NewNop().Sugar(), api, recorder), recorder
}

func admin() *models.Identity {
	return &models.Identity{UserID: "u0", Email: "root@example.com", DisplayName: "Root"}
}

func TestUnauthenticatedPanel(t *testing.T) {
	api := newFakeAPI(true)
	panel, _ := newPanel(api)

	if err := panel.Authenticate(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	view := panel.View()
	if view.State != StateUnauthenticated || view.Notice != NoticeLogIn {
		t.Errorf("unexpected view: %+v", view)
	}
	if n := api.total(); n != 0 {
		t.Errorf("sent %d requests, want 0", n)
	}
}

func TestNonAdminMakesNoDataRequests(t *testing.T) {
	api := newFakeAPI(false)
	panel, _ := newPanel(api)
	ctx := context.Background()

	if err := panel.Authenticate(ctx, admin()); err != nil {
		t.Fatal(err)
	}
	if err := panel.SelectTab(ctx, TabImages); err != nil {
		t.Fatal(err)
	}

	view := panel.View()
	if view.State != StateDenied || view.Notice != NoticeAccessDenied {
		t.Errorf("unexpected view: %+v", view)
	}
	if api.count("check") != 1 || api.total() != 1 {
		t.Errorf("calls = %v, want only the admin check", api.calls)
	}
	if err := panel.BanUser(ctx, "u1"); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("err = %v, want ErrNotAdmin", err)
	}
}

func TestFailedAdminCheckDenies(t *testing.T) {
	api := newFakeAPI(true)
	api.errs["check"] = &adminclient.APIError{Status: 500, Message: "boom"}
	panel, _ := newPanel(api)

	if err := panel.Authenticate(context.Background(), admin()); err == nil {
		t.Error("expected the check error")
	}
	if state := panel.View().State; state != StateDenied {
		t.Errorf("state = %s, want denied", state)
	}
	if n := api.total(); n != 1 {
		t.Errorf("sent %d requests, want 1", n)
	}
}

func TestAdminLoadsStatisticsOnly(t *testing.T) {
	api := newFakeAPI(true)
	panel, _ := newPanel(api)
	ctx := context.Background()

	if err := panel.Authenticate(ctx, admin()); err != nil {
		t.Fatal(err)
	}
	// same identity again is a no-op
	if err := panel.Authenticate(ctx, admin()); err != nil {
		t.Fatal(err)
	}

	view := panel.View()
	if view.State != StateReady || view.Phase != "tab:dashboard-ready" {
		t.Errorf("unexpected view: %+v", view)
	}
	if view.Statistics == nil || view.Statistics.TotalImages != 2 {
		t.Errorf("statistics = %+v", view.Statistics)
	}
	if api.count("check") != 1 || api.count("statistics") != 1 || api.count("images") != 0 || api.count("profiles") != 0 {
		t.Errorf("calls = %v", api.calls)
	}
}

func TestSelectTabLoadsLazily(t *testing.T) {
	api := newFakeAPI(true)
	panel, _ := newPanel(api)
	ctx := context.Background()

	if err := panel.Authenticate(ctx, admin()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := panel.SelectTab(ctx, TabImages); err != nil {
			t.Fatal(err)
		}
	}

	if n := api.count("images"); n != 1 {
		t.Errorf("images fetched %d times, want 1", n)
	}

	view := panel.View()
	if view.Phase != "tab:images-ready" || len(view.Images) != 2 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if row := view.Images[0]; row.UserLabel != "Anonymous" || !row.CanApprove || !row.CanReject {
		t.Errorf("row img1 = %+v", row)
	}
	if row := view.Images[1]; row.UserLabel != "Ada" || row.CanApprove {
		t.Errorf("row img2 = %+v", row)
	}

	if err := panel.SelectTab(ctx, "settings"); !errors.Is(err, ErrUnknownTab) {
		t.Errorf("err = %v, want ErrUnknownTab", err)
	}
}

func TestEmptyCollectionText(t *testing.T) {
	api := newFakeAPI(true)
	panel, _ := newPanel(api)
	ctx := context.Background()

	if err := panel.Authenticate(ctx, admin()); err != nil {
		t.Fatal(err)
	}
	if err := panel.SelectTab(ctx, TabArtStyles); err != nil {
		t.Fatal(err)
	}

	view := panel.View()
	if view.TabStatus != LoadEmpty || view.EmptyText != "No art styles found" {
		t.Errorf("unexpected view: %+v", view)
	}
}

func TestModerateImageRefetchesAndToasts(t *testing.T) {
	api := newFakeAPI(true)
	panel, recorder := newPanel(api)
	ctx := context.Background()

	if err := panel.Authenticate(ctx, admin()); err != nil {
		t.Fatal(err)
	}
	if err := panel.SelectTab(ctx, TabImages); err != nil {
		t.Fatal(err)
	}

	if err := panel.ModerateImage(ctx, "img1", models.ModerationApproved); err != nil {
		t.Fatal(err)
	}

	if api.count("images") != 2 || api.count("statistics") != 2 {
		t.Errorf("calls = %v, want images and statistics refetched", api.calls)
	}
	all := recorder.All()
	if len(all) != 1 || all[0].Title != "Success" || all[0].Description != "Image moderation status updated" {
		t.Errorf("toasts = %+v", all)
	}
}

func TestMutationToasts(t *testing.T) {
	tests := []struct {
		name    string
		call    string
		mutate  func(p *Panel) error
		success string
		failure string
	}{
		{
			name:    "delete image",
			call:    "deleteImage",
			mutate:  func(p *Panel) error { return p.DeleteImage(context.Background(), "img1") },
			success: "Image deleted successfully",
			failure: "Failed to delete image",
		},
		{
			name:    "delete user",
			call:    "deleteUser",
			mutate:  func(p *Panel) error { return p.DeleteUser(context.Background(), "u1") },
			success: "User deleted successfully",
			failure: "Failed to delete user",
		},
		{
			name:    "ban",
			call:    "ban",
			mutate:  func(p *Panel) error { return p.BanUser(context.Background(), "u1") },
			success: "User banned successfully",
			failure: "Failed to ban user",
		},
		{
			name:    "unban",
			call:    "unban",
			mutate:  func(p *Panel) error { return p.UnbanUser(context.Background(), "u1") },
			success: "User unbanned successfully",
			failure: "Failed to unban user",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := newFakeAPI(true)
			panel, recorder := newPanel(api)
			if err := panel.Authenticate(context.Background(), admin()); err != nil {
				t.Fatal(err)
			}

			if err := tc.mutate(panel); err != nil {
				t.Fatal(err)
			}
			if got := recorder.All(); len(got) != 1 || got[0].Description != tc.success {
				t.Errorf("success toasts = %+v", got)
			}

			// an error without a message falls back to the action's text
			api.errs[tc.call] = &adminclient.APIError{Status: 500}
			if err := tc.mutate(panel); err == nil {
				t.Fatal("expected an error")
			}
			got := recorder.All()
			if len(got) != 2 || got[1].Variant != notify.VariantDestructive || got[1].Description != tc.failure {
				t.Errorf("failure toasts = %+v", got)
			}
		})
	}
}

func TestFailedBanLeavesStateAlone(t *testing.T) {
	api := newFakeAPI(true)
	api.errs["ban"] = &adminclient.APIError{Status: 404, Message: "user not found"}
	panel, recorder := newPanel(api)
	ctx := context.Background()

	if err := panel.Authenticate(ctx, admin()); err != nil {
		t.Fatal(err)
	}
	if err := panel.SelectTab(ctx, TabUsers); err != nil {
		t.Fatal(err)
	}

	if err := panel.BanUser(ctx, "u1"); err == nil {
		t.Fatal("expected an error")
	}

	if api.count("profiles") != 1 || api.count("statistics") != 1 {
		t.Errorf("calls = %v, want no refetch", api.calls)
	}
	all := recorder.All()
	if len(all) != 1 || all[0].Variant != notify.VariantDestructive || !strings.Contains(all[0].Description, "user not found") {
		t.Errorf("toasts = %+v", all)
	}

	view := panel.View()
	if len(view.Profiles) != 1 || view.Profiles[0].ShortUserID != "u1-01234..." || view.Profiles[0].LocationLabel != "-" {
		t.Errorf("profiles = %+v", view.Profiles)
	}
}

func TestTransportErrorToastsFixedText(t *testing.T) {
	api := newFakeAPI(true)
	api.errs["deleteImage"] = fmt.Errorf("delete image: %w", errors.New("dial tcp 10.0.0.7:443: connect: connection refused"))
	panel, recorder := newPanel(api)
	ctx := context.Background()

	if err := panel.Authenticate(ctx, admin()); err != nil {
		t.Fatal(err)
	}
	if err := panel.DeleteImage(ctx, "img-1"); err == nil {
		t.Fatal("expected an error")
	}

	all := recorder.All()
	if len(all) != 1 || all[0].Description != "Failed to delete image" {
		t.Errorf("toasts = %+v, want the fixed failure text", all)
	}
}

func TestConcurrentMutationOnSameTargetIsRejected(t *testing.T) {
	api := newFakeAPI(true)
	api.block = make(chan struct{})
	panel, _ := newPanel(api)
	ctx := context.Background()

	if err := panel.Authenticate(ctx, admin()); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- panel.ModerateImage(ctx, "img1", models.ModerationApproved)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(panel.View().Pending) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("mutation never became pending")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := panel.DeleteImage(ctx, "img1"); !errors.Is(err, ErrMutationPending) {
		t.Errorf("err = %v, want ErrMutationPending", err)
	}
	if err := panel.BanUser(ctx, "u1"); err != nil {
		t.Errorf("other target should not be blocked: %v", err)
	}

	close(api.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if pending := panel.View().Pending; len(pending) != 0 {
		t.Errorf("pending = %v after completion", pending)
	}
}
