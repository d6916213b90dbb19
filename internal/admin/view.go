package admin

import (
	"fmt"
	"sort"
	"visionary-backend/internal/models"
	"visionary-backend/internal/querycache"
)

const (
	NoticeLogIn        = "Please log in to access the admin panel."
	NoticeAccessDenied = "Access denied. You do not have admin privileges."
)

type LoadStatus string

const (
	LoadLoading LoadStatus = "loading"
	LoadReady   LoadStatus = "ready"
	LoadEmpty   LoadStatus = "empty"
	LoadError   LoadStatus = "error"
)

type ImageRow struct {
	models.Image
	UserLabel  string `json:"userLabel"`
	CanApprove bool   `json:"canApprove"`
	CanReject  bool   `json:"canReject"`
}

type ProfileRow struct {
	models.UserProfile
	DisplayLabel  string `json:"displayLabel"`
	ShortUserID   string `json:"shortUserId"`
	LocationLabel string `json:"locationLabel"`
}

type ArtStyleRow struct {
	models.ArtStyle
	KeywordList []string `json:"keywordList"`
}

// View is everything the admin screen renders.
type View struct {
	State            State              `json:"state"`
	Phase            string             `json:"phase"`
	Notice           string             `json:"notice,omitempty"`
	Tab              Tab                `json:"tab"`
	Statistics       *models.Statistics `json:"statistics,omitempty"`
	StatisticsStatus LoadStatus         `json:"statisticsStatus,omitempty"`
	TabStatus        LoadStatus         `json:"tabStatus,omitempty"`
	TabError         string             `json:"tabError,omitempty"`
	EmptyText        string             `json:"emptyText,omitempty"`
	Images           []ImageRow         `json:"images,omitempty"`
	Profiles         []ProfileRow       `json:"profiles,omitempty"`
	ArtStyles        []ArtStyleRow      `json:"artStyles,omitempty"`
	Pending          []string           `json:"pending,omitempty"`
}

func loadStatus(snapshot querycache.Snapshot, count int) LoadStatus {
	switch snapshot.Status {
	case querycache.StatusError:
		return LoadError
	case querycache.StatusReady, querycache.StatusStale:
		if count == 0 {
			return LoadEmpty
		}
		return LoadReady
	}
	return LoadLoading
}

func (p *Panel) View() View {
	p.mutex.Lock()
	view := View{State: p.state, Tab: p.tab}
	for target := range p.pending {
		view.Pending = append(view.Pending, target)
	}
	p.mutex.Unlock()
	sort.Strings(view.Pending)

	switch view.State {
	case StateUnauthenticated:
		view.Notice = NoticeLogIn
		view.Phase = string(StateUnauthenticated)
		return view
	case StateDenied:
		view.Notice = NoticeAccessDenied
		view.Phase = string(StateDenied)
		return view
	case StateChecking:
		view.Phase = string(StateChecking)
		return view
	}

	stats, snapshot := querycache.PeekAs[models.Statistics](p.cache, KeyStatistics)
	view.StatisticsStatus = loadStatus(snapshot, 1)
	if snapshot.Status == querycache.StatusReady || snapshot.Status == querycache.StatusStale {
		view.Statistics = &stats
	}

	switch view.Tab {
	case TabDashboard:
		view.TabStatus = view.StatisticsStatus
		if snapshot.Err != nil {
			view.TabError = snapshot.Err.Error()
		}
	case TabImages:
		images, snapshot := querycache.PeekAs[[]models.Image](p.cache, KeyImages)
		view.TabStatus = loadStatus(snapshot, len(images))
		view.EmptyText = "No images found"
		if snapshot.Err != nil {
			view.TabError = snapshot.Err.Error()
		}
		for _, image := range images {
			view.Images = append(view.Images, imageRow(image))
		}
	case TabUsers:
		profiles, snapshot := querycache.PeekAs[[]models.UserProfile](p.cache, KeyProfiles)
		view.TabStatus = loadStatus(snapshot, len(profiles))
		view.EmptyText = "No user profiles found"
		if snapshot.Err != nil {
			view.TabError = snapshot.Err.Error()
		}
		for _, profile := range profiles {
			view.Profiles = append(view.Profiles, profileRow(profile))
		}
	case TabArtStyles:
		artStyles, snapshot := querycache.PeekAs[[]models.ArtStyle](p.cache, KeyArtStyles)
		view.TabStatus = loadStatus(snapshot, len(artStyles))
		view.EmptyText = "No art styles found"
		if snapshot.Err != nil {
			view.TabError = snapshot.Err.Error()
		}
		for _, artStyle := range artStyles {
			view.ArtStyles = append(view.ArtStyles, ArtStyleRow{ArtStyle: artStyle, KeywordList: artStyle.KeywordList()})
		}
	}

	if view.TabStatus != LoadEmpty {
		view.EmptyText = ""
	}
	phase := "ready"
	if view.TabStatus == LoadLoading {
		phase = "loading"
	}
	view.Phase = fmt.Sprintf("tab:%s-%s", view.Tab, phase)

	return view
}

func imageRow(image models.Image) ImageRow {
	row := ImageRow{
		Image:      image,
		UserLabel:  "Anonymous",
		CanApprove: image.ModerationStatus != models.ModerationApproved,
		CanReject:  image.ModerationStatus != models.ModerationRejected,
	}
	if image.UserDisplayName != nil && *image.UserDisplayName != "" {
		row.UserLabel = *image.UserDisplayName
	}
	return row
}

func profileRow(profile models.UserProfile) ProfileRow {
	row := ProfileRow{
		UserProfile:   profile,
		DisplayLabel:  "Not set",
		ShortUserID:   profile.UserID,
		LocationLabel: "-",
	}
	if profile.DisplayName != nil && *profile.DisplayName != "" {
		row.DisplayLabel = *profile.DisplayName
	}
	if profile.Location != nil && *profile.Location != "" {
		row.LocationLabel = *profile.Location
	}
	if len(profile.UserID) > 8 {
		row.ShortUserID = profile.UserID[:8] + "..."
	}
	return row
}
