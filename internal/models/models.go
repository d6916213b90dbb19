package models

import (
	"strings"
	"time"
)

type MessageType string

const (
	MessageWelcome      MessageType = "welcome"
	MessageInfo         MessageType = "info"
	MessageNotification MessageType = "notification"
)

type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	IsRead    bool        `json:"isRead"`
}

// Identity is the authenticated user as seen by the auth provider.
type Identity struct {
	UserID      string `json:"userID"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

type Statistics struct {
	TotalImages       int `json:"totalImages"`
	TotalUsers        int `json:"totalUsers"`
	TotalArtStyles    int `json:"totalArtStyles"`
	PendingModeration int `json:"pendingModeration"`
}

type Image struct {
	ID               string           `json:"id"`
	Prompt           string           `json:"prompt"`
	Model            string           `json:"model"`
	Width            int              `json:"width"`
	Height           int              `json:"height"`
	ImageData        string           `json:"imageData"`
	ArtStyle         string           `json:"artStyle"`
	UserDisplayName  *string          `json:"userDisplayName"`
	CreatedAt        time.Time        `json:"createdAt"`
	ModerationStatus ModerationStatus `json:"moderationStatus"`
	LikeCount        int              `json:"likeCount"`
}

type UserProfile struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"userId"`
	DisplayName           *string    `json:"displayName"`
	Bio                   *string    `json:"bio"`
	Location              *string    `json:"location"`
	Website               *string    `json:"website"`
	IsBanned              bool       `json:"isBanned"`
	IsOnline              bool       `json:"isOnline"`
	LastActiveAt          *time.Time `json:"lastActiveAt"`
	TotalImagesGenerated  int        `json:"totalImagesGenerated"`
	TotalImagesSaved      int        `json:"totalImagesSaved"`
	TotalArtStylesCreated int        `json:"totalArtStylesCreated"`
	TotalCustomModels     int        `json:"totalCustomModels"`
	CreatedAt             time.Time  `json:"createdAt"`
}

type ArtStyle struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Keywords    *string   `json:"keywords"`
	CreatedAt   time.Time `json:"createdAt"`
}

// KeywordList splits the comma-joined keywords, dropping blank entries.
func (a ArtStyle) KeywordList() []string {
	if a.Keywords == nil {
		return nil
	}

	var keywords []string
	for _, keyword := range strings.Split(*a.Keywords, ",") {
		keyword = strings.TrimSpace(keyword)
		if keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	return keywords
}

type ConfigFile struct {
	Address           string `validate:"required"`
	Port              string `validate:"required,numeric"`
	TlsCert           string
	TlsKey            string
	PrintHttpRequests bool
	LogToFile         bool
	LogLevel          string `validate:"omitempty,oneof=debug info warn error"`
	JwtSecret         string `validate:"required,min=16"`
	SelfContained     bool
	SqlitePath        string
	DbUser            string `validate:"required_unless=SelfContained true"`
	DbPassword        string
	DbAddress         string `validate:"required_unless=SelfContained true"`
	DbPort            string `validate:"required_unless=SelfContained true"`
	DbDatabase        string `validate:"required_unless=SelfContained true"`
	RedisAddress      string `validate:"required_unless=SelfContained true"`
	RedisPassword     string
	ApiBaseURL        string `validate:"required,url"`
	ApiToken          string
	ApiTimeoutSeconds int `validate:"gte=0"`
	ProductName       string
}
