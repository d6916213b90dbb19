package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"visionary-backend/internal/models"
	"visionary-backend/internal/validator"
)

// Client calls the remote admin API over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// APIError carries the message the admin API answered with.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func NewClient(baseURL string, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type checkResponse struct {
	IsAdmin bool `json:"isAdmin"`
}

func (c *Client) CheckAdmin(ctx context.Context, email string) (bool, error) {
	err := validator.Email(email)
	if err != nil {
		return false, fmt.Errorf("admin check for %q: %w", email, err)
	}

	var resp checkResponse
	err = c.request(ctx, http.MethodGet, "/api/admin/check?identity="+url.QueryEscape(email), nil, &resp)
	if err != nil {
		return false, err
	}
	return resp.IsAdmin, nil
}

func (c *Client) Statistics(ctx context.Context) (models.Statistics, error) {
	var stats models.Statistics
	err := c.request(ctx, http.MethodGet, "/api/admin/statistics", nil, &stats)
	return stats, err
}

func (c *Client) Images(ctx context.Context) ([]models.Image, error) {
	images := []models.Image{}
	err := c.request(ctx, http.MethodGet, "/api/admin/images", nil, &images)
	return images, err
}

func (c *Client) UserProfiles(ctx context.Context) ([]models.UserProfile, error) {
	profiles := []models.UserProfile{}
	err := c.request(ctx, http.MethodGet, "/api/admin/user-profiles", nil, &profiles)
	return profiles, err
}

func (c *Client) ArtStyles(ctx context.Context) ([]models.ArtStyle, error) {
	artStyles := []models.ArtStyle{}
	err := c.request(ctx, http.MethodGet, "/api/admin/art-styles", nil, &artStyles)
	return artStyles, err
}

func (c *Client) ModerateImage(ctx context.Context, id string, status models.ModerationStatus) (models.Image, error) {
	err := validator.ModerationStatus(status)
	if err != nil {
		return models.Image{}, err
	}

	body := struct {
		Status models.ModerationStatus `json:"status"`
	}{status}

	var image models.Image
	err = c.request(ctx, http.MethodPatch, fmt.Sprintf("/api/admin/images/%s/moderation", url.PathEscape(id)), body, &image)
	return image, err
}

func (c *Client) DeleteImage(ctx context.Context, id string) error {
	return c.request(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/images/%s", url.PathEscape(id)), nil, nil)
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.request(ctx, http.MethodDelete, fmt.Sprintf("/api/admin/users/%s", url.PathEscape(userID)), nil, nil)
}

func (c *Client) BanUser(ctx context.Context, userID string) (models.UserProfile, error) {
	var profile models.UserProfile
	err := c.request(ctx, http.MethodPatch, fmt.Sprintf("/api/admin/users/%s/ban", url.PathEscape(userID)), struct{}{}, &profile)
	return profile, err
}

func (c *Client) UnbanUser(ctx context.Context, userID string) (models.UserProfile, error) {
	var profile models.UserProfile
	err := c.request(ctx, http.MethodPatch, fmt.Sprintf("/api/admin/users/%s/unban", url.PathEscape(userID)), struct{}{}, &profile)
	return profile, err
}

// request is the generic helper every endpoint goes through. A nil body
// sends no payload, a nil out discards the response.
func (c *Client) request(ctx context.Context, method string, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return readAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(raw, &errResp)

	msg := strings.TrimSpace(errResp.Message)
	if msg == "" {
		msg = strings.TrimSpace(errResp.Error)
	}
	if msg == "" && !json.Valid(raw) {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = resp.Status
	}

	return &APIError{Status: resp.StatusCode, Message: msg}
}
