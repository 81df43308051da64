// Package liveclient is the client-side half of the live-session core: the
// HTTP API client, the polling directory store, the conferencing engine
// adapter and the join/leave idempotence guards.
package liveclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/NgouanKoffi/fullmargin-live/internal/errors"
	"github.com/NgouanKoffi/fullmargin-live/internal/httputil"
	"github.com/NgouanKoffi/fullmargin-live/internal/model"
)

const defaultTimeout = 15 * time.Second

// Client calls the live-session registry. Every response is the server's
// authoritative record; callers feed it into a DirectoryStore rather than
// mutating local state.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(baseURL, bearerToken string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   bearerToken,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type scheduleBody struct {
	CommunityID string    `json:"communityId"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"startsAt"`
	IsPublic    bool      `json:"isPublic"`
}

func (c *Client) Schedule(ctx context.Context, p model.ScheduleParams) (*model.LiveSession, error) {
	return c.postLive(ctx, "/lives/schedule", scheduleBody{
		CommunityID: p.CommunityID,
		Title:       p.Title,
		StartsAt:    p.StartsAt,
		IsPublic:    p.IsPublic,
	})
}

type updateBody struct {
	Title    string    `json:"title"`
	StartsAt time.Time `json:"startsAt"`
	IsPublic bool      `json:"isPublic"`
}

func (c *Client) Update(ctx context.Context, id string, p model.UpdateParams) (*model.LiveSession, error) {
	return c.postLive(ctx, fmt.Sprintf("/lives/%s/update", id), updateBody{
		Title:    p.Title,
		StartsAt: p.StartsAt,
		IsPublic: p.IsPublic,
	})
}

func (c *Client) Cancel(ctx context.Context, id string) (*model.LiveSession, error) {
	return c.postLive(ctx, fmt.Sprintf("/lives/%s/cancel", id), nil)
}

type startNowBody struct {
	CommunityID string `json:"communityId"`
	Title       string `json:"title"`
	IsPublic    bool   `json:"isPublic"`
}

func (c *Client) StartNow(ctx context.Context, p model.StartNowParams) (*model.LiveSession, error) {
	return c.postLive(ctx, "/lives/start-now", startNowBody{
		CommunityID: p.CommunityID,
		Title:       p.Title,
		IsPublic:    p.IsPublic,
	})
}

type goLiveBody struct {
	Title    string `json:"title"`
	IsPublic bool   `json:"isPublic"`
}

func (c *Client) GoLive(ctx context.Context, id string, p model.GoLiveParams) (*model.LiveSession, error) {
	return c.postLive(ctx, fmt.Sprintf("/lives/%s/go-live", id), goLiveBody{
		Title:    p.Title,
		IsPublic: p.IsPublic,
	})
}

func (c *Client) End(ctx context.Context, id string) (*model.LiveSession, error) {
	return c.postLive(ctx, fmt.Sprintf("/lives/%s/end", id), nil)
}

func (c *Client) Get(ctx context.Context, id string) (*model.LiveSession, error) {
	var data struct {
		Live *model.LiveSession `json:"live"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/lives/%s", id), nil, &data); err != nil {
		return nil, err
	}
	return data.Live, nil
}

func (c *Client) ListByCommunity(ctx context.Context, communityID string) ([]model.LiveSession, error) {
	var data struct {
		Items []model.LiveSession `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/lives/by-community/%s", communityID), nil, &data); err != nil {
		return nil, err
	}
	return data.Items, nil
}

func (c *Client) ListPublicLive(ctx context.Context) ([]model.PublicLiveSummary, error) {
	var data struct {
		Items []model.PublicLiveSummary `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/lives/public-live", nil, &data); err != nil {
		return nil, err
	}
	return data.Items, nil
}

// RequestToken fetches a fresh join credential. No caching: every join
// attempt goes back to the server so the role and expiry are current.
func (c *Client) RequestToken(ctx context.Context, id, displayName string) (*model.JoinGrant, error) {
	path := fmt.Sprintf("/lives/%s/jitsi-token?name=%s", id, url.QueryEscape(displayName))
	var grant model.JoinGrant
	if err := c.do(ctx, http.MethodGet, path, nil, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

func (c *Client) postLive(ctx context.Context, path string, body any) (*model.LiveSession, error) {
	var data struct {
		Live *model.LiveSession `json:"live"`
	}
	if err := c.do(ctx, http.MethodPost, path, body, &data); err != nil {
		return nil, err
	}
	if data.Live == nil {
		return nil, apperrors.Transport("empty response", nil)
	}
	return data.Live, nil
}

type envelope struct {
	OK    bool                `json:"ok"`
	Data  json.RawMessage     `json:"data"`
	Error string              `json:"error"`
	Code  apperrors.ErrorCode `json:"code"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.Internal("encode request").WithCause(err)
		}
		reader = bytes.NewReader(payload)
	} else if method == http.MethodPost {
		reader = bytes.NewReader([]byte("{}"))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Internal("build request").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Transport("request failed", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apperrors.Transport("decode response", err)
	}

	if !env.OK {
		code := env.Code
		if code == "" {
			code = httputil.CodeFromStatus(resp.StatusCode)
		}
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return apperrors.New(code, msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperrors.Transport("decode payload", err)
		}
	}
	return nil
}
