package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/flowchartsman/retry"
)

// Client implements the platform boundary over the gateway's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

func (c *Client) CreateRole(ctx context.Context, name string) (int64, error) {
	var res struct {
		ID int64 `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/roles", map[string]any{"name": name}, &res)
	return res.ID, err
}

func (c *Client) CreateTextChannel(ctx context.Context, req ChannelRequest) (int64, error) {
	var res struct {
		ID int64 `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/channels/text", req, &res)
	return res.ID, err
}

func (c *Client) CreateVoiceChannel(ctx context.Context, name string, categoryID, roleID, muteRoleID int64) (int64, error) {
	body := map[string]any{
		"name":         name,
		"category_id":  categoryID,
		"role_id":      roleID,
		"mute_role_id": muteRoleID,
	}

	var res struct {
		ID int64 `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/channels/voice", body, &res)
	return res.ID, err
}

func (c *Client) DeleteChannel(ctx context.Context, channelID int64, reason string) error {
	return c.do(ctx, http.MethodDelete, withReason(fmt.Sprintf("/channels/%d", channelID), reason), nil, nil)
}

// SetMuteOverride installs a per-member override on the channel that blocks
// sending, speaking, reacting and thread creation.
func (c *Client) SetMuteOverride(ctx context.Context, channelID, userID int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/channels/%d/overrides/%d/mute", channelID, userID), nil, nil)
}

func (c *Client) RemoveMemberOverride(ctx context.Context, channelID, userID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%d/overrides/%d", channelID, userID), nil, nil)
}

func (c *Client) GrantRole(ctx context.Context, userID, roleID int64, reason string) error {
	return c.do(ctx, http.MethodPut, withReason(fmt.Sprintf("/members/%d/roles/%d", userID, roleID), reason), nil, nil)
}

func (c *Client) RevokeRole(ctx context.Context, userID, roleID int64, reason string) error {
	return c.do(ctx, http.MethodDelete, withReason(fmt.Sprintf("/members/%d/roles/%d", userID, roleID), reason), nil, nil)
}

func (c *Client) SendMessage(ctx context.Context, channelID int64, text string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%d/messages", channelID), map[string]any{"content": text}, nil)
}

func (c *Client) SendDirectMessage(ctx context.Context, userID int64, text string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/members/%d/messages", userID), map[string]any{"content": text}, nil)
}

func (c *Client) PinMessage(ctx context.Context, channelID, messageID int64) (PinOutcome, error) {
	var res struct {
		Outcome PinOutcome `json:"outcome"`
	}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/channels/%d/pins/%d", channelID, messageID), nil, &res)
	if err != nil {
		return "", err
	}

	return res.Outcome, nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%d/messages/%d", channelID, messageID), nil, nil)
}

func (c *Client) VoiceOccupancy(ctx context.Context, channelID int64) (int, error) {
	var res struct {
		Members int `json:"members"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/channels/%d/occupancy", channelID), nil, &res)
	return res.Members, err
}

func (c *Client) MemberRoles(ctx context.Context, userID int64) ([]int64, error) {
	var res struct {
		Roles []int64 `json:"roles"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/members/%d/roles", userID), nil, &res)
	return res.Roles, err
}

// withReason appends the audit reason as a query parameter. Reasons are free
// text and must be escaped before they land in the request line.
func withReason(path, reason string) string {
	if reason == "" {
		return path
	}
	return path + "?reason=" + url.QueryEscape(reason)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	retrier := retry.NewRetrier(3, 100*time.Millisecond, time.Second)

	return retrier.RunContext(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return retry.Stop(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		switch {
		case res.StatusCode == http.StatusNotFound:
			return retry.Stop(ErrNotFound)
		case res.StatusCode >= 500:
			return fmt.Errorf("gateway: %s %s: %s", method, path, res.Status)
		case res.StatusCode >= 400:
			return retry.Stop(fmt.Errorf("gateway: %s %s: %s", method, path, res.Status))
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, res.Body)
			return nil
		}

		err = json.NewDecoder(res.Body).Decode(out)
		if err != nil {
			return retry.Stop(err)
		}

		return nil
	})
}
