package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/mlopez/surveyforge/model"
)

// InvitationLink is a freshly created shareable link. ShareURL is relative
// to the response flow origin unless the server was started with a public
// base URL.
type InvitationLink struct {
	Token     string    `json:"token"`
	ShareURL  string    `json:"share_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *Client) CreateInvitation(ctx context.Context, surveyId string, expiresInHours int) (*InvitationLink, error) {
	body := map[string]any{"expires_in_hours": expiresInHours}
	link := InvitationLink{}
	err := c.do(ctx, http.MethodPost, "/surveys/"+surveyId+"/invitations", nil, body, &link)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *Client) ListInvitations(ctx context.Context, surveyId string) ([]model.Invitation, error) {
	var out struct {
		Invitations []model.Invitation `json:"invitations"`
	}
	err := c.do(ctx, http.MethodGet, "/surveys/"+surveyId+"/invitations", nil, nil, &out)
	return out.Invitations, err
}

// DeactivateInvitation is idempotent; deactivating twice is not an error.
func (c *Client) DeactivateInvitation(ctx context.Context, surveyId, token string) error {
	return c.do(ctx, http.MethodDelete, "/surveys/"+surveyId+"/invitations/"+token, nil, nil, nil)
}

// ValidateInvitation is a pure read; it reserves nothing on the server.
func (c *Client) ValidateInvitation(ctx context.Context, token string) (valid bool, err error) {
	query := url.Values{"token": {token}}
	var out struct {
		Valid bool `json:"valid"`
	}
	err = c.do(ctx, http.MethodGet, "/invitations/validate", query, nil, &out)
	return out.Valid, err
}

// Login exchanges admin credentials for a bearer token and installs it on
// the client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/login", nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(username, password)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	err = decodeBody(resp.Body, &out)
	if err != nil {
		return err
	}
	c.token = out.AccessToken
	return nil
}
