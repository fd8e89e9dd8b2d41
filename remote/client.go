// Package remote is the HTTP client side of the form API: the syncer's
// RemoteAPI implemented against the routes this server exposes. Any non-2xx
// answer comes back as an error, which the sync engine treats as retryable.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reliefworks/formsync/model"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a client for the given server. The token is the admin bearer
// token obtained from /api/login; public endpoints ignore it.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) CreateForm(ctx context.Context, form model.Form) (*model.Form, error) {
	saved := &model.Form{}
	err := c.do(ctx, "POST", "/api/admin/forms", form, saved)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (c *Client) UpdateForm(ctx context.Context, id string, form model.Form) (*model.Form, error) {
	saved := &model.Form{}
	err := c.do(ctx, "PUT", "/api/admin/forms/"+id, form, saved)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (c *Client) DeleteForm(ctx context.Context, id string) error {
	return c.do(ctx, "DELETE", "/api/admin/forms/"+id, nil, nil)
}

func (c *Client) SubmitResponse(ctx context.Context, resp model.FormResponse) (*model.FormResponse, error) {
	saved := &model.FormResponse{}
	err := c.do(ctx, "POST", "/api/forms/"+resp.FormID+"/responses", resp, saved)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (c *Client) UpdateResponse(ctx context.Context, id string, resp model.FormResponse) (*model.FormResponse, error) {
	saved := &model.FormResponse{}
	err := c.do(ctx, "PUT", "/api/forms/"+resp.FormID+"/responses/"+id, resp, saved)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote.%s %s: encode: %w", method, path, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("remote.%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote.%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote.%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote.%s %s: decode: %w", method, path, err)
	}
	return nil
}
