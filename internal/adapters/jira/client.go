/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/HamedShams/defect-pulse/internal/config"
)

type Client struct {
	baseURL  string
	token    string
	user     string
	pass     string
	apiVer   string
	pageSize int
	http     *http.Client
	log      zerolog.Logger
	backoff  time.Duration
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL:  cfg.Jira.BaseURL,
		token:    cfg.Jira.PAT,
		user:     cfg.Jira.Username,
		pass:     cfg.Jira.Password,
		apiVer:   cfg.Jira.APIVersion,
		pageSize: cfg.Jira.PageSize,
		http:     &http.Client{Timeout: cfg.Jira.HTTPTimeout},
		log:      log.With().Str("component", "jira").Logger(),
		backoff:  300 * time.Millisecond,
	}
}

func (c *Client) apiURL(path string, q url.Values) string {
	base := strings.TrimRight(c.baseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := base + path
	if len(q) > 0 {
		u = u + "?" + q.Encode()
	}
	return u
}

// do sends the request and returns the raw body. 429 and 5xx are retried
// twice with exponential backoff; other non-2xx statuses fail immediately.
func (c *Client) do(ctx context.Context, method, u string, body any) ([]byte, error) {
	if c.baseURL == "" {
		return nil, errors.New("jira: empty baseURL")
	}
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = b
	}
	var out []byte
	backoff := retry.WithMaxRetries(2, retry.NewExponential(c.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, r)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		} else if c.user != "" && c.pass != "" {
			req.SetBasicAuth(c.user, c.pass)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode >= 300 {
			statusErr := fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				c.log.Warn().Int("status", resp.StatusCode).Str("url", u).Msg("jira request retrying")
				return retry.RetryableError(statusErr)
			}
			return statusErr
		}
		out = b
		return nil
	})
	return out, err
}

// Search returns one page of a JQL search as raw JSON.
func (c *Client) Search(ctx context.Context, jql string, startAt, max int) ([]byte, error) {
	if jql == "" {
		return nil, errors.New("jira: empty jql")
	}
	if c.apiVer == "2" {
		q := url.Values{}
		q.Set("jql", jql)
		if startAt > 0 {
			q.Set("startAt", fmt.Sprint(startAt))
		}
		if max > 0 {
			q.Set("maxResults", fmt.Sprint(max))
		}
		q.Set("fields", "*all")
		return c.do(ctx, http.MethodGet, c.apiURL("/rest/api/2/search", q), nil)
	}
	// default to v3
	body := map[string]any{"jql": jql, "startAt": startAt, "maxResults": max, "fields": []string{"*all"}}
	return c.do(ctx, http.MethodPost, c.apiURL("/rest/api/3/search", nil), body)
}
