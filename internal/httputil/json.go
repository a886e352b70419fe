// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// maxBody bounds how much of a response body is decoded or kept for errors.
const maxBody = 8 << 20

// StatusError reports a non-2xx response. Body holds at most 512 bytes of the
// response for diagnostics; it must not be shown to end users.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.Code)
}

// IsStatus reports whether err is a StatusError carrying code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// JSONClient issues bounded JSON requests against one service.
type JSONClient struct {
	Client     *http.Client
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	Log        *zap.Logger
}

// GetJSON issues a GET and decodes a 2xx JSON response into dst.
func (c *JSONClient) GetJSON(ctx context.Context, url string, header http.Header, dst any) error {
	return c.do(ctx, http.MethodGet, url, header, nil, dst)
}

// PostJSON encodes body as JSON, POSTs it, and decodes a 2xx JSON response into dst.
// A nil dst discards the response body.
func (c *JSONClient) PostJSON(ctx context.Context, url string, body, dst any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, nil, data, dst)
}

func (c *JSONClient) do(ctx context.Context, method, url string, header http.Header, body []byte, dst any) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := DoWithRetryLog(ctx, c.Client, req, c.MaxRetries, c.Log)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, URL: req.URL.Redacted(), Code: resp.StatusCode, Body: string(snippet)}
	}
	if dst == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(dst); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}
