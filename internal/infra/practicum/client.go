// Package practicum implements the client for the Practicum homework status API.
package practicum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"homework_status_bot/internal/domain/homework"

	"github.com/sirupsen/logrus"
)

// ClientConfig contains configuration for the Practicum API client.
type ClientConfig struct {
	// Endpoint is the full URL of the homework_statuses resource
	Endpoint string

	// Token is sent as "Authorization: OAuth <Token>"
	Token string

	// Timeout bounds the whole request, body read included
	Timeout time.Duration
}

// Client is the Practicum homework status API client.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *logrus.Entry
	now        func() time.Time
}

// NewClient creates a new Practicum API client.
func NewClient(config ClientConfig, logger *logrus.Entry) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
		now:    time.Now,
	}
}

// GetHomeworkStatuses requests homework status changes since fromDate.
// A non-positive fromDate means "now". The decoded body is returned as-is.
func (c *Client) GetHomeworkStatuses(ctx context.Context, fromDate int64) (any, error) {
	if fromDate <= 0 {
		fromDate = c.now().Unix()
	}

	u, err := url.Parse(c.config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	params := u.Query()
	params.Set("from_date", strconv.FormatInt(fromDate, 10))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.config.Token)
	req.Header.Set("Accept", "application/json")

	logCtx := c.logger.WithFields(logrus.Fields{"endpoint": c.config.Endpoint, "from_date": fromDate})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		transportErr := &homework.TransportError{URL: c.config.Endpoint, Err: err}
		logCtx.WithError(err).Error("Practicum endpoint is unreachable")
		return nil, transportErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		logCtx.WithField("status_code", resp.StatusCode).Error("Practicum endpoint returned non-OK status")
		return nil, &homework.EndpointStatusError{URL: c.config.Endpoint, StatusCode: resp.StatusCode}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		logCtx.WithError(err).Error("Failed to read Practicum response body")
		return nil, &homework.TransportError{URL: c.config.Endpoint, Err: err}
	}

	decoded, err := decodeJSON(respBody)
	if err != nil {
		logCtx.WithField("status_code", resp.StatusCode).WithError(err).Error("Practicum endpoint returned invalid JSON")
		return nil, &homework.DecodeError{URL: c.config.Endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	logCtx.Debug("Homework statuses fetched")
	return decoded, nil
}

// decodeJSON keeps numbers as json.Number so integer cursors survive intact.
func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}
