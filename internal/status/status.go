// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package status consumes a deck engine's status channel from the client
// side. A Subscription pushes presentation snapshots as they arrive over
// SSE, degrading to polling when the stream transport fails; a Watcher
// maintains one subscription per in-flight presentation.
// Implements: prd005-status-channel (R4-R6);
//
//	docs/ARCHITECTURE § Status Channel.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/openai/openai-go/packages/ssestream"
	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/pkg/types"
)

const defaultPollInterval = 10 * time.Second

// Client reaches one engine's HTTP surface.
type Client struct {
	// BaseURL is the engine's address, e.g. "http://127.0.0.1:8080".
	BaseURL string

	// Owner scopes requests when non-empty.
	Owner string

	// HTTPClient defaults to http.DefaultClient. Streaming requests need
	// a client without a response timeout.
	HTTPClient *http.Client

	// PollInterval is the polling cadence after the stream transport
	// fails (default 10s).
	PollInterval time.Duration

	Log *zap.Logger
}

func (c *Client) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func (c *Client) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return defaultPollInterval
	}
	return c.PollInterval
}

func (c *Client) recordURL(id string) string {
	u := c.BaseURL + "/api/presentations/" + url.PathEscape(id)
	if c.Owner != "" {
		u += "?owner=" + url.QueryEscape(c.Owner)
	}
	return u
}

func (c *Client) eventsURL(id string) string {
	u := c.BaseURL + "/api/presentations/" + url.PathEscape(id) + "/events"
	if c.Owner != "" {
		u += "?owner=" + url.QueryEscape(c.Owner)
	}
	return u
}

// Get fetches one presentation snapshot.
func (c *Client) Get(ctx context.Context, id string) (types.Presentation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.recordURL(id), nil)
	if err != nil {
		return types.Presentation{}, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return types.Presentation{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.Presentation{}, fmt.Errorf("status: GET %s: %s", c.recordURL(id), resp.Status)
	}
	var p types.Presentation
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return types.Presentation{}, fmt.Errorf("status: decoding presentation: %w", err)
	}
	return p, nil
}

// Subscription delivers presentation snapshots for one id until the
// presentation reaches a terminal status, the server reports it missing,
// or the context ends. Updates is closed when the subscription ends.
type Subscription struct {
	// Updates carries snapshots in arrival order, stale ones dropped.
	Updates <-chan types.Presentation

	cancel context.CancelFunc
	done   chan struct{}
}

// Stop ends the subscription and waits for its goroutine to exit.
func (s *Subscription) Stop() {
	s.cancel()
	<-s.done
}

// Done reports subscription teardown.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Subscribe opens a subscription for id. The stream transport is tried
// first; any transport failure switches the subscription to polling
// rather than ending it.
func (c *Client) Subscribe(ctx context.Context, id string) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	updates := make(chan types.Presentation)
	sub := &Subscription{Updates: updates, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer close(updates)

		// forward reconciles every snapshot, whichever transport it came
		// by: stale writes lose by UpdatedAt, terminal status ends the
		// subscription.
		var last time.Time
		forward := func(p types.Presentation) (terminal bool) {
			if p.UpdatedAt.Before(last) {
				return false
			}
			last = p.UpdatedAt
			select {
			case updates <- p:
			case <-ctx.Done():
				return true
			}
			return p.Status.Terminal()
		}

		if done := c.streamUpdates(ctx, id, forward); done {
			return
		}
		c.pollUpdates(ctx, id, forward)
	}()

	return sub
}

// streamUpdates consumes the SSE transport. It returns true when the
// subscription is finished (terminal snapshot, server-reported error, or
// cancellation) and false when the transport failed and polling should
// take over.
func (c *Client) streamUpdates(ctx context.Context, id string, forward func(types.Presentation) bool) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.eventsURL(id), nil)
	if err != nil {
		return false
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		c.logger().Warn("status stream unavailable, falling back to polling",
			zap.String("id", id), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger().Warn("status stream refused, falling back to polling",
			zap.String("id", id), zap.String("status", resp.Status))
		return false
	}

	decoder := ssestream.NewDecoder(resp)
	for decoder.Next() {
		ev := decoder.Event()
		switch ev.Type {
		case "", "message":
			var p types.Presentation
			if err := json.Unmarshal(ev.Data, &p); err != nil {
				c.logger().Warn("undecodable status event", zap.Error(err))
				continue
			}
			if forward(p) {
				return true
			}
		case "error":
			c.logger().Warn("server ended status stream with an error",
				zap.String("id", id), zap.ByteString("payload", ev.Data))
			return true
		case "complete":
			return true
		}
	}

	if ctx.Err() != nil {
		return true
	}
	if err := decoder.Err(); err != nil {
		c.logger().Warn("status stream broke, falling back to polling",
			zap.String("id", id), zap.Error(err))
	}
	return false
}

// pollUpdates is the degraded transport: periodic snapshot fetches.
func (c *Client) pollUpdates(ctx context.Context, id string, forward func(types.Presentation) bool) {
	ticker := time.NewTicker(c.pollInterval())
	defer ticker.Stop()

	for {
		p, err := c.Get(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger().Warn("status poll failed", zap.String("id", id), zap.Error(err))
		} else if forward(p) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
