package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"wmsdash/internal/engine"
	"wmsdash/internal/models"
)

// Run starts expiry of the freshness window and the periodic refresh of
// every dataset that has been loaded. It blocks until ctx is done.
func (c *Client) Run(ctx context.Context) {
	go c.fresh.Start()
	defer c.fresh.Stop()

	if c.cfg.RefreshInterval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(c.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refreshLoaded(ctx, false)
		}
	}
}

// Touch refreshes every loaded dataset that has gone stale. The websocket
// calls it when a client regains focus or reconnects.
func (c *Client) Touch(ctx context.Context, reason string) {
	now := time.Now()
	for _, name := range c.loaded() {
		snap, _ := c.current(name)
		if snap.Err == nil && !snap.Stale(now, c.cfg.StaleAfter) && c.fresh.Has(name) {
			continue
		}
		slog.Debug("refreshing stale dataset", "dataset", name, "reason", reason)
		go c.Refresh(context.WithoutCancel(ctx), name, false)
	}
}

// MarkStale drops every dataset from the freshness window so the next read
// refreshes it.
func (c *Client) MarkStale() {
	c.fresh.DeleteAll()
}

// Sync asks the upstream to pull from NetSuite. All sync endpoints are
// called concurrently and the first failure cancels the rest. On success
// every dataset is marked stale and loaded ones are refetched.
func (c *Client) Sync(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, endpoint := range c.cfg.SyncEndpoints {
		endpoint := endpoint
		g.Go(func() error {
			return c.call(gctx, endpoint)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("netsuite sync: %w", err)
	}

	c.MarkStale()
	c.refreshLoaded(ctx, true)
	c.subs.publish(models.Event{Type: EventSynced})
	return nil
}

func (c *Client) refreshLoaded(ctx context.Context, force bool) {
	for _, name := range c.loaded() {
		go c.Refresh(context.WithoutCancel(ctx), name, force)
	}
}

func (c *Client) loaded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, name := range c.order {
		if _, ok := c.settled[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (c *Client) call(ctx context.Context, endpoint string) error {
	req, err := c.newRequest(ctx, endpoint)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("calling %s: unexpected status %s", endpoint, resp.Status)
	}
	return nil
}

// source adapts one dataset to engine.Source.
type source struct {
	c  *Client
	ds Dataset
}

func (s source) Name() string  { return s.ds.Name }
func (s source) Title() string { return s.ds.Title }
func (s source) Snapshot(ctx context.Context) engine.Snapshot {
	return s.c.Snapshot(ctx, s.ds.Name)
}

// Sources lists every dataset as an engine.Source.
func (c *Client) Sources() []engine.Source {
	out := make([]engine.Source, 0, len(c.order))
	for _, ds := range c.Datasets() {
		out = append(out, source{c: c, ds: ds})
	}
	return out
}
