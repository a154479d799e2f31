package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"wmsdash/internal/engine"
)

var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrUnauthorized   = errors.New("upstream rejected the token")
)

// Config holds the upstream connection settings.
type Config struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration
	StaleAfter      time.Duration
	RefreshInterval time.Duration
	SyncEndpoints   []string
}

// Dataset names one upstream endpoint and how its document holds records.
type Dataset struct {
	Name       string
	Title      string
	Endpoint   string
	Descriptor engine.Descriptor
	// Options configure the tables opened over this dataset.
	Options engine.TableOptions
}

// Client fetches datasets from the upstream API. Concurrent requests for the
// same dataset share one round trip, and only the newest request of a
// dataset may replace its settled snapshot.
type Client struct {
	cfg  Config
	http *http.Client

	order    []string
	datasets map[string]Dataset

	// fresh holds snapshots inside the freshness window.
	fresh *ttlcache.Cache[string, engine.Snapshot]
	group singleflight.Group

	mu      sync.Mutex
	settled map[string]engine.Snapshot
	gen     map[string]uint64

	subs *subscribers
}

func New(cfg Config, datasets []Dataset) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}

	c := &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		datasets: make(map[string]Dataset, len(datasets)),
		fresh: ttlcache.New(
			ttlcache.WithTTL[string, engine.Snapshot](cfg.StaleAfter),
			ttlcache.WithDisableTouchOnHit[string, engine.Snapshot](),
		),
		settled: map[string]engine.Snapshot{},
		gen:     map[string]uint64{},
		subs:    newSubscribers(),
	}
	for _, ds := range datasets {
		if _, dup := c.datasets[ds.Name]; dup {
			continue
		}
		c.order = append(c.order, ds.Name)
		c.datasets[ds.Name] = ds
	}

	c.fresh.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, engine.Snapshot]) {
		if reason == ttlcache.EvictionReasonExpired {
			slog.Debug("dataset went stale", "dataset", item.Key())
			c.subs.publish(eventStale(item.Key()))
		}
	})
	return c
}

// Datasets lists the configured datasets in configuration order.
func (c *Client) Datasets() []Dataset {
	out := make([]Dataset, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.datasets[name])
	}
	return out
}

func (c *Client) Dataset(name string) (Dataset, error) {
	ds, ok := c.datasets[name]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}
	return ds, nil
}

// Snapshot returns the current records of a dataset. Fresh data is served
// from cache. Stale data is served as is while a background refresh runs.
// With nothing settled yet the call waits for the first fetch.
func (c *Client) Snapshot(ctx context.Context, name string) engine.Snapshot {
	if _, err := c.Dataset(name); err != nil {
		return engine.Snapshot{Dataset: name, Err: err}
	}

	if item := c.fresh.Get(name); item != nil {
		cacheHits.Add(ctx, 1)
		return item.Value()
	}

	if snap, ok := c.current(name); ok {
		go c.Refresh(context.WithoutCancel(ctx), name, false)
		return snap
	}
	return c.Refresh(ctx, name, false)
}

// Loading reports whether a dataset has never settled.
func (c *Client) Loading(name string) bool {
	_, ok := c.current(name)
	return !ok
}

// Refresh fetches a dataset. Without force, a call joins any request already
// in flight. With force, a new request supersedes the in-flight one, whose
// response is then discarded.
func (c *Client) Refresh(ctx context.Context, name string, force bool) engine.Snapshot {
	ds, err := c.Dataset(name)
	if err != nil {
		return engine.Snapshot{Dataset: name, Err: err}
	}

	gen := c.nextGen(name, force)
	if force {
		c.group.Forget(name)
	}

	ch := c.group.DoChan(name, func() (any, error) {
		// the shared request must outlive any single caller
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()
		return c.settle(name, gen, c.load(fctx, ds)), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			dedups.Add(ctx, 1)
		}
		return res.Val.(engine.Snapshot)
	case <-ctx.Done():
		if snap, ok := c.current(name); ok {
			return snap
		}
		return engine.Snapshot{Dataset: name, Err: ctx.Err()}
	}
}

// nextGen returns the generation a new request runs under. Joining callers
// reuse the current generation.
func (c *Client) nextGen(name string, force bool) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if force || c.gen[name] == 0 {
		c.gen[name]++
	}
	return c.gen[name]
}

// settle stores snap unless a newer request has started since, and returns
// whatever is current afterwards.
func (c *Client) settle(name string, gen uint64, snap engine.Snapshot) engine.Snapshot {
	c.mu.Lock()
	if gen < c.gen[name] {
		cur, ok := c.settled[name]
		c.mu.Unlock()
		discarded.Add(context.Background(), 1)
		slog.Debug("discarding superseded response", "dataset", name, "generation", gen)
		if !ok {
			return snap
		}
		return cur
	}

	if snap.Err != nil {
		// keep the last good records next to the error
		if prev, ok := c.settled[name]; ok {
			snap.Records = prev.Records
			snap.FetchedAt = prev.FetchedAt
		}
	}
	c.settled[name] = snap
	c.mu.Unlock()

	if snap.Err != nil {
		c.fresh.Delete(name)
		slog.Warn("dataset fetch failed", "dataset", name, "error", snap.Err)
		c.subs.publish(eventFailed(name, snap.Err))
		return snap
	}
	c.fresh.Set(name, snap, ttlcache.DefaultTTL)
	c.subs.publish(eventRefreshed(name))
	return snap
}

func (c *Client) current(name string) (engine.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.settled[name]
	return snap, ok
}

func (c *Client) load(ctx context.Context, ds Dataset) engine.Snapshot {
	start := time.Now()
	snap := engine.Snapshot{Dataset: ds.Name}

	doc, err := c.getJSON(ctx, ds.Endpoint)
	recordFetch(ctx, ds.Name, time.Since(start), err)
	if err != nil {
		snap.Err = err
		return snap
	}

	snap.Records = engine.LoadRecords(doc, ds.Descriptor)
	snap.FetchedAt = time.Now()
	slog.Debug("dataset fetched", "dataset", ds.Name, "records", len(snap.Records), "duration", time.Since(start))
	return snap
}

func (c *Client) getJSON(ctx context.Context, endpoint string) (engine.Value, error) {
	req, err := c.newRequest(ctx, endpoint)
	if err != nil {
		return engine.Value{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return engine.Value{}, fmt.Errorf("fetching %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return engine.Value{}, fmt.Errorf("fetching %s: %w", endpoint, ErrUnauthorized)
	case resp.StatusCode >= 300:
		return engine.Value{}, fmt.Errorf("fetching %s: unexpected status %s", endpoint, resp.Status)
	}

	doc, err := engine.DecodeJSON(resp.Body)
	if err != nil {
		return engine.Value{}, fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	return doc, nil
}

func (c *Client) newRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", endpoint, err)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	return req, nil
}
