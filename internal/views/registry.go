package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"wmsdash/internal/engine"
	"wmsdash/internal/fetch"
)

var ErrTableNotFound = errors.New("table not found")

// Provider supplies dataset descriptors and their current snapshots.
type Provider interface {
	Dataset(name string) (fetch.Dataset, error)
	Snapshot(ctx context.Context, name string) engine.Snapshot
	Loading(name string) bool
}

// Instance is one open dataset table together with its drill-down
// contexts. All access goes through Registry.Do, which holds mu.
type Instance struct {
	ID      string
	Dataset string

	mu      sync.Mutex
	table   *engine.Table
	nav     *engine.Navigator
	boundAt time.Time
	loading bool
	err     string
}

// Target is the table a request addresses: the root table of an instance
// or one of its drill-down contexts.
type Target struct {
	Instance  *Instance
	Table     *engine.Table
	DrillDown *engine.DrillDown
}

// Navigator opens and closes the drill-down contexts of the instance.
func (t Target) Navigator() *engine.Navigator { return t.Instance.nav }

// Registry keeps the open table instances by id.
type Registry struct {
	p Provider

	mu        sync.RWMutex
	instances map[string]*Instance
}

func NewRegistry(p Provider) *Registry {
	return &Registry{p: p, instances: map[string]*Instance{}}
}

// Open creates a table over a dataset with a fresh view state. A dataset
// that has never loaded opens empty and in the loading state.
func (r *Registry) Open(ctx context.Context, dataset string) (*Instance, error) {
	ds, err := r.p.Dataset(dataset)
	if err != nil {
		return nil, err
	}

	in := &Instance{
		ID:      uuid.NewString(),
		Dataset: ds.Name,
		table:   engine.NewTable(ds.Title, nil, ds.Options),
		nav:     engine.NewNavigator(ds.Options),
	}
	r.sync(ctx, in)

	r.mu.Lock()
	r.instances[in.ID] = in
	r.mu.Unlock()

	slog.Debug("table opened", "table", in.ID, "dataset", ds.Name)
	return in, nil
}

// Close discards a table and all of its drill-down contexts.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	delete(r.instances, id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Do runs fn against a table of an instance while holding its lock.
// drillDown 0 addresses the root table. The root table is rebound to the
// latest snapshot first; drill-down contexts keep the value they were
// opened over.
func (r *Registry) Do(ctx context.Context, id string, drillDown int, fn func(Target) error) error {
	r.mu.RLock()
	in, ok := r.instances[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	r.sync(ctx, in)

	target := Target{Instance: in, Table: in.table}
	if drillDown != 0 {
		dd, err := in.nav.Get(drillDown)
		if err != nil {
			return err
		}
		target.Table = dd.Table
		target.DrillDown = dd
	}
	return fn(target)
}

// sync rebinds the root table when the dataset has settled a newer
// snapshot. It never waits for a first load.
func (r *Registry) sync(ctx context.Context, in *Instance) {
	if r.p.Loading(in.Dataset) {
		in.loading = true
		go r.p.Snapshot(context.WithoutCancel(ctx), in.Dataset)
		return
	}
	in.loading = false

	snap := r.p.Snapshot(ctx, in.Dataset)
	in.err = snap.ErrorText()
	if !snap.FetchedAt.Equal(in.boundAt) {
		in.table.Reload(snap.Records)
		in.boundAt = snap.FetchedAt
	}
}
