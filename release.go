package tablekit

import "sync"

// Releasable is any value holding Arrow memory, such as a Table or Column.
//
// Always release what an operation returns, usually with defer:
//
//	out, err := tablekit.Profile(t)
//	if err != nil {
//		return err
//	}
//	defer out.Release()
type Releasable interface {
	Release()
}

// Tracker releases many resources at once. It suits loops that produce
// intermediate tables whose lifetimes end together.
//
// The Tracker is safe for concurrent use from multiple goroutines.
type Tracker struct {
	mu        sync.Mutex
	resources []Releasable
}

// Track adds resources to be released by ReleaseAll. Nil tables are ignored.
func (t *Tracker) Track(resources ...Releasable) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range resources {
		if tbl, ok := r.(*Table); ok && tbl == nil {
			continue
		}
		if r != nil {
			t.resources = append(t.resources, r)
		}
	}
}

// Count returns the number of tracked resources
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.resources)
}

// ReleaseAll releases every tracked resource, newest first, and forgets them
func (t *Tracker) ReleaseAll() {
	t.mu.Lock()
	resources := t.resources
	t.resources = nil
	t.mu.Unlock()

	for i := len(resources) - 1; i >= 0; i-- {
		resources[i].Release()
	}
}

// WithTracker runs fn with a Tracker and releases everything it tracked
func WithTracker(fn func(*Tracker) error) error {
	var tracker Tracker
	defer tracker.ReleaseAll()
	return fn(&tracker)
}

// WithTable runs fn on the table produced by factory and releases it afterwards
func WithTable(factory func() (*Table, error), fn func(*Table) error) error {
	t, err := factory()
	if err != nil {
		return err
	}
	defer t.Release()
	return fn(t)
}
