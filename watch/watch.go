// Package watch re-fetches a set of people on a cron schedule and reports
// changes to their primary affiliation and end date.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/sul-dlss/mais-person-client/metrics"
	"github.com/sul-dlss/mais-person-client/person"
	"github.com/sul-dlss/mais-person-client/record"
	"github.com/sul-dlss/mais-person-client/roster"
)

// Snapshot holds the watched fields of one person.
type Snapshot struct {
	SunetID         string
	Found           bool
	Relationship    string
	PrimaryRole     string
	PrimaryOrgCode  string
	StanfordEndDate string
}

// SnapshotOf captures doc. A nil doc is a person that was not found.
func SnapshotOf(sunetid string, doc *person.Document) Snapshot {
	if doc == nil {
		return Snapshot{SunetID: sunetid}
	}
	return Snapshot{
		SunetID:         sunetid,
		Found:           true,
		Relationship:    record.Value(doc.Relationship()),
		PrimaryRole:     record.Value(doc.PrimaryRole()),
		PrimaryOrgCode:  record.Value(doc.PrimaryOrgCode()),
		StanfordEndDate: record.Value(doc.StanfordEndDate()),
	}
}

type Change struct {
	SunetID string
	Field   string
	Old     string
	New     string
}

func (c Change) String() string {
	return fmt.Sprintf("%s: %s changed from %q to %q", c.SunetID, c.Field, c.Old, c.New)
}

// Diff lists the fields that differ between two snapshots of one person.
func Diff(before, after Snapshot) []Change {
	var changes []Change
	add := func(field, was, now string) {
		if was != now {
			changes = append(changes, Change{SunetID: after.SunetID, Field: field, Old: was, New: now})
		}
	}
	add("found", fmt.Sprint(before.Found), fmt.Sprint(after.Found))
	add("relationship", before.Relationship, after.Relationship)
	add("primary_role", before.PrimaryRole, after.PrimaryRole)
	add("primary_org_code", before.PrimaryOrgCode, after.PrimaryOrgCode)
	add("stanford_end_date", before.StanfordEndDate, after.StanfordEndDate)
	return changes
}

type Options struct {
	// Schedule is a cron spec; descriptors such as "@every 1h" are accepted.
	Schedule    string
	Concurrency int
	Metrics     *metrics.Metrics
	OnChange    func(Change)
}

// Watcher tracks the last snapshot of each watched person.
type Watcher struct {
	fetcher  roster.Fetcher
	sunetids []string
	opts     Options

	mu      sync.Mutex
	last    map[string]Snapshot
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

func New(fetcher roster.Fetcher, sunetids []string, opts Options) *Watcher {
	return &Watcher{
		fetcher:  fetcher,
		sunetids: sunetids,
		opts:     opts,
		last:     make(map[string]Snapshot),
	}
}

// Check fetches every watched person once and returns what changed since
// the previous check. The first check only records a baseline. Failed
// lookups keep their previous snapshot.
func (w *Watcher) Check(ctx context.Context) ([]Change, error) {
	entries, err := roster.Collect(ctx, w.fetcher, w.sunetids, w.opts.Concurrency)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	var changes []Change
	for _, e := range entries {
		if e.Err != nil {
			continue
		}
		snap := SnapshotOf(e.SunetID, e.Person)
		if prev, ok := w.last[e.SunetID]; ok {
			changes = append(changes, Diff(prev, snap)...)
		}
		w.last[e.SunetID] = snap
	}
	w.mu.Unlock()

	for _, c := range changes {
		w.opts.Metrics.IncrementWatchChanges()
		slog.Info("Watched person changed",
			"sunetid", c.SunetID, "field", c.Field, "old", c.Old, "new", c.New)
		if w.opts.OnChange != nil {
			w.opts.OnChange(c)
		}
	}
	return changes, nil
}

// Snapshots returns a copy of the latest snapshot per sunetid.
func (w *Watcher) Snapshots() map[string]Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maps.Clone(w.last)
}

// Start schedules Check. Overlapping runs are skipped. A stopped watcher
// may be started again.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(w.opts.Schedule, func() {
		slog.Info("Starting scheduled watch check", "people", len(w.sunetids))
		if _, err := w.Check(ctx); err != nil {
			slog.Error("Watch check failed", "error", err)
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("adding watch schedule %q: %w", w.opts.Schedule, err)
	}

	c.Start()
	w.cron = c
	w.cancel = cancel
	w.running = true
	slog.Info("Watcher started", "schedule", w.opts.Schedule)
	return nil
}

// Stop cancels a running check and waits for it to return.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	c, cancel := w.cron, w.cancel
	w.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	slog.Info("Watcher stopped")
}
