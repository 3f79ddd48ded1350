package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sul-dlss/mais-person-client/metrics"
	"github.com/sul-dlss/mais-person-client/person"
)

type stubFetcher struct {
	mu   sync.Mutex
	docs map[string]*person.Document
	errs map[string]error
}

func (s *stubFetcher) FetchUser(_ context.Context, sunetid string, _ ...string) (*person.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[sunetid]; err != nil {
		return nil, err
	}
	return s.docs[sunetid], nil
}

func (s *stubFetcher) set(sunetid string, doc *person.Document, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[sunetid] = doc
	s.errs[sunetid] = err
}

// blockingFetcher holds every lookup until its context ends.
type blockingFetcher struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingFetcher) FetchUser(ctx context.Context, _ string, _ ...string) (*person.Document, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return nil, nil
	}
}

func personXML(role, org, endDate string) *person.Document {
	return person.New(`<Person sunetid="donald" relationship="staff" stanfordenddate="` + endDate + `">
  <affiliation affnum="1" type="` + role + `">
    <department><organization adminid="` + org + `">Duck Org</organization></department>
  </affiliation>
</Person>`)
}

func TestSnapshotOf(t *testing.T) {
	assert.Equal(t, Snapshot{SunetID: "ghost"}, SnapshotOf("ghost", nil))

	snap := SnapshotOf("donald", personXML("faculty", "DUCK", "2030-01-01"))
	assert.True(t, snap.Found)
	assert.Equal(t, "staff", snap.Relationship)
	assert.Equal(t, "faculty", snap.PrimaryRole)
	assert.Equal(t, "DUCK", snap.PrimaryOrgCode)
	assert.Equal(t, "2030-01-01", snap.StanfordEndDate)
}

func TestDiff(t *testing.T) {
	before := Snapshot{SunetID: "donald", Found: true, PrimaryRole: "staff", PrimaryOrgCode: "DUCK"}

	assert.Empty(t, Diff(before, before))

	after := before
	after.PrimaryOrgCode = "MONEY"
	after.StanfordEndDate = "2030-01-01"
	changes := Diff(before, after)
	require.Len(t, changes, 2)
	assert.Equal(t, Change{SunetID: "donald", Field: "primary_org_code", Old: "DUCK", New: "MONEY"}, changes[0])
	assert.Equal(t, "stanford_end_date", changes[1].Field)
	assert.Equal(t, `donald: primary_org_code changed from "DUCK" to "MONEY"`, changes[0].String())

	gone := Diff(before, Snapshot{SunetID: "donald"})
	assert.Equal(t, "found", gone[0].Field)
	assert.Equal(t, "true", gone[0].Old)
	assert.Equal(t, "false", gone[0].New)
}

func TestWatcher_Check(t *testing.T) {
	fetcher := &stubFetcher{docs: map[string]*person.Document{}, errs: map[string]error{}}
	fetcher.set("donald", personXML("staff", "DUCK", ""), nil)
	fetcher.set("daisy", personXML("staff", "DAISY", ""), nil)

	m := metrics.New(prometheus.NewRegistry())
	var notified []Change
	w := New(fetcher, []string{"donald", "daisy"}, Options{
		Concurrency: 2,
		Metrics:     m,
		OnChange:    func(c Change) { notified = append(notified, c) },
	})

	changes, err := w.Check(context.Background())
	require.NoError(t, err)
	assert.Empty(t, changes, "first check records a baseline")
	assert.Len(t, w.Snapshots(), 2)

	fetcher.set("donald", personXML("staff", "MONEY", ""), nil)
	fetcher.set("daisy", nil, errors.New("Mais server error: boom"))

	changes, err = w.Check(context.Background())
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "donald", changes[0].SunetID)
	assert.Equal(t, "MONEY", changes[0].New)
	assert.Equal(t, changes, notified)
	assert.Equal(t, "DAISY", w.Snapshots()["daisy"].PrimaryOrgCode, "failed lookup keeps the previous snapshot")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WatchChanges))

	fetcher.set("daisy", nil, nil)
	changes, err = w.Check(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, changes)
	assert.Equal(t, "daisy", changes[0].SunetID)
	assert.Equal(t, "found", changes[0].Field)
}

func TestWatcher_CheckCanceled(t *testing.T) {
	fetcher := &stubFetcher{docs: map[string]*person.Document{}, errs: map[string]error{}}
	w := New(fetcher, []string{"donald"}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Check(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatcher_StartStop(t *testing.T) {
	fetcher := &stubFetcher{docs: map[string]*person.Document{}, errs: map[string]error{}}

	t.Run("invalid schedule", func(t *testing.T) {
		w := New(fetcher, nil, Options{Schedule: "every now and then"})
		assert.Error(t, w.Start())
	})

	t.Run("start twice", func(t *testing.T) {
		w := New(fetcher, nil, Options{Schedule: "@every 1h"})
		require.NoError(t, w.Start())
		assert.Error(t, w.Start())
		w.Stop()
		w.Stop()
	})
	t.Run("restart schedules once", func(t *testing.T) {
		w := New(fetcher, nil, Options{Schedule: "@every 1h"})
		require.NoError(t, w.Start())
		w.Stop()
		require.NoError(t, w.Start())
		defer w.Stop()
		assert.Len(t, w.cron.Entries(), 1)
	})
}

func TestWatcher_StopCancelsRunningCheck(t *testing.T) {
	fetcher := &blockingFetcher{started: make(chan struct{})}
	w := New(fetcher, []string{"donald"}, Options{Schedule: "@every 1s", Concurrency: 1})
	require.NoError(t, w.Start())

	select {
	case <-fetcher.started:
	case <-time.After(3 * time.Second):
		w.Stop()
		t.Fatal("scheduled check never started")
	}

	begin := time.Now()
	w.Stop()
	assert.Less(t, time.Since(begin), time.Second)
}
