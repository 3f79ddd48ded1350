package roster

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sul-dlss/mais-person-client/person"
	"github.com/sul-dlss/mais-person-client/record"
)

type fakeFetcher struct {
	docs     map[string]*person.Document
	errs     map[string]error
	delay    time.Duration
	inFlight int32
	maxSeen  int32

	mu    sync.Mutex
	calls []string
}

func (f *fakeFetcher) FetchUser(ctx context.Context, sunetid string, _ ...string) (*person.Document, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, sunetid)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if err := f.errs[sunetid]; err != nil {
		return nil, err
	}
	return f.docs[sunetid], nil
}

func donald(t *testing.T) *person.Document {
	t.Helper()
	raw, err := os.ReadFile("../person/testdata/person_sample.xml")
	require.NoError(t, err)
	return person.New(string(raw))
}

func TestCollect(t *testing.T) {
	f := &fakeFetcher{
		docs: map[string]*person.Document{"donald": donald(t)},
		errs: map[string]error{"broken": errors.New("Mais server error: boom")},
	}

	entries, err := Collect(context.Background(), f, []string{"donald", " ", "nobody", "broken", "donald"}, 2)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "donald", entries[0].SunetID)
	assert.NotNil(t, entries[0].Person)
	assert.NoError(t, entries[0].Err)

	assert.Equal(t, "nobody", entries[1].SunetID)
	assert.Nil(t, entries[1].Person)
	assert.NoError(t, entries[1].Err)

	assert.Equal(t, "broken", entries[2].SunetID)
	assert.EqualError(t, entries[2].Err, "Mais server error: boom")

	assert.ElementsMatch(t, []string{"donald", "nobody", "broken"}, f.calls)
}

func TestCollect_BoundsConcurrency(t *testing.T) {
	f := &fakeFetcher{delay: 10 * time.Millisecond}
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	entries, err := Collect(context.Background(), f, ids, 3)
	require.NoError(t, err)
	assert.Len(t, entries, len(ids))
	assert.LessOrEqual(t, atomic.LoadInt32(&f.maxSeen), int32(3))
	assert.Greater(t, atomic.LoadInt32(&f.maxSeen), int32(0))
}

func TestCollect_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, &fakeFetcher{}, []string{"donald"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRowFromEntry(t *testing.T) {
	doc := donald(t)

	t.Run("found", func(t *testing.T) {
		row := RowFromEntry(Entry{SunetID: "donald", Person: doc})
		assert.Equal(t, "donald", row.SunetID)
		assert.Equal(t, "Donald Duck", row.Name)
		assert.Equal(t, "donald.duck@duckmail.com", row.Email)
		assert.Equal(t, "Chief Quack Officer", row.JobTitle)
		assert.Equal(t, "staff", row.Role)
		assert.Equal(t, "DUCK", row.OrgCode)
		assert.Equal(t, "adventurer", row.Relationship)
		assert.Equal(t, record.Value(doc.WorkPhone().FullNumber), row.WorkPhone)
		assert.Empty(t, row.EndDate)
		assert.Equal(t, StatusFound, row.Status)
	})

	t.Run("not found", func(t *testing.T) {
		row := RowFromEntry(Entry{SunetID: "nobody"})
		assert.Equal(t, Row{SunetID: "nobody", Status: StatusNotFound}, row)
	})

	t.Run("error", func(t *testing.T) {
		row := RowFromEntry(Entry{SunetID: "broken", Err: errors.New("boom")})
		assert.Equal(t, "error: boom", row.Status)
		assert.Empty(t, row.Name)
	})

	t.Run("empty document", func(t *testing.T) {
		row := RowFromPerson("ghost", person.New(`<Person sunetid="ghost"/>`))
		assert.Equal(t, Row{SunetID: "ghost", Status: StatusFound}, row)
	})
}

func TestFormatRows(t *testing.T) {
	rows := Rows([]Entry{
		{SunetID: "nobody"},
		{SunetID: "broken", Err: errors.New("boom")},
	})

	data := FormatRows(rows)
	require.Len(t, data, 3)
	assert.Len(t, data[0], len(Header))
	assert.Equal(t, "SUNet ID", data[0][0])
	assert.Equal(t, "Status", data[0][len(Header)-1])
	assert.Equal(t, "nobody", data[1][0])
	assert.Equal(t, StatusNotFound, data[1][len(Header)-1])
	assert.Equal(t, "error: boom", data[2][len(Header)-1])

	assert.Len(t, FormatRows(nil), 1)
}
