package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/steno-comb/app/database"
	"github.com/lysyi3m/steno-comb/app/extraction"
	"github.com/lysyi3m/steno-comb/app/parliament"
)

type testRepos struct {
	committees  database.CommitteeRepository
	bills       database.BillRepository
	transcripts database.TranscriptRepository
	discussions database.DiscussionRepository
}

func newTestRepos(t *testing.T) *testRepos {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return &testRepos{
		committees:  database.NewCommitteeRepository(db),
		bills:       database.NewBillRepository(db),
		transcripts: database.NewTranscriptRepository(db),
		discussions: database.NewDiscussionRepository(db),
	}
}

// fakeArchive serves canned parliament.bg responses and counts requests per path.
type fakeArchive struct {
	responses map[string]string
	hits      map[string]int
	mu        sync.Mutex
}

func newFakeArchive(t *testing.T, responses map[string]string) (*fakeArchive, *parliament.Client) {
	t.Helper()

	archive := &fakeArchive{responses: responses, hits: make(map[string]int)}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		archive.mu.Lock()
		archive.hits[r.URL.Path]++
		body, ok := archive.responses[r.URL.Path]
		archive.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return archive, parliament.NewClient(server.URL, server.Client(), "steno-comb-test", 2*time.Second)
}

func (a *fakeArchive) Hits(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[path]
}

// MockBackend answers every chunk with the same payload after replaying errs.
type MockBackend struct {
	payload extraction.Payload
	errs    []error
	calls   int
	chunks  []string
	mu      sync.Mutex
}

func (m *MockBackend) Name() string  { return "mock" }
func (m *MockBackend) Model() string { return "mock-model" }

func (m *MockBackend) Extract(ctx context.Context, chunk string, extractionType extraction.Type, ec extraction.Context) (extraction.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.chunks = append(m.chunks, chunk)
	if m.calls <= len(m.errs) && m.errs[m.calls-1] != nil {
		return extraction.Result{}, m.errs[m.calls-1]
	}
	if extractionType == extraction.TypeAll {
		return extraction.Grouped(map[extraction.Type]extraction.Payload{extraction.TypeBillDiscussions: m.payload}), nil
	}
	return extraction.Single(extractionType, m.payload), nil
}

type fakeClock struct {
	elapsed time.Duration
	mu      sync.Mutex
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.elapsed += d
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}
