package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/steno-comb/app/database"
	"github.com/lysyi3m/steno-comb/app/tasks"
)

type MockScheduler struct {
	tasks []tasks.TaskInterface
	err   error
}

func (m *MockScheduler) Start() {}
func (m *MockScheduler) Stop()  {}

func (m *MockScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if m.err != nil {
		return m.err
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *MockScheduler) QueueLength() int {
	return len(m.tasks)
}

type testServer struct {
	engine      *gin.Engine
	scheduler   *MockScheduler
	transcripts database.TranscriptRepository
	discussions database.DiscussionRepository
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	s := &testServer{
		scheduler:   &MockScheduler{},
		transcripts: database.NewTranscriptRepository(db),
		discussions: database.NewDiscussionRepository(db),
	}
	handler := NewHandler(database.NewCommitteeRepository(db), database.NewBillRepository(db),
		s.transcripts, s.discussions, nil, s.scheduler)
	s.engine = NewServer(handler, apiKey)

	return s
}

func (s *testServer) do(t *testing.T, method, path string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, body
}

func (s *testServer) seed(t *testing.T, transcriptID, text string) *database.Transcript {
	t.Helper()

	tr := &database.Transcript{
		TranscriptID: transcriptID,
		CommitteeID:  3613,
		Type:         "Пленарно заседание",
		ContentHTML:  "<p>" + text + "</p>",
		ContentText:  text,
		WordCount:    len(strings.Fields(text)),
		Metadata:     map[string]any{"steno_id": transcriptID},
	}
	if err := s.transcripts.CreateTranscript(tr); err != nil {
		t.Fatalf("Failed to create transcript: %v", err)
	}
	return tr
}

func TestHealthAndStats(t *testing.T) {
	s := newTestServer(t, "")
	s.seed(t, "555", "Обсъждане на ПЗ №123")

	w, body := s.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if body["transcripts"] != float64(1) {
		t.Errorf("Expected 1 transcript, got %v", body["transcripts"])
	}
	if _, ok := body["timestamp"]; !ok {
		t.Error("Expected timestamp in health response")
	}

	w, body = s.do(t, http.MethodGet, "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	discussions, ok := body["discussions"].(map[string]any)
	if !ok {
		t.Fatalf("Expected discussions object, got %v", body["discussions"])
	}
	if discussions["total"] != float64(0) {
		t.Errorf("Expected 0 discussions, got %v", discussions["total"])
	}
	if body["committees"] != float64(0) || body["bills"] != float64(0) {
		t.Errorf("Expected empty committee and bill counts, got %v and %v", body["committees"], body["bills"])
	}
}

func TestGetTranscript(t *testing.T) {
	s := newTestServer(t, "")
	tr := s.seed(t, "555", "Обсъждане на ПЗ №123")

	votesFor := 95
	_, err := s.discussions.SaveDiscussions(tr.ID, []string{"bill_discussions"}, []database.DiscussionRecord{
		{
			TranscriptID:   tr.ID,
			ExtractionType: "bill_discussions",
			BillIdentifier: "ПЗ №123",
			ProposerName:   "Иван Петров",
			AmendmentType:  "modification",
			Status:         "approved",
			VoteFor:        &votesFor,
			Metadata:       map[string]any{},
		},
	}, false)
	if err != nil {
		t.Fatalf("Failed to save discussions: %v", err)
	}

	w, body := s.do(t, http.MethodGet, "/api/transcripts/555", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if body["transcript_id"] != "555" {
		t.Errorf("Expected transcript_id '555', got %v", body["transcript_id"])
	}

	discussions, ok := body["discussions"].([]any)
	if !ok || len(discussions) != 1 {
		t.Fatalf("Expected 1 discussion, got %v", body["discussions"])
	}
	first := discussions[0].(map[string]any)
	if first["bill_identifier"] != "ПЗ №123" {
		t.Errorf("Expected bill identifier 'ПЗ №123', got %v", first["bill_identifier"])
	}
	if first["vote_for"] != float64(95) {
		t.Errorf("Expected vote_for 95, got %v", first["vote_for"])
	}

	w, _ = s.do(t, http.MethodGet, "/api/transcripts/999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown transcript, got %d", w.Code)
	}
}

func TestExtractEndpointDisabledWithoutKey(t *testing.T) {
	s := newTestServer(t, "")
	s.seed(t, "555", "текст")

	w, _ := s.do(t, http.MethodPost, "/api/transcripts/555/extract", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 when API is disabled, got %d", w.Code)
	}
}

func TestExtractEndpointAuth(t *testing.T) {
	testCases := []struct {
		name     string
		headers  map[string]string
		expected int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": "secret"}, http.StatusAccepted},
		{"bearer key", map[string]string{"Authorization": "Bearer secret"}, http.StatusAccepted},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, "secret")
			s.seed(t, "555", "текст")

			w, _ := s.do(t, http.MethodPost, "/api/transcripts/555/extract", tc.headers)
			if w.Code != tc.expected {
				t.Errorf("Expected status %d, got %d", tc.expected, w.Code)
			}
		})
	}
}

func TestExtractEndpointEnqueuesForcedTask(t *testing.T) {
	s := newTestServer(t, "secret")
	s.seed(t, "555", "текст")
	auth := map[string]string{"X-API-Key": "secret"}

	w, body := s.do(t, http.MethodPost, "/api/transcripts/555/extract?type=amendments", auth)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	if body["success"] != true {
		t.Errorf("Expected success, got %v", body["success"])
	}
	if len(s.scheduler.tasks) != 1 {
		t.Fatalf("Expected 1 queued task, got %d", len(s.scheduler.tasks))
	}
	task := s.scheduler.tasks[0]
	if task.GetType() != tasks.TaskTypeExtractTranscripts {
		t.Errorf("Expected task type %s, got %s", tasks.TaskTypeExtractTranscripts, task.GetType())
	}

	w, _ = s.do(t, http.MethodPost, "/api/transcripts/555/extract?type=bogus", auth)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown type, got %d", w.Code)
	}

	w, _ = s.do(t, http.MethodPost, "/api/transcripts/404/extract", auth)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown transcript, got %d", w.Code)
	}

	s.scheduler.err = errors.New("task queue is full")
	w, _ = s.do(t, http.MethodPost, "/api/transcripts/555/extract", auth)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 when the queue is full, got %d", w.Code)
	}
}

func TestExtractEndpointRejectsEmptyTranscript(t *testing.T) {
	s := newTestServer(t, "secret")
	s.seed(t, "555", "")

	w, _ := s.do(t, http.MethodPost, "/api/transcripts/555/extract", map[string]string{"X-API-Key": "secret"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for transcript without content, got %d", w.Code)
	}
	if len(s.scheduler.tasks) != 0 {
		t.Errorf("Expected no queued task, got %d", len(s.scheduler.tasks))
	}
}
