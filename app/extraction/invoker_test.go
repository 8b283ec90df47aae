package extraction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"
)

// MockBackend replays a fixed sequence of errors, then succeeds.
type MockBackend struct {
	errs  []error
	calls int
	mu    sync.Mutex
}

var _ Backend = (*MockBackend)(nil)

func (m *MockBackend) Name() string  { return "mock" }
func (m *MockBackend) Model() string { return "mock-model" }

func (m *MockBackend) Extract(ctx context.Context, chunk string, extractionType Type, ec Context) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.calls <= len(m.errs) && m.errs[m.calls-1] != nil {
		return Result{}, m.errs[m.calls-1]
	}
	return Single(extractionType, Payload{"discussions": []any{}}), nil
}

// recordingSleeper advances a fake clock instead of sleeping.
type recordingSleeper struct {
	delays  []time.Duration
	elapsed time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.delays = append(s.delays, d)
	s.elapsed += d
	return nil
}

type fixedReservation struct {
	delay     time.Duration
	cancelled bool
}

func (r *fixedReservation) Delay() time.Duration { return r.delay }
func (r *fixedReservation) Cancel()              { r.cancelled = true }

type fixedPacer struct {
	reservation *fixedReservation
	reserved    int
}

func (p *fixedPacer) Reserve() Reservation {
	p.reserved++
	return p.reservation
}

func newTestInvoker(backend Backend, pacer Pacer, sleeper *recordingSleeper, transitions *[]State) *Invoker {
	return NewInvoker(backend, pacer, InvokerConfig{
		Sleep: sleeper.Sleep,
		OnTransition: func(from, to State) {
			if transitions != nil {
				*transitions = append(*transitions, to)
			}
		},
	})
}

func TestInvokerRetriesQuotaThenSucceeds(t *testing.T) {
	backend := &MockBackend{errs: []error{errors.New("extractor error: RESOURCE_EXHAUSTED: 429")}}
	sleeper := &recordingSleeper{}
	var transitions []State

	inv := newTestInvoker(backend, NewRatePacer(0), sleeper, &transitions)

	result, err := inv.Extract(context.Background(), "text", TypeBillDiscussions, Context{TranscriptID: "555"})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if result.IsGrouped() {
		t.Error("Expected single result")
	}
	if backend.calls != 2 {
		t.Errorf("Expected 2 calls, got %d", backend.calls)
	}
	if sleeper.elapsed < 60*time.Second {
		t.Errorf("Expected at least 60s elapsed, got %s", sleeper.elapsed)
	}

	expected := []State{StateCalling, StateBackoffWait, StateCalling, StateSuccess}
	if len(transitions) != len(expected) {
		t.Fatalf("Expected transitions %v, got %v", expected, transitions)
	}
	for i := range expected {
		if transitions[i] != expected[i] {
			t.Errorf("Expected transition %d to be %s, got %s", i, expected[i], transitions[i])
		}
	}
}

func TestInvokerGivesUpAfterMaxAttempts(t *testing.T) {
	quota := errors.New("429 Too Many Requests")
	backend := &MockBackend{errs: []error{quota, quota, quota, quota}}
	sleeper := &recordingSleeper{}

	inv := newTestInvoker(backend, NewRatePacer(0), sleeper, nil)

	_, err := inv.Extract(context.Background(), "text", TypeBillDiscussions, Context{})
	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}

	var extractionErr *Error
	if !errors.As(err, &extractionErr) {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if extractionErr.Kind != KindQuotaExhausted {
		t.Errorf("Expected kind %s, got %s", KindQuotaExhausted, extractionErr.Kind)
	}
	if extractionErr.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", extractionErr.Attempts)
	}
	if backend.calls != 3 {
		t.Errorf("Expected 3 calls, got %d", backend.calls)
	}

	expectedDelays := []time.Duration{60 * time.Second, 120 * time.Second}
	if len(sleeper.delays) != len(expectedDelays) {
		t.Fatalf("Expected delays %v, got %v", expectedDelays, sleeper.delays)
	}
	for i, d := range expectedDelays {
		if sleeper.delays[i] != d {
			t.Errorf("Expected delay %d to be %s, got %s", i, d, sleeper.delays[i])
		}
	}
}

func TestInvokerNonQuotaErrorIsFatal(t *testing.T) {
	backend := &MockBackend{errs: []error{errors.New("extractor exited with code 1: boom")}}
	sleeper := &recordingSleeper{}

	inv := newTestInvoker(backend, NewRatePacer(0), sleeper, nil)

	_, err := inv.Extract(context.Background(), "text", TypeAmendments, Context{})

	var extractionErr *Error
	if !errors.As(err, &extractionErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if extractionErr.Kind != KindBackend {
		t.Errorf("Expected kind %s, got %s", KindBackend, extractionErr.Kind)
	}
	if backend.calls != 1 {
		t.Errorf("Expected 1 call, got %d", backend.calls)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("Expected no sleeps, got %v", sleeper.delays)
	}
}

func TestInvokerMalformedResponse(t *testing.T) {
	backend := &MockBackend{errs: []error{ErrMalformedResponse}}
	inv := newTestInvoker(backend, NewRatePacer(0), &recordingSleeper{}, nil)

	_, err := inv.Extract(context.Background(), "text", TypeAmendments, Context{})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}

	var extractionErr *Error
	if errors.As(err, &extractionErr) && extractionErr.Kind != KindMalformedResponse {
		t.Errorf("Expected kind %s, got %s", KindMalformedResponse, extractionErr.Kind)
	}
}

func TestInvokerPacedWait(t *testing.T) {
	backend := &MockBackend{}
	sleeper := &recordingSleeper{}
	pacer := &fixedPacer{reservation: &fixedReservation{delay: 2 * time.Second}}
	var transitions []State

	inv := newTestInvoker(backend, pacer, sleeper, &transitions)

	if _, err := inv.Extract(context.Background(), "text", TypeBillDiscussions, Context{}); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	if pacer.reserved != 1 {
		t.Errorf("Expected 1 reservation, got %d", pacer.reserved)
	}
	if len(sleeper.delays) != 1 || sleeper.delays[0] != 2*time.Second {
		t.Errorf("Expected a single 2s paced wait, got %v", sleeper.delays)
	}
	if len(transitions) == 0 || transitions[0] != StatePacedWait {
		t.Errorf("Expected first transition to be paced_wait, got %v", transitions)
	}
}

func TestInvokerCancelledDuringPacing(t *testing.T) {
	backend := &MockBackend{}
	pacer := &fixedPacer{reservation: &fixedReservation{delay: time.Second}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := newTestInvoker(backend, pacer, &recordingSleeper{}, nil)

	_, err := inv.Extract(ctx, "text", TypeBillDiscussions, Context{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if !pacer.reservation.cancelled {
		t.Error("Expected reservation to be cancelled")
	}
	if backend.calls != 0 {
		t.Errorf("Expected no backend calls, got %d", backend.calls)
	}
}

func TestSharedPacerSpacesCalls(t *testing.T) {
	pacer := NewRatePacer(time.Hour)

	first := pacer.Reserve()
	if first.Delay() != 0 {
		t.Errorf("Expected first reservation to be immediate, got %s", first.Delay())
	}

	second := pacer.Reserve()
	if second.Delay() < 59*time.Minute {
		t.Errorf("Expected second reservation to wait about an hour, got %s", second.Delay())
	}
}

func TestRetryDelay(t *testing.T) {
	inv := NewInvoker(&MockBackend{}, nil, InvokerConfig{})

	tests := []struct {
		retry    int
		expected time.Duration
	}{
		{1, 60 * time.Second},
		{2, 120 * time.Second},
		{3, 240 * time.Second},
	}

	for _, tt := range tests {
		if got := inv.RetryDelay(tt.retry); got != tt.expected {
			t.Errorf("Expected retry %d delay %s, got %s", tt.retry, tt.expected, got)
		}
	}
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrQuotaExceeded, true},
		{"wrapped sentinel", errors.Join(errors.New("call"), ErrQuotaExceeded), true},
		{"resource exhausted marker", errors.New("RESOURCE_EXHAUSTED: quota"), true},
		{"429 marker", errors.New("HTTP 429"), true},
		{"status code marker", errors.New("status code: 429"), true},
		{"too many requests", errors.New("429 Too Many Requests"), true},
		{"transcript id containing 429", errors.New("transcript 14290 not found"), false},
		{"byte count containing 429", errors.New("read 4291 bytes"), false},
		{"bare 429 number", errors.New("bill 429 rejected"), false},
		{"api error code", genai.APIError{Code: 429, Message: "slow down"}, true},
		{"api error status", genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, true},
		{"api error other", genai.APIError{Code: 500, Status: "INTERNAL", Message: "oops"}, false},
		{"plain", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsQuotaError(tt.err); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestParseType(t *testing.T) {
	for _, valid := range []string{"bill_discussions", "committee_decisions", "amendments", "speaker_statements", "all"} {
		if _, err := ParseType(valid); err != nil {
			t.Errorf("Expected %s to be valid, got %v", valid, err)
		}
	}

	if _, err := ParseType("votes"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("Expected ErrUnknownType, got %v", err)
	}
}

func TestResultBatches(t *testing.T) {
	grouped := Grouped(map[Type]Payload{
		TypeSpeakerStatements: {"speaker_statements": []any{}},
		TypeAmendments:        {"amendments": []any{}},
	})

	batches := grouped.Batches()
	if len(batches) != 2 {
		t.Fatalf("Expected 2 batches, got %d", len(batches))
	}
	if batches[0].Type != TypeAmendments || batches[1].Type != TypeSpeakerStatements {
		t.Errorf("Expected batches sorted by type, got %s, %s", batches[0].Type, batches[1].Type)
	}

	if got := Single(TypeAmendments, nil).Batches(); len(got) != 0 {
		t.Errorf("Expected no batches for nil payload, got %d", len(got))
	}
}

func TestInvokerPacesEachSplitType(t *testing.T) {
	generator := &MockGenerator{}
	backend := &GeminiBackend{models: generator, profiles: testProfiles(t)}
	pacer := &fixedPacer{reservation: &fixedReservation{delay: 2 * time.Second}}
	sleeper := &recordingSleeper{}

	result, err := newTestInvoker(backend, pacer, sleeper, nil).Extract(context.Background(), "text", TypeAll, Context{})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	expected := len(KnownTypes())
	if pacer.reserved != expected {
		t.Errorf("Expected %d reservations, got %d", expected, pacer.reserved)
	}
	if len(generator.prompts) != expected {
		t.Errorf("Expected %d calls, got %d", expected, len(generator.prompts))
	}
	if sleeper.elapsed != time.Duration(expected)*2*time.Second {
		t.Errorf("Expected %v of paced waits, got %v", time.Duration(expected)*2*time.Second, sleeper.elapsed)
	}
	if !result.IsGrouped() || len(result.Batches()) != expected {
		t.Errorf("Expected grouped result with %d batches, got %v", expected, result.Batches())
	}
}

func TestInvokerRetriesOnlyFailedSplitType(t *testing.T) {
	generator := &MockGenerator{failOnce: map[string]error{
		"speaker_statements": genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"},
	}}
	backend := &GeminiBackend{models: generator, profiles: testProfiles(t)}
	pacer := &fixedPacer{reservation: &fixedReservation{}}
	sleeper := &recordingSleeper{}

	if _, err := newTestInvoker(backend, pacer, sleeper, nil).Extract(context.Background(), "text", TypeAll, Context{}); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	if len(generator.prompts) != len(KnownTypes())+1 {
		t.Errorf("Expected %d calls, got %d", len(KnownTypes())+1, len(generator.prompts))
	}

	counts := make(map[Type]int)
	for _, prompt := range generator.prompts {
		for _, known := range KnownTypes() {
			if strings.Contains(prompt, string(known)) {
				counts[known]++
			}
		}
	}
	for _, known := range KnownTypes() {
		expected := 1
		if known == TypeSpeakerStatements {
			expected = 2
		}
		if counts[known] != expected {
			t.Errorf("Expected %d calls for %s, got %d", expected, known, counts[known])
		}
	}
	if len(sleeper.delays) != 1 || sleeper.delays[0] != DefaultBaseDelay {
		t.Errorf("Expected one backoff of %v, got %v", DefaultBaseDelay, sleeper.delays)
	}
}
