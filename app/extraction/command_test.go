package extraction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}

	path := filepath.Join(t.TempDir(), "extractor.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	return path
}

func testProfiles(t *testing.T) *Profiles {
	t.Helper()
	profiles, err := ParseProfiles(defaultProfiles)
	if err != nil {
		t.Fatalf("Failed to parse default profiles: %v", err)
	}
	return profiles
}

func TestCommandBackendSingle(t *testing.T) {
	// Echo the chunk file contents back inside a payload and the options argument.
	script := writeScript(t, `printf '{"discussions":[{"bill_identifier":"%s"}],"options":%s}' "$(cat "$1")" "$2"`)

	backend, err := NewCommandBackend(script, "", testProfiles(t))
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}

	result, err := backend.Extract(context.Background(), "ПЗ №123", TypeBillDiscussions, Context{})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	batches := result.Batches()
	if len(batches) != 1 {
		t.Fatalf("Expected 1 batch, got %d", len(batches))
	}

	items, ok := batches[0].Payload["discussions"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("Expected one discussion, got %v", batches[0].Payload["discussions"])
	}
	item := items[0].(map[string]any)
	if item["bill_identifier"] != "ПЗ №123" {
		t.Errorf("Expected chunk text to reach the extractor, got %v", item["bill_identifier"])
	}

	options, ok := batches[0].Payload["options"].(map[string]any)
	if !ok {
		t.Fatalf("Expected options object, got %v", batches[0].Payload["options"])
	}
	if options["extraction_type"] != "bill_discussions" {
		t.Errorf("Expected extraction_type bill_discussions, got %v", options["extraction_type"])
	}
	if options["include_votes"] != true {
		t.Errorf("Expected include_votes option, got %v", options["include_votes"])
	}
}

func TestCommandBackendErrorObjectIsQuota(t *testing.T) {
	script := writeScript(t, `echo '{"error": "RESOURCE_EXHAUSTED: 429"}'; exit 1`)

	backend, err := NewCommandBackend(script, "", testProfiles(t))
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}

	_, err = backend.Extract(context.Background(), "text", TypeBillDiscussions, Context{})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !IsQuotaError(err) {
		t.Errorf("Expected quota error, got %v", err)
	}
}

func TestCommandBackendMalformedOutput(t *testing.T) {
	script := writeScript(t, `echo 'Processing...'`)

	backend, _ := NewCommandBackend(script, "", testProfiles(t))

	_, err := backend.Extract(context.Background(), "text", TypeAmendments, Context{})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestCommandBackendNonZeroExit(t *testing.T) {
	script := writeScript(t, `echo 'traceback' >&2; exit 3`)

	backend, _ := NewCommandBackend(script, "", testProfiles(t))

	_, err := backend.Extract(context.Background(), "text", TypeAmendments, Context{})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "code 3") || !strings.Contains(err.Error(), "traceback") {
		t.Errorf("Expected exit code and stderr in error, got %v", err)
	}
	if IsQuotaError(err) {
		t.Error("Expected non-quota error")
	}
}

func TestCommandBackendAllIsGrouped(t *testing.T) {
	script := writeScript(t, `echo '{"bill_discussions":{"extractions":[]},"amendments":{"extractions":[{"extraction_text":"x"}]}}'`)

	backend, _ := NewCommandBackend(script, "", testProfiles(t))

	result, err := backend.Extract(context.Background(), "text", TypeAll, Context{})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if !result.IsGrouped() {
		t.Fatal("Expected grouped result")
	}

	batches := result.Batches()
	if len(batches) != 2 {
		t.Fatalf("Expected 2 batches, got %d", len(batches))
	}
	if batches[0].Type != TypeAmendments || batches[1].Type != TypeBillDiscussions {
		t.Errorf("Unexpected batch types %s, %s", batches[0].Type, batches[1].Type)
	}
}

func TestCommandBackendPassesAPIKey(t *testing.T) {
	script := writeScript(t, `printf '{"key":"%s"}' "$GEMINI_API_KEY"`)

	backend, _ := NewCommandBackend(script, "secret", testProfiles(t))

	result, err := backend.Extract(context.Background(), "text", TypeAmendments, Context{})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if got := result.Batches()[0].Payload["key"]; got != "secret" {
		t.Errorf("Expected key secret, got %v", got)
	}
}

func TestNewCommandBackendEmpty(t *testing.T) {
	if _, err := NewCommandBackend("  ", "", nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}

func TestNewCommandBackendSplitsArguments(t *testing.T) {
	backend, err := NewCommandBackend("python3 extractor.py --fast", "", testProfiles(t))
	if err != nil {
		t.Fatalf("NewCommandBackend failed: %v", err)
	}
	if backend.Command() != "python3" {
		t.Errorf("Expected command 'python3', got '%s'", backend.Command())
	}
	if len(backend.args) != 2 || backend.args[0] != "extractor.py" {
		t.Errorf("Expected args [extractor.py --fast], got %v", backend.args)
	}
}
