package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommandBackend runs an external extractor as
// `<command> [args...] <chunk file> <options json>` and reads JSON from stdout.
type CommandBackend struct {
	command  string
	args     []string
	apiKey   string
	profiles *Profiles
}

func NewCommandBackend(commandLine, apiKey string, profiles *Profiles) (*CommandBackend, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: extractor command is empty", ErrNotConfigured)
	}

	return &CommandBackend{
		command:  fields[0],
		args:     fields[1:],
		apiKey:   apiKey,
		profiles: profiles,
	}, nil
}

func (c *CommandBackend) Name() string {
	return "command"
}

// Command is the executable the backend runs.
func (c *CommandBackend) Command() string {
	return c.command
}

func (c *CommandBackend) Model() string {
	return c.profiles.Model
}

func (c *CommandBackend) Extract(ctx context.Context, chunk string, extractionType Type, ec Context) (Result, error) {
	file, err := os.CreateTemp("", "steno-chunk-*.txt")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create chunk file: %w", err)
	}
	defer os.Remove(file.Name())

	if _, err := file.WriteString(chunk); err != nil {
		file.Close()
		return Result{}, fmt.Errorf("failed to write chunk file: %w", err)
	}
	if err := file.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to close chunk file: %w", err)
	}

	options, err := json.Marshal(c.profiles.Options(extractionType))
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode options: %w", err)
	}

	args := append(append([]string{}, c.args...), file.Name(), string(options))
	cmd := exec.CommandContext(ctx, c.command, args...)
	if c.apiKey != "" {
		cmd.Env = append(os.Environ(), "GEMINI_API_KEY="+c.apiKey)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	payload, decodeErr := decodePayload(stdout.String())
	if decodeErr == nil {
		if msg, ok := errorMessage(payload); ok {
			return Result{}, fmt.Errorf("extractor error: %s", msg)
		}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return Result{}, fmt.Errorf("extractor exited with code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return Result{}, fmt.Errorf("failed to run extractor: %w", runErr)
	}
	if decodeErr != nil {
		return Result{}, decodeErr
	}

	if extractionType != TypeAll {
		return Single(extractionType, payload), nil
	}

	grouped := make(map[Type]Payload)
	for _, t := range c.profiles.Expand(TypeAll) {
		sub, ok := payload[string(t)].(map[string]any)
		if !ok {
			continue
		}
		if msg, ok := errorMessage(sub); ok {
			return Result{}, fmt.Errorf("extractor error for %s: %s", t, msg)
		}
		grouped[t] = Payload(sub)
	}
	return Grouped(grouped), nil
}

func errorMessage(payload map[string]any) (string, bool) {
	value, ok := payload["error"]
	if !ok || value == nil {
		return "", false
	}
	if msg, ok := value.(string); ok {
		return msg, true
	}
	return fmt.Sprint(value), true
}
