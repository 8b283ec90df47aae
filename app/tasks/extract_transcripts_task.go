package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type ExtractTranscriptsTask struct {
	Task
	extractor *Extractor
	request   ExtractRequest
}

func NewExtractTranscriptsTask(extractor *Extractor, request ExtractRequest) *ExtractTranscriptsTask {
	subject := string(request.Type)
	if len(request.Filter.TranscriptIDs) > 0 {
		subject = fmt.Sprintf("%s %v", request.Type, request.Filter.TranscriptIDs)
	}

	return &ExtractTranscriptsTask{
		Task:      NewTask(TaskTypeExtractTranscripts, subject),
		extractor: extractor,
		request:   request,
	}
}

func (t *ExtractTranscriptsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report, err := t.extractor.Run(ctx, t.request)
	if report == nil {
		return err
	}

	slog.Info("Task completed", append([]any{
		"type", string(t.Type),
		"id", t.ID,
		"duration", t.GetDuration(),
		"extraction_type", string(t.request.Type),
	}, report.LogAttrs()...)...)

	// Per-transcript failures are counted in the report, not returned.
	return err
}
