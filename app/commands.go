package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"sort"
	"time"

	"github.com/lysyi3m/steno-comb/app/api"
	"github.com/lysyi3m/steno-comb/app/database"
	"github.com/lysyi3m/steno-comb/app/extraction"
	"github.com/lysyi3m/steno-comb/app/tasks"
)

func (a *app) storedCommitteeIDs() ([]int64, error) {
	committees, err := a.committees.GetCommittees()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(committees))
	for _, c := range committees {
		ids = append(ids, c.CommitteeID)
	}
	return ids, nil
}

func (a *app) scrape(ctx context.Context) int {
	opts := a.cfg.Scrape

	ids := opts.CommitteeIDs
	if opts.AllCommittees {
		stored, err := a.storedCommitteeIDs()
		if err != nil {
			slog.Error("Failed to get committees", "error", err)
			return 1
		}
		ids = append(ids, stored...)
	}
	if len(ids) == 0 {
		slog.Error("No committees to scan", "hint", "pass --committee or run sync-committees and use --all")
		return 1
	}

	now := time.Now()
	var periods []tasks.Period
	if opts.Months > 0 {
		periods = tasks.RecentPeriods(now, opts.Months)
	} else {
		year, month := opts.Year, opts.Month
		if year == 0 {
			year = now.Year()
		}
		if month == 0 {
			month = int(now.Month())
		}
		periods = []tasks.Period{{Year: year, Month: month}}
	}

	report := a.ingester.Run(ctx, tasks.ScrapeRequest{
		CommitteeIDs: ids,
		Periods:      periods,
		Force:        opts.Force,
	})

	slog.Info("Scrape completed", append([]any{"committees", len(ids), "periods", len(periods)}, report.LogAttrs()...)...)
	return 0
}

func (a *app) extract(ctx context.Context) int {
	opts := a.cfg.Extract

	extractionType, err := extraction.ParseType(opts.Type)
	if err != nil {
		slog.Error("Invalid extraction type", "type", opts.Type, "error", err)
		return 1
	}
	if !opts.DryRun && !a.requireBackend() {
		return 1
	}

	req := tasks.ExtractRequest{
		Filter: database.TranscriptFilter{
			TranscriptIDs: opts.TranscriptIDs,
			CommitteeID:   opts.CommitteeID,
			From:          opts.From,
			To:            opts.To,
			Limit:         opts.Limit,
		},
		Type:   extractionType,
		Force:  opts.Force,
		DryRun: opts.DryRun,
	}

	if a.backend != nil {
		slog.Info("Extracting transcripts", "backend", a.backend.Name(), "model", a.backend.Model(), "type", string(extractionType))
	}

	report, err := a.extractor.Run(ctx, req)
	if report != nil {
		slog.Info("Extraction completed", report.LogAttrs()...)
	}
	if err != nil {
		slog.Error("Extraction interrupted", "error", err)
		return 1
	}
	if report.Failed > 0 {
		return 1
	}
	return 0
}

func (a *app) syncCommittees(ctx context.Context) int {
	count, err := a.syncer.SyncCommittees(ctx)
	if err != nil {
		slog.Error("Committee sync failed", "error", err)
		return 1
	}
	slog.Info("Committee sync completed", "committees", count)
	return 0
}

func (a *app) syncBills(ctx context.Context) int {
	ids := a.cfg.SyncBills.CommitteeIDs
	if len(ids) == 0 {
		stored, err := a.storedCommitteeIDs()
		if err != nil {
			slog.Error("Failed to get committees", "error", err)
			return 1
		}
		ids = stored
	}
	if len(ids) == 0 {
		slog.Error("No committees to sync bills for", "hint", "run sync-committees first")
		return 1
	}

	count, err := a.syncer.SyncBills(ctx, ids, a.cfg.SyncBills.Signatures)
	if err != nil {
		slog.Error("Bill sync failed", "error", err)
		return 1
	}
	slog.Info("Bill sync completed", "committees", len(ids), "bills", count)
	return 0
}

func (a *app) stats() int {
	stats, err := a.discussions.GetDiscussionStats()
	if err != nil {
		slog.Error("Failed to get discussion stats", "error", err)
		return 1
	}

	counts := []struct {
		label string
		count func() (int, error)
	}{
		{"Committees", a.committees.GetCommitteeCount},
		{"Bills", a.bills.GetBillCount},
		{"Transcripts", a.transcripts.GetTranscriptCount},
	}
	for _, c := range counts {
		n, err := c.count()
		if err != nil {
			slog.Error("Failed to count rows", "table", c.label, "error", err)
			return 1
		}
		fmt.Printf("%-16s %d\n", c.label+":", n)
	}

	fmt.Printf("%-16s %d\n", "Discussions:", stats.Total)
	fmt.Printf("%-16s %d\n", "High confidence:", stats.HighConfidence)
	fmt.Printf("%-16s %d\n", "Low confidence:", stats.LowConfidence)
	fmt.Printf("%-16s %d\n", "Linked to bill:", stats.LinkedToBill)
	printCounts("By status", stats.ByStatus)
	printCounts("By amendment type", stats.ByAmendmentType)

	return 0
}

func printCounts(title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %-14s %d\n", k, counts[k])
	}
}

func (a *app) checkDeps() int {
	ok := true

	switch {
	case a.cfg.ExtractorCommand != "":
		fmt.Printf("Extractor command: %s\n", a.cfg.ExtractorCommand)
		if a.backend == nil {
			ok = false
		} else if backend, isCommand := a.backend.(*extraction.CommandBackend); isCommand {
			if path, err := exec.LookPath(backend.Command()); err != nil {
				fmt.Printf("  not found on PATH: %v\n", err)
				ok = false
			} else {
				fmt.Printf("  resolved to %s\n", path)
			}
		}
	case a.cfg.GeminiAPIKey != "":
		fmt.Printf("Gemini API key: set (model %s)\n", a.profiles.Model)
	default:
		fmt.Println("Extraction backend: not configured (set GEMINI_API_KEY or EXTRACTOR_COMMAND)")
		ok = false
	}

	var types []string
	for _, t := range a.profiles.Expand(extraction.TypeAll) {
		types = append(types, string(t))
	}
	fmt.Printf("Extraction types: %v (chunk size %d)\n", types, a.profiles.ChunkSize)

	if !ok {
		return 1
	}
	return 0
}

func (a *app) serve(ctx context.Context) int {
	if !a.requireBackend() {
		return 1
	}

	extractionType, err := extraction.ParseType(cmp.Or(a.cfg.Extract.Type, string(extraction.TypeBillDiscussions)))
	if err != nil {
		slog.Error("Invalid extraction type", "type", a.cfg.Extract.Type, "error", err)
		return 1
	}

	slog.Info("Starting scheduler", "workers", a.cfg.WorkerCount, "interval", a.cfg.SchedulerInterval.String())
	scheduler := tasks.NewScheduler(a.ingester, a.extractor, a.syncer, a.committees, tasks.SchedulerConfig{
		Interval:       a.cfg.SchedulerInterval,
		WorkerCount:    a.cfg.WorkerCount,
		LookbackMonths: a.cfg.LookbackMonths,
		ExtractionType: extractionType,
		ExtractLimit:   a.cfg.Extract.Limit,
	})
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(a.committees, a.bills, a.transcripts, a.discussions, a.extractor, scheduler)
	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      api.NewServer(handler, a.cfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", a.cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	code := 0
	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
		code = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Steno Comb shutdown complete")
	return code
}
