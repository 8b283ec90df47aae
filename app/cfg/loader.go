package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type scrapeCmd struct {
	Committees []int64 `long:"committee" short:"c" description:"Committee id to scan (repeatable)"`
	All        bool    `long:"all" description:"Scan every stored committee"`
	Year       int     `long:"year" description:"Archive year (defaults to the current year)"`
	Month      int     `long:"month" description:"Archive month (defaults to the current month)"`
	Months     int     `long:"months" description:"Scan the last N months instead of a single period"`
	Force      bool    `long:"force" description:"Refetch transcripts that already have content"`
}

type extractCmd struct {
	Transcripts []string `long:"transcript" short:"t" description:"External transcript id to extract (repeatable)"`
	Committee   int64    `long:"committee" short:"c" description:"Only transcripts of this committee"`
	From        string   `long:"from" description:"Only transcripts on or after this date (YYYY-MM-DD)"`
	To          string   `long:"to" description:"Only transcripts on or before this date (YYYY-MM-DD)"`
	Limit       int      `long:"limit" default:"10" description:"Maximum number of transcripts to process"`
	All         bool     `long:"all" description:"Process every matching transcript (ignores --limit)"`
	Type        string   `long:"type" default:"bill_discussions" description:"Extraction type: bill_discussions, committee_decisions, amendments, speaker_statements or all"`
	Force       bool     `long:"force" description:"Re-extract transcripts and replace their stored discussions"`
	DryRun      bool     `long:"dry-run" description:"List the transcripts that would be processed"`
}

type syncBillsCmd struct {
	Committees []int64 `long:"committee" short:"c" description:"Committee id to sync (defaults to every stored committee)"`
	Signatures bool    `long:"signatures" description:"Fetch each bill's registry signature from the detail endpoint"`
}

type emptyCmd struct{}

type rawCfg struct {
	// Storage
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/steno.db" description:"SQLite database file"`

	// Archive client
	BaseURL     string `long:"base-url" env:"PARLIAMENT_BASE_URL" default:"https://www.parliament.bg" description:"parliament.bg base URL"`
	HTTPTimeout int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30" description:"Archive request timeout in seconds"`
	UserAgent   string `long:"user-agent" env:"USER_AGENT" default:"Steno Comb/1.0" description:"User agent string for HTTP requests"`
	RedisAddr   string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for caching committee and bill responses (optional)"`
	CacheTTL    int    `long:"cache-ttl" env:"CACHE_TTL" default:"21600" description:"Cache lifetime in seconds for archive responses"`

	// Extraction backend
	GeminiAPIKey     string `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key"`
	GeminiModel      string `long:"gemini-model" env:"GEMINI_MODEL" description:"Override the model from the extraction profiles"`
	ExtractorCommand string `long:"extractor-command" env:"EXTRACTOR_COMMAND" description:"External extractor command; used instead of the Gemini API when set"`
	ProfilesFile     string `long:"profiles" env:"PROFILES_FILE" default:"./extraction.yml" description:"Extraction profiles file (embedded defaults when missing)"`
	CallInterval     int    `long:"call-interval" env:"CALL_INTERVAL" default:"2" description:"Minimum seconds between extraction calls"`
	MaxAttempts      int    `long:"max-attempts" env:"MAX_ATTEMPTS" default:"3" description:"Attempts per chunk when the backend reports quota exhaustion"`
	RetryBaseDelay   int    `long:"retry-delay" env:"RETRY_DELAY" default:"60" description:"Base backoff delay in seconds, doubled on each retry"`

	// Workers and scheduling
	WorkerCount       int `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of concurrent transcripts"`
	SchedulerInterval int `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Scheduler interval in seconds (serve)"`
	LookbackMonths    int `long:"lookback-months" env:"LOOKBACK_MONTHS" default:"1" description:"Months scanned by each scheduled scrape (serve)"`

	// HTTP API
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port (serve)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"Europe/Sofia" description:"Timezone used for archive periods"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Scrape         scrapeCmd    `command:"scrape" description:"Discover and store transcripts from the archive"`
	Extract        extractCmd   `command:"extract" description:"Extract bill discussions from stored transcripts"`
	SyncCommittees emptyCmd     `command:"sync-committees" description:"Refresh the committee list"`
	SyncBills      syncBillsCmd `command:"sync-bills" description:"Refresh the bill registry"`
	Stats          emptyCmd     `command:"stats" description:"Print extraction statistics"`
	Serve          emptyCmd     `command:"serve" description:"Run the scheduler and the HTTP API"`
	CheckDeps      emptyCmd     `command:"check-deps" description:"Report whether an extraction backend is configured"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	cfg, err := LoadArgs(os.Args[1:])
	if err != nil || cfg == nil {
		return cfg, err
	}

	globalCfg = cfg
	return cfg, nil
}

// LoadArgs parses args and the environment. It returns (nil, nil) when help
// was requested.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		BaseURL:           raw.BaseURL,
		HTTPTimeout:       time.Duration(raw.HTTPTimeout) * time.Second,
		UserAgent:         raw.UserAgent,
		RedisAddr:         raw.RedisAddr,
		CacheTTL:          time.Duration(raw.CacheTTL) * time.Second,
		GeminiAPIKey:      raw.GeminiAPIKey,
		GeminiModel:       raw.GeminiModel,
		ExtractorCommand:  raw.ExtractorCommand,
		ProfilesFile:      raw.ProfilesFile,
		CallInterval:      time.Duration(raw.CallInterval) * time.Second,
		MaxAttempts:       raw.MaxAttempts,
		RetryBaseDelay:    time.Duration(raw.RetryBaseDelay) * time.Second,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: time.Duration(raw.SchedulerInterval) * time.Second,
		LookbackMonths:    raw.LookbackMonths,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if parser.Active != nil {
		cfg.Command = parser.Active.Name
	}

	if err := validate(&raw); err != nil {
		return nil, err
	}

	cfg.Scrape = ScrapeOptions{
		CommitteeIDs:  raw.Scrape.Committees,
		AllCommittees: raw.Scrape.All,
		Year:          raw.Scrape.Year,
		Month:         raw.Scrape.Month,
		Months:        raw.Scrape.Months,
		Force:         raw.Scrape.Force,
	}

	extract, err := extractOptions(raw.Extract)
	if err != nil {
		return nil, err
	}
	cfg.Extract = extract

	cfg.SyncBills = SyncBillsOptions{
		CommitteeIDs: raw.SyncBills.Committees,
		Signatures:   raw.SyncBills.Signatures,
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(raw *rawCfg) error {
	positiveFields := map[string]int{
		"http timeout":       raw.HTTPTimeout,
		"max attempts":       raw.MaxAttempts,
		"worker count":       raw.WorkerCount,
		"scheduler interval": raw.SchedulerInterval,
	}
	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	nonNegativeFields := map[string]int{
		"call interval":   raw.CallInterval,
		"retry delay":     raw.RetryBaseDelay,
		"cache ttl":       raw.CacheTTL,
		"lookback months": raw.LookbackMonths,
		"scrape months":   raw.Scrape.Months,
		"extract limit":   raw.Extract.Limit,
	}
	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if raw.Scrape.Month < 0 || raw.Scrape.Month > 12 {
		return fmt.Errorf("month must be between 1 and 12")
	}

	return nil
}

func extractOptions(raw extractCmd) (ExtractOptions, error) {
	opts := ExtractOptions{
		TranscriptIDs: raw.Transcripts,
		CommitteeID:   raw.Committee,
		Limit:         raw.Limit,
		Type:          raw.Type,
		Force:         raw.Force,
		DryRun:        raw.DryRun,
	}
	if raw.All {
		opts.Limit = 0
	}

	var err error
	if opts.From, err = parseDate("from", raw.From); err != nil {
		return opts, err
	}
	if opts.To, err = parseDate("to", raw.To); err != nil {
		return opts, err
	}
	if opts.From != nil && opts.To != nil && opts.To.Before(*opts.From) {
		return opts, fmt.Errorf("--to must not be before --from")
	}

	return opts, nil
}

func parseDate(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date %q: expected YYYY-MM-DD", name, value)
	}
	return &t, nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
