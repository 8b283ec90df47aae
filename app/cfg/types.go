package cfg

import "time"

const (
	CommandScrape         = "scrape"
	CommandExtract        = "extract"
	CommandSyncCommittees = "sync-committees"
	CommandSyncBills      = "sync-bills"
	CommandStats          = "stats"
	CommandServe          = "serve"
	CommandCheckDeps      = "check-deps"
)

type Cfg struct {
	// Selected subcommand
	Command string

	// Storage
	DBPath string

	// Archive client
	BaseURL     string
	HTTPTimeout time.Duration
	UserAgent   string
	RedisAddr   string
	CacheTTL    time.Duration

	// Extraction backend
	GeminiAPIKey     string
	GeminiModel      string
	ExtractorCommand string
	ProfilesFile     string
	CallInterval     time.Duration
	MaxAttempts      int
	RetryBaseDelay   time.Duration

	// Workers and scheduling
	WorkerCount       int
	SchedulerInterval time.Duration
	LookbackMonths    int

	// HTTP API
	Port         string
	APIAccessKey string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string

	Scrape    ScrapeOptions
	Extract   ExtractOptions
	SyncBills SyncBillsOptions
}

type ScrapeOptions struct {
	CommitteeIDs  []int64
	AllCommittees bool
	Year          int
	Month         int
	Months        int
	Force         bool
}

type ExtractOptions struct {
	TranscriptIDs []string
	CommitteeID   int64
	From          *time.Time
	To            *time.Time
	Limit         int
	Type          string
	Force         bool
	DryRun        bool
}

type SyncBillsOptions struct {
	CommitteeIDs []int64
	Signatures   bool
}
