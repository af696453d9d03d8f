package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Upstream directory API
	DirectoryAPIURL string
	DirectoryAPIKey string

	// Scoring oracle
	OracleProvider string
	OracleModel    string
	OracleAPIKey   string
	OracleBaseURL  string

	// Google Sheets
	SheetsAPIURL      string
	SheetsAccessToken string

	// Cache behavior
	StaleDays                 int
	FetchBatchSize            int
	ConcurrentBatches         int
	TimeBudgetSeconds         int
	AnalysisTimeBudgetSeconds int
	RetentionDays             int

	// Enrichment
	EnrichRSS     bool
	EnrichWebsite bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
