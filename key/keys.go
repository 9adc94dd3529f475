// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// DefinedFieldsCount represents the total cardinality of the application configuration schema.
const DefinedFieldsCount = 25

// Download Engine - these keys tune how streams are fetched and written to disk.
const (
	DownloaderWorkers          = "downloader.workers"
	DownloaderChunkSize        = "downloader.chunk_size"
	DownloaderContainer        = "downloader.container"
	DownloaderDefaultContainer = "downloader.default_container"
	DownloaderForceMuxer       = "downloader.force_muxer"
	DownloaderSelectVariant    = "downloader.select_variant"
	DownloaderDirectory        = "downloader.directory"
	DownloaderFilenameTemplate = "downloader.filename_template"
)

// Network Transport - these keys configure the shared HTTP client and its retry policy.
const (
	NetworkRetries        = "network.retries"
	NetworkRetryDelay     = "network.retry_delay"
	NetworkRetryMaxDelay  = "network.retry_max_delay"
	NetworkTimeout        = "network.timeout"
	NetworkTLSFingerprint = "network.tls_fingerprint"
)

// External Media Tools - paths to the ffmpeg suite.
const (
	FFmpegPath  = "ffmpeg.path"
	FFprobePath = "ffprobe.path"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite      = "logs.write"
	LogsLevel      = "logs.level"
	LogsJson       = "logs.json"
	LogsMaxSize    = "logs.max_size"
	LogsMaxBackups = "logs.max_backups"
	LogsMaxAge     = "logs.max_age"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
	CliProgressBar  = "cli.progress_bar"
)
