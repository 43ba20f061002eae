package constants

// Frequency is the informational cadence class of a habit
type Frequency string

const (
	AppName             = "daystreak"
	DefaultKeyringUser  = "database-connection"
	DefaultConfigPath   = "~/.config/daystreak/daystreak.db"
	DefaultSettingsFile = "~/.config/daystreak/config.yaml"
	MemoryConfig        = ":memory:"
	KeyringConfig       = "keyring"
	Version             = "v0.1.0"

	// DateFormat is the day-key layout (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// MonthFormat is the month-key layout (YYYY-MM)
	MonthFormat = "2006-01"

	// TimeFormat is the reminder time-of-day layout (HH:MM)
	TimeFormat = "15:04"

	// Habit defaults
	DefaultHabitColor  = "#4CAF50"
	DefaultTargetCount = 1

	// Frequency classes
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyCustom  Frequency = "CUSTOM"

	// Analytics
	DaysPerWeek             = 7
	StatsWindowDays         = 30
	DefaultHeatmapDays      = 91
	DefaultBatchConcurrency = 4

	// Reconciliation
	SettingLastReconciledDay = "last_reconciled_day"
	DefaultReconcileAt       = "00:05"
	DefaultMetricsAddr       = "127.0.0.1:9464"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "daystreak-"
	BackupFileSuffix = ".db"
)
