package config

import "gopkg.in/ini.v1"

// DebugLogConfig is the DEBUGLOG section: logging verbosity and file
// rotation, consumed by the logrus/lumberjack setup at bootstrap.
// Grounded on config/debuglog_config.py.
type DebugLogConfig struct {
	Enabled        bool
	LogToFile      bool
	VerboseLevel   string
	MaxFileSizeKB  int
	MaxBackupCount int
}

func loadDebugLogConfig(file *ini.File) DebugLogConfig {
	section := file.Section("DEBUGLOG")

	return DebugLogConfig{
		Enabled:        section.Key("enabled").MustBool(DefaultDebugLogEnabled),
		LogToFile:      section.Key("log_to_file").MustBool(DefaultDebugLogToFile),
		VerboseLevel:   section.Key("verbose_level").MustString(DefaultDebugLogVerboseLevel),
		MaxFileSizeKB:  section.Key("max_file_size_kb").MustInt(DefaultDebugLogMaxFileSizeKB),
		MaxBackupCount: section.Key("max_backup_count").MustInt(DefaultDebugLogMaxBackupCount),
	}
}
