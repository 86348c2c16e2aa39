package cli

import (
	"github.com/glorpus-work/thinlaunch/internal/logger"
	"github.com/glorpus-work/thinlaunch/pkg/config"
)

// InitLogger configures logging from the settings file and global flags.
// JSON output selects JSON log records as well.
func InitLogger(cfg *config.Config) {
	format := logger.FormatText
	if cfg.Settings.OutputFormat == string(EncodingJSON) {
		format = logger.FormatJSON
	}
	logger.InitLogger(cfg.Settings.LogLevel, format)
}
