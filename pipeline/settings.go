package pipeline

import (
	"github.com/kbukum/jobrunner/config"
	"github.com/kbukum/jobrunner/errors"
	"github.com/kbukum/jobrunner/validation"
)

// Document keys read by the runner.
const (
	KeySettings     = "settings"
	KeyPipeline     = "pipeline"
	KeyName         = "settings.configuration-name"
	KeyThreadPool   = "settings.threadpool-size"
	KeyHistorySize  = "settings.performance-history-size"
	handlerSuffix   = ".handler"
	inputSuffix     = ".input"
	jobConfigSuffix = ".config"
)

// Settings are the engine-level settings of a pipeline document.
type Settings struct {
	Name                   string `mapstructure:"configuration-name" json:"configuration_name" validate:"required"`
	ThreadPoolSize         int    `mapstructure:"threadpool-size" json:"threadpool_size" validate:"gt=0"`
	PerformanceHistorySize int    `mapstructure:"performance-history-size" json:"performance_history_size" validate:"gt=0"`
}

// LoadSettings reads and validates the settings section of a document.
func LoadSettings(store *config.Store) (Settings, error) {
	s := Settings{
		Name:                   store.AsString(KeyName),
		ThreadPoolSize:         store.AsInt(KeyThreadPool),
		PerformanceHistorySize: store.AsInt(KeyHistorySize),
	}
	if err := validation.Validate(s); err != nil {
		return Settings{}, errors.StructuralConfig("invalid %s: %v", KeySettings, err).WithCause(err)
	}
	return s, nil
}
