package bootstrap

import (
	"github.com/kbukum/jobrunner/config"
)

// Config constrains the App's configuration type. Embedding
// config.ServiceConfig by value satisfies it through promoted methods:
//
//	type RunnerConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Pipeline string       `yaml:"pipeline" mapstructure:"pipeline"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
