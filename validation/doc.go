// Package validation provides struct tag and programmatic validation that
// report failures as *errors.AppError values.
//
// # Struct Tag Validation
//
//	type Settings struct {
//	    Name       string `mapstructure:"configuration-name" validate:"required"`
//	    Threadpool int    `mapstructure:"threadpool-size" validate:"gt=0"`
//	}
//	err := validation.Validate(settings)
//
// Field names in messages are taken from the mapstructure tag, then the json
// tag, so they match the keys of the document the struct was read from.
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("name", name).OneOf("environment", env, envs)
//	err := v.Err()
package validation
