// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals and defaults the merged Koanf tree.  Any tag mismatch aborts
// startup, so the binary never runs with malformed configuration.
//
// Cross-field rules the tags cannot express live in `crossCheck`.
//
// Notes
// -----
//   • Section dividers use the simple comment style.

package config

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = validator.New()

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	if err := v.Struct(c); err != nil {
		return err
	}
	return crossCheck(c)
}

func crossCheck(c *Config) error {
	if c.Database.MaxIdle > c.Database.MaxOpen {
		return errors.New("database.max_idle exceeds database.max_open")
	}
	if c.Assets.S3Bucket != "" && c.Assets.S3Region == "" && c.Assets.S3Endpoint == "" {
		return errors.New("assets.s3_bucket needs s3_region or s3_endpoint")
	}
	if c.HTTP.AdminAddr != "" && c.HTTP.AdminAddr == c.HTTP.ListenAddr {
		return errors.New("http.admin_addr must differ from http.listen_addr")
	}
	return nil
}
