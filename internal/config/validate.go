package config

import (
	"time"

	derrors "datesort/internal/errors"
)

// Validate checks value ranges. Template syntax is checked by the placement
// package when the template is compiled.
func (c *Config) Validate() error {
	if c.Organize.Template == "" {
		return derrors.New(derrors.ErrConfigInvalid, "organize.template must not be empty")
	}
	if c.Organize.MinYear < 1 {
		return derrors.Newf(derrors.ErrConfigInvalid, "organize.min_year must be positive, got %d", c.Organize.MinYear)
	}
	if now := time.Now().Year(); c.Organize.MinYear > now {
		return derrors.Newf(derrors.ErrConfigInvalid, "organize.min_year %d is after the current year %d", c.Organize.MinYear, now)
	}
	if c.Organize.Workers < 1 {
		return derrors.Newf(derrors.ErrConfigInvalid, "organize.workers must be at least 1, got %d", c.Organize.Workers)
	}
	return nil
}
