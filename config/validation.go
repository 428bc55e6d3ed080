package config

import (
	"github.com/nvr-ai/go-detect/common"
	"github.com/nvr-ai/go-detect/logger"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Validate checks every section and reports all problems at once.
//
// Returns:
//   - error: A combination of wrapped common.ErrConfiguration errors, or nil.
func (c *Config) Validate() error {
	var errs error

	if _, err := c.Model.Encoder(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "model"))
	}
	if _, err := c.Model.OutputLayout(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "model.layout"))
	}
	if _, err := c.Model.Resampling(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "model.interpolation"))
	}
	if c.Model.Labels == "" && c.Model.Family == "" {
		errs = multierr.Append(errs, errors.Wrap(common.ErrConfiguration, "model.labels or model.family is required"))
	}

	if _, err := c.Provider.ParsedBackend(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "provider.backend"))
	}
	if err := c.Provider.Config.Validate(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "provider"))
	}

	if err := c.Thresholds.Validate(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "thresholds"))
	}

	if !logger.Valid(c.Log.Level) {
		errs = multierr.Append(errs, errors.Wrapf(common.ErrConfiguration,
			"invalid log.level %q (must be: debug, info, warn, error)", c.Log.Level))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = multierr.Append(errs, errors.Wrapf(common.ErrConfiguration,
			"invalid log.format %q (must be: console or json)", c.Log.Format))
	}

	if c.HistorySize < 0 {
		errs = multierr.Append(errs, errors.Wrapf(common.ErrConfiguration,
			"history_size must be >= 0, got: %d", c.HistorySize))
	}
	return errs
}
