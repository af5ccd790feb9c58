package noise

import "errors"

var (
	// ErrSingularCovariance is returned when a covariance matrix cannot be
	// inverted, e.g. when masked channels leave a degenerate system.
	ErrSingularCovariance = errors.New("singular covariance matrix")

	// ErrRatioOutOfRange is returned when a scattering-to-width ratio falls
	// outside the amplitude-ratio table.
	ErrRatioOutOfRange = errors.New("scattering ratio outside amplitude-ratio table")

	// ErrChannelMismatch is returned when per-channel values do not match the
	// number of channels in the grid.
	ErrChannelMismatch = errors.New("per-channel value length does not match channel count")
)

// ConfigError is a custom error type for configuration errors. Configuration
// errors are fatal and reported before any computation starts.
type ConfigError struct {
	msg string
}

func NewConfigError(msg string) *ConfigError {
	return &ConfigError{msg}
}

func (e *ConfigError) Error() string {
	return e.msg
}
