package nn

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// UnsupportedRankError is returned when a deferred layer receives an input
// whose rank has no registered factory. It is permanent for that layer.
type UnsupportedRankError struct {
	Layer     string
	Rank      int
	Supported []Rank
}

func (e *UnsupportedRankError) Error() string {
	ranks := make([]string, len(e.Supported))
	for i, r := range e.Supported {
		ranks[i] = fmt.Sprint(int(r))
	}
	return fmt.Sprintf("%s: unsupported input rank %d (supported ranks: %s)", e.Layer, e.Rank, strings.Join(ranks, ", "))
}

// PaddingError is returned when same padding is requested with an even
// kernel size on some spatial axis.
type PaddingError struct {
	Axis       int
	KernelSize int
}

func (e *PaddingError) Error() string {
	return fmt.Sprintf("same padding requires an odd kernel size, got %d on spatial axis %d", e.KernelSize, e.Axis)
}

// InvalidConfigurationError is returned when a layer configuration is
// malformed: out-of-range channels or groups, per-axis lists of the wrong
// length, or shapes the configured layer cannot process.
type InvalidConfigurationError struct {
	Layer  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid configuration: %s", e.Layer, e.Reason)
}

// ConfigurationMismatchError is returned when a specialized layer receives
// an input whose rank differs from the one it was specialized for.
type ConfigurationMismatchError struct {
	Layer       string
	Specialized Rank
	Got         int
}

func (e *ConfigurationMismatchError) Error() string {
	return fmt.Sprintf("%s: specialized for rank %d (%dD) but got an input of rank %d",
		e.Layer, int(e.Specialized), e.Specialized.SpatialDims(), e.Got)
}

func invalidConfigf(layer, format string, args ...any) error {
	return errors.WithStack(&InvalidConfigurationError{Layer: layer, Reason: fmt.Sprintf(format, args...)})
}
