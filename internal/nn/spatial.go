package nn

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// maxSpatialDims is the largest number of spatial axes any layer supports.
const maxSpatialDims = int(Rank5) - 2

// Spatial is a per-axis layer parameter such as a kernel size, stride or
// dilation. A single value applies to every spatial axis; otherwise there
// must be exactly one value per spatial axis.
type Spatial []int

// Expand returns one value per spatial axis for an input with n spatial axes.
func (s Spatial) Expand(n int) ([]int, error) {
	switch len(s) {
	case 0:
		return nil, errors.New("no values given")
	case 1:
		out := make([]int, n)
		for i := range out {
			out[i] = s[0]
		}
		return out, nil
	case n:
		return append([]int(nil), s...), nil
	default:
		return nil, errors.Errorf("got %d values %v for %d spatial axes", len(s), []int(s), n)
	}
}

// IsScalar reports whether s holds a single broadcast value.
func (s Spatial) IsScalar() bool {
	return len(s) == 1
}

// String returns the value for scalars and a tuple otherwise.
func (s Spatial) String() string {
	if s.IsScalar() {
		return strconv.Itoa(s[0])
	}
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.Itoa(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// expandField expands one named config field, reporting failures as
// InvalidConfigurationError.
func expandField(layer, field string, s Spatial, n int) ([]int, error) {
	values, err := s.Expand(n)
	if err != nil {
		return nil, invalidConfigf(layer, "%s: %v", field, err)
	}
	return values, nil
}

// checkSpatial validates a per-axis field independently of any input: it
// must hold between 1 and maxSpatialDims values, each at least minValue.
func checkSpatial(layer, field string, s Spatial, minValue int) error {
	if len(s) == 0 || len(s) > maxSpatialDims {
		return invalidConfigf(layer, "%s must have 1 to %d values, got %d", field, maxSpatialDims, len(s))
	}
	for _, v := range s {
		if v < minValue {
			return invalidConfigf(layer, "%s must be >= %d, got %v", field, minValue, s)
		}
	}
	return nil
}

// parseInts parses a comma-separated list of integers, e.g. "1, 2".
func parseInts(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	values := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid integer %q in %q", f, s)
		}
		values = append(values, v)
	}
	return values, nil
}

func productOf(values []int) int {
	p := 1
	for _, v := range values {
		p *= v
	}
	return p
}
