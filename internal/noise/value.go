package noise

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ChannelValue is a per-channel quantity given either as one scalar shared
// by every channel or as an explicit sequence with one entry per channel.
type ChannelValue struct {
	scalar   float64
	explicit []float64
}

// Scalar returns a value broadcast to every channel.
func Scalar(v float64) ChannelValue {
	return ChannelValue{scalar: v}
}

// PerChannel returns an explicit per-channel value. The slice is copied.
func PerChannel(vs []float64) ChannelValue {
	return ChannelValue{explicit: append([]float64(nil), vs...)}
}

// IsExplicit reports whether the value carries one entry per channel.
func (v ChannelValue) IsExplicit() bool {
	return v.explicit != nil
}

// Resolve returns the value for each of n channels.
func (v ChannelValue) Resolve(n int) ([]float64, error) {
	out := make([]float64, n)
	if v.explicit == nil {
		for i := range out {
			out[i] = v.scalar
		}
		return out, nil
	}
	if len(v.explicit) != n {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrChannelMismatch, len(v.explicit), n)
	}
	copy(out, v.explicit)
	return out, nil
}

// positive reports whether every channel's value is above zero. An unset
// value is zero and fails.
func (v ChannelValue) positive() bool {
	if v.explicit == nil {
		return v.scalar > 0
	}
	if len(v.explicit) == 0 {
		return false
	}
	for _, x := range v.explicit {
		if !(x > 0) {
			return false
		}
	}
	return true
}

// UnmarshalYAML accepts either a number or a sequence of numbers.
func (v *ChannelValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var f float64
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("decoding scalar channel value: %w", err)
		}
		*v = Scalar(f)

	case yaml.SequenceNode:
		var fs []float64
		if err := node.Decode(&fs); err != nil {
			return fmt.Errorf("decoding per-channel values: %w", err)
		}
		*v = PerChannel(fs)

	default:
		return fmt.Errorf("line %d: channel value must be a number or a list of numbers", node.Line)
	}
	return nil
}

// MarshalYAML writes the scalar or the explicit list back out.
func (v ChannelValue) MarshalYAML() (any, error) {
	if v.explicit != nil {
		return v.explicit, nil
	}
	return v.scalar, nil
}

// MarshalJSON mirrors MarshalYAML so stored run configurations stay readable.
func (v ChannelValue) MarshalJSON() ([]byte, error) {
	if v.explicit != nil {
		return json.Marshal(v.explicit)
	}
	return json.Marshal(v.scalar)
}
