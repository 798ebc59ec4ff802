package classifier

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

//go:embed default_model.json
var defaultBundle []byte

// Bundle is the serialised form of both models and their shared scaler.
type Bundle struct {
	Version  string       `json:"version"`
	Features []string     `json:"features"`
	Scaler   ScalerParams `json:"scaler"`
	Linear   *LinearModel `json:"linear"`
	Forest   *StumpForest `json:"forest"`
}

// ScalerParams standardise raw inputs: (x - mean) / std.
type ScalerParams struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func (s ScalerParams) transform(v Vector) Vector {
	var out Vector
	for i := range v {
		std := s.Std[i]
		if std == 0 {
			std = 1
		}
		out[i] = (v[i] - s.Mean[i]) / std
	}
	return out
}

// LoadBundle reads a bundle from path, or the embedded default when path is empty.
func LoadBundle(path string) (Bundle, error) {
	data := defaultBundle
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return Bundle{}, fmt.Errorf("%w: read %s: %v", ErrUnavailable, path, err)
		}
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if err := b.Validate(); err != nil {
		return Bundle{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return b, nil
}

// Validate checks the bundle matches the feature layout.
func (b Bundle) Validate() error {
	if len(b.Features) != NumFeatures {
		return fmt.Errorf("%w: %d features, want %d", ErrInvalidModel, len(b.Features), NumFeatures)
	}
	for i, name := range b.Features {
		if name != FeatureNames[i] {
			return fmt.Errorf("%w: feature %d is %q, want %q", ErrInvalidModel, i, name, FeatureNames[i])
		}
	}
	if len(b.Scaler.Mean) != NumFeatures || len(b.Scaler.Std) != NumFeatures {
		return fmt.Errorf("%w: scaler width", ErrInvalidModel)
	}
	if b.Linear == nil || b.Forest == nil {
		return fmt.Errorf("%w: both models are required", ErrInvalidModel)
	}
	if len(b.Linear.Weights) != NumFeatures {
		return fmt.Errorf("%w: linear weights width %d", ErrInvalidModel, len(b.Linear.Weights))
	}
	if len(b.Forest.Stumps) == 0 {
		return fmt.Errorf("%w: empty forest", ErrInvalidModel)
	}
	for i, st := range b.Forest.Stumps {
		if st.Feature < 0 || st.Feature >= NumFeatures {
			return fmt.Errorf("%w: stump %d feature %d", ErrInvalidModel, i, st.Feature)
		}
		if st.Left < 0 || st.Left > 1 || st.Right < 0 || st.Right > 1 {
			return fmt.Errorf("%w: stump %d leaf outside [0,1]", ErrInvalidModel, i)
		}
	}
	for _, x := range append(append([]float64{}, b.Scaler.Mean...), b.Scaler.Std...) {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: non-finite scaler value", ErrInvalidModel)
		}
	}
	return nil
}
