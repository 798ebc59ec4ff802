package classifier

import "math"

// LinearModel is a logistic regression over standardised inputs.
type LinearModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Predict returns sigmoid(bias + w·x).
func (m *LinearModel) Predict(x Vector) float64 {
	z := m.Bias
	for i, w := range m.Weights {
		z += w * x[i]
	}
	return 1 / (1 + math.Exp(-z))
}

// Stump is a depth-one tree: x[Feature] <= Threshold yields Left, otherwise Right.
type Stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
}

// StumpForest averages the leaf probabilities of its stumps.
type StumpForest struct {
	Stumps []Stump `json:"stumps"`
}

// Predict returns the mean leaf value.
func (f *StumpForest) Predict(x Vector) float64 {
	if len(f.Stumps) == 0 {
		return 0
	}
	var sum float64
	for _, s := range f.Stumps {
		if x[s.Feature] <= s.Threshold {
			sum += s.Left
		} else {
			sum += s.Right
		}
	}
	return sum / float64(len(f.Stumps))
}
