package repository

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"

	"github.com/okian/fraudscope/internal/domain/model"
)

// featureBlob is the compressed detail column of a transaction row.
type featureBlob struct {
	Features model.Features `json:"features"`
	Tags     []string       `json:"tags,omitempty"`
}

// encodeFeatures serialises features and tags as snappy-compressed JSON.
func encodeFeatures(f model.Features, tags []string) ([]byte, error) {
	raw, err := json.Marshal(featureBlob{Features: f, Tags: tags})
	if err != nil {
		return nil, fmt.Errorf("marshal features: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

// decodeFeatures reverses encodeFeatures. An empty blob yields zero values.
func decodeFeatures(data []byte) (model.Features, []string, error) {
	if len(data) == 0 {
		return model.Features{}, nil, nil
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return model.Features{}, nil, fmt.Errorf("decompress features: %w", err)
	}
	var blob featureBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return model.Features{}, nil, fmt.Errorf("unmarshal features: %w", err)
	}
	return blob.Features, blob.Tags, nil
}
