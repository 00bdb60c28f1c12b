package rdb

import (
	"encoding/json"
	"fmt"

	"github.com/MichaelAllen1966/hypertune"
)

// distRecord is the JSON form a distribution takes inside the
// trial_params.distribution column.
type distRecord struct {
	Kind    string   `json:"kind"`
	Low     float64  `json:"low,omitempty"`
	High    float64  `json:"high,omitempty"`
	Step    int      `json:"step,omitempty"`
	Choices []string `json:"choices,omitempty"`
}

func encodeDistribution(d hypertune.Distribution) ([]byte, error) {
	var rec distRecord

	switch v := d.(type) {
	case hypertune.Uniform:
		rec = distRecord{Kind: "uniform", Low: v.Low, High: v.High}
	case hypertune.LogUniform:
		rec = distRecord{Kind: "loguniform", Low: v.Low, High: v.High}
	case hypertune.IntUniform:
		rec = distRecord{Kind: "int", Low: float64(v.Low), High: float64(v.High), Step: v.Step}
	case hypertune.Categorical:
		rec = distRecord{Kind: "categorical", Choices: v.Choices}
	default:
		return nil, fmt.Errorf("unsupported distribution %T", d)
	}

	return json.Marshal(rec)
}

func decodeDistribution(payload []byte) (hypertune.Distribution, error) {
	var rec distRecord

	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, err
	}

	switch rec.Kind {
	case "uniform":
		return hypertune.Uniform{Low: rec.Low, High: rec.High}, nil
	case "loguniform":
		return hypertune.LogUniform{Low: rec.Low, High: rec.High}, nil
	case "int":
		return hypertune.IntUniform{Low: int(rec.Low), High: int(rec.High), Step: rec.Step}, nil
	case "categorical":
		return hypertune.Categorical{Choices: rec.Choices}, nil
	default:
		return nil, fmt.Errorf("unknown distribution kind %q", rec.Kind)
	}
}
