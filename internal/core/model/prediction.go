package model

import "encoding/json"

// Predictor names, used as result set buckets.
const (
	PredictorLibabigail = "libabigail"
	PredictorSmeagle    = "smeagle"
	PredictorSymbols    = "symbols"
)

// Prediction is a single verdict. Prediction is true iff the predictor judged
// the specific comparison safe.
type Prediction struct {
	ID          string          `json:"id"`
	Binary      string          `json:"binary,omitempty"`
	Lib         string          `json:"lib,omitempty"`
	OriginalLib string          `json:"original_lib,omitempty"`
	SplicedLib  string          `json:"spliced_lib,omitempty"`
	Replace     string          `json:"replace,omitempty"`
	SpliceType  SpliceType      `json:"splice_type,omitempty"`
	Command     string          `json:"command,omitempty"`
	Message     string          `json:"message"`
	Symbols     []string        `json:"symbols,omitempty"`
	ReturnCode  int             `json:"return_code"`
	Data        json.RawMessage `json:"data,omitempty"`
	Seconds     float64         `json:"seconds,omitempty"`
	Prediction  bool            `json:"prediction"`
}

// Batch is what one predictor returns for a splice.
type Batch struct {
	Predictor string
	Records   []Prediction
	Stats     map[string]map[string]int
}

// Result maps predictor name to its records in arrival order.
type Result struct {
	SpliceID    string                    `json:"splice_id"`
	Predictions map[string][]Prediction   `json:"predictions"`
	Stats       map[string]map[string]int `json:"stats,omitempty"`
}

func NewResult(spliceID string) *Result {
	return &Result{
		SpliceID:    spliceID,
		Predictions: make(map[string][]Prediction),
	}
}

// Merge appends a batch. Empty batches leave no bucket behind, so a missing
// bucket means the predictor found nothing comparable.
func (r *Result) Merge(b Batch) {
	if len(b.Records) > 0 {
		r.Predictions[b.Predictor] = append(r.Predictions[b.Predictor], b.Records...)
	}
	for lib, stats := range b.Stats {
		if r.Stats == nil {
			r.Stats = make(map[string]map[string]int)
		}
		r.Stats[lib] = stats
	}
}

// Verdict ANDs every record a predictor emitted for binary. seen is false
// when there is no record to judge by.
func (r *Result) Verdict(predictor, binary string) (ok, seen bool) {
	ok = true
	for _, p := range r.Predictions[predictor] {
		if p.Binary != binary {
			continue
		}
		seen = true
		ok = ok && p.Prediction
	}
	return ok && seen, seen
}

// Count returns the total number of records across predictors.
func (r *Result) Count() int {
	n := 0
	for _, recs := range r.Predictions {
		n += len(recs)
	}
	return n
}
