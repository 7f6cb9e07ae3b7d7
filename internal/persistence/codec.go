package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/petrijr/stepgraph/pkg/api"
)

// recordRow is the storage shape of an ExecutionRecord shared by every
// backend. Result is kept as raw JSON so arbitrary step results survive the
// round trip as plain JSON values (maps, slices, float64, string, bool).
type recordRow struct {
	StepID     string          `json:"step_id" bson:"step_id"`
	StepName   string          `json:"step_name" bson:"step_name"`
	Status     string          `json:"status" bson:"status"`
	Result     json.RawMessage `json:"result,omitempty" bson:"-"`
	ResultJSON string          `json:"-" bson:"result"`
	Error      string          `json:"error,omitempty" bson:"error"`
	AtNanos    int64           `json:"at" bson:"at"`
	DurationNs int64           `json:"duration_ns" bson:"duration_ns"`
}

// EncodeResult serializes a step result as JSON. Values that cannot be
// represented in JSON are stored as their fmt.Sprint form.
func EncodeResult(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return json.Marshal(fmt.Sprint(v))
	}
	return data, nil
}

// DecodeResult is the inverse of EncodeResult.
func DecodeResult(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return v, nil
}

func toRow(rec api.ExecutionRecord) (recordRow, error) {
	result, err := EncodeResult(rec.Result)
	if err != nil {
		return recordRow{}, err
	}
	return recordRow{
		StepID:     rec.StepID,
		StepName:   rec.StepName,
		Status:     string(rec.Status),
		Result:     result,
		ResultJSON: string(result),
		Error:      rec.Error,
		AtNanos:    rec.Timestamp.UnixNano(),
		DurationNs: rec.Duration.Nanoseconds(),
	}, nil
}

func fromRow(row recordRow) (api.ExecutionRecord, error) {
	raw := row.Result
	if len(raw) == 0 && row.ResultJSON != "" {
		raw = json.RawMessage(row.ResultJSON)
	}
	result, err := DecodeResult(raw)
	if err != nil {
		return api.ExecutionRecord{}, err
	}
	return api.ExecutionRecord{
		StepID:    row.StepID,
		StepName:  row.StepName,
		Status:    api.RecordStatus(row.Status),
		Result:    result,
		Error:     row.Error,
		Timestamp: time.Unix(0, row.AtNanos),
		Duration:  time.Duration(row.DurationNs),
	}, nil
}

func encodeRecord(rec api.ExecutionRecord) ([]byte, error) {
	row, err := toRow(rec)
	if err != nil {
		return nil, err
	}
	return json.Marshal(row)
}

func decodeRecord(data []byte) (api.ExecutionRecord, error) {
	var row recordRow
	if err := json.Unmarshal(data, &row); err != nil {
		return api.ExecutionRecord{}, fmt.Errorf("decode record: %w", err)
	}
	return fromRow(row)
}
