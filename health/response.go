package health

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// OverallResponse is a snapshot of one liveness or readiness evaluation.
// It is built fresh for every call and never mutated afterwards.
type OverallResponse struct {
	// Status is the aggregated status.
	Status Status

	// Timestamp is when the snapshot was taken, in UTC.
	Timestamp time.Time

	// Environment is the deployment label of the registry.
	Environment string

	// Checks maps check names to their results.
	Checks map[string]Result
}

// Names returns the check names in sorted order.
func (o OverallResponse) Names() []string {
	names := make([]string, 0, len(o.Checks))
	for name := range o.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HTTPStatus returns the HTTP code for the aggregated status.
func (o OverallResponse) HTTPStatus() int {
	return HTTPStatus(o.Status)
}

type overallJSON struct {
	Status      Status            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Environment string            `json:"environment"`
	Checks      map[string]Result `json:"checks"`
}

// MarshalJSON encodes the response in the wire format served by the HTTP
// adapters.
func (o OverallResponse) MarshalJSON() ([]byte, error) {
	checks := o.Checks
	if checks == nil {
		checks = map[string]Result{}
	}
	return json.Marshal(overallJSON{
		Status:      o.Status,
		Timestamp:   o.Timestamp.UTC().Format(time.RFC3339Nano),
		Environment: o.Environment,
		Checks:      checks,
	})
}

// UnmarshalJSON decodes the wire format.
func (o *OverallResponse) UnmarshalJSON(data []byte) error {
	var raw overallJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		return fmt.Errorf("health: invalid timestamp: %w", err)
	}
	*o = OverallResponse{
		Status:      raw.Status,
		Timestamp:   ts.UTC(),
		Environment: raw.Environment,
		Checks:      raw.Checks,
	}
	if o.Checks == nil {
		o.Checks = map[string]Result{}
	}
	return nil
}

type resultJSON struct {
	Status         Status         `json:"status"`
	ResponseTimeMS *float64       `json:"response_time_ms,omitempty"`
	Error          string         `json:"error,omitempty"`
	Meta           map[string]any `json:"meta,omitempty"`
}

// MarshalJSON encodes the result, omitting absent optional fields.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Status: r.Status, Meta: r.Meta}
	if ms, ok := r.ResponseTimeMS(); ok {
		out.ResponseTimeMS = &ms
	}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a result. The error, if any, is restored as an
// opaque error carrying the original message.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Result{Status: raw.Status, Meta: raw.Meta}
	if raw.ResponseTimeMS != nil {
		d := time.Duration(*raw.ResponseTimeMS * float64(time.Millisecond))
		r.ResponseTime = &d
	}
	if raw.Error != "" {
		r.Error = errors.New(raw.Error)
	}
	return nil
}
