package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// acceptedStatusID is the judge's status code for an accepted run.
const acceptedStatusID = 3

// ErrMalformedJudgeResponse indicates the judge payload cannot be scored.
// Normalization is all-or-nothing: one malformed verdict invalidates the
// whole batch, since partial scoring against bad data is unsafe.
var ErrMalformedJudgeResponse = errors.New("malformed judge response")

// TestOutcome is the normalized execution result of a single test case.
// Produced once per submission by Normalize and never mutated afterwards.
type TestOutcome struct {
	Passed   bool    `json:"passed"`
	TimeSecs float64 `json:"time_secs,omitempty"`
	MemoryKB int64   `json:"memory_kb,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// RawJudgeResponse mirrors the batch payload returned by the external
// execution judge. Verdict order matches test-case order.
type RawJudgeResponse struct {
	Submissions []RawVerdict `json:"submissions"`
}

// RawVerdict is one per-test-case verdict as reported by the judge.
type RawVerdict struct {
	Status *RawStatus `json:"status"`
	Time   Seconds    `json:"time"`
	Memory int64      `json:"memory"`
}

// RawStatus carries the judge's status code for a verdict.
type RawStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Seconds is an elapsed-time figure. The judge serialises it as a JSON
// string in batch responses ("0.002") while other tooling sends plain
// numbers, so both encodings are accepted.
type Seconds float64

// UnmarshalJSON implements json.Unmarshaler.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*s = 0
		return nil
	}

	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			*s = 0
			return nil
		}
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("invalid time figure %q: %w", text, err)
		}
		*s = Seconds(value)
		return nil
	}

	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*s = Seconds(value)
	return nil
}

// Normalize converts a raw judge response into the uniform outcome
// sequence the scoring engine consumes. A verdict passes iff its status
// code is the judge's "accepted" code; output comparison already
// happened on the judge side.
func Normalize(raw RawJudgeResponse) ([]TestOutcome, error) {
	if len(raw.Submissions) == 0 {
		return nil, fmt.Errorf("%w: missing submissions", ErrMalformedJudgeResponse)
	}

	outcomes := make([]TestOutcome, 0, len(raw.Submissions))
	for i, verdict := range raw.Submissions {
		if verdict.Status == nil {
			return nil, fmt.Errorf("%w: verdict %d has no status", ErrMalformedJudgeResponse, i)
		}

		outcome := TestOutcome{
			Passed:   verdict.Status.ID == acceptedStatusID,
			TimeSecs: float64(verdict.Time),
			MemoryKB: verdict.Memory,
		}
		if !outcome.Passed {
			outcome.Message = verdict.Status.Description
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}
