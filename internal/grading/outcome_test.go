package grading

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeMapsAcceptedVerdicts(t *testing.T) {
	raw := RawJudgeResponse{Submissions: []RawVerdict{
		{Status: &RawStatus{ID: 3, Description: "Accepted"}, Time: 0.002, Memory: 1024},
		{Status: &RawStatus{ID: 4, Description: "Wrong Answer"}, Time: 0.01, Memory: 2048},
		{Status: &RawStatus{ID: 5, Description: "Time Limit Exceeded"}, Time: 2, Memory: 4096},
	}}

	outcomes, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	require.True(t, outcomes[0].Passed)
	require.Empty(t, outcomes[0].Message)
	require.Equal(t, 0.002, outcomes[0].TimeSecs)
	require.Equal(t, int64(1024), outcomes[0].MemoryKB)

	require.False(t, outcomes[1].Passed)
	require.Equal(t, "Wrong Answer", outcomes[1].Message)
	require.False(t, outcomes[2].Passed)
}

func TestNormalizeRejectsEmptyBatch(t *testing.T) {
	_, err := Normalize(RawJudgeResponse{})
	require.ErrorIs(t, err, ErrMalformedJudgeResponse)

	_, err = Normalize(RawJudgeResponse{Submissions: []RawVerdict{}})
	require.ErrorIs(t, err, ErrMalformedJudgeResponse)
}

func TestNormalizeRejectsVerdictWithoutStatus(t *testing.T) {
	raw := RawJudgeResponse{Submissions: []RawVerdict{
		{Status: &RawStatus{ID: 3}},
		{Status: nil},
	}}

	_, err := Normalize(raw)
	require.ErrorIs(t, err, ErrMalformedJudgeResponse)
}

func TestSecondsAcceptsStringAndNumberEncodings(t *testing.T) {
	var verdict RawVerdict
	require.NoError(t, json.Unmarshal([]byte(`{"status":{"id":3},"time":"0.042","memory":512}`), &verdict))
	require.Equal(t, Seconds(0.042), verdict.Time)

	require.NoError(t, json.Unmarshal([]byte(`{"status":{"id":3},"time":0.08,"memory":512}`), &verdict))
	require.Equal(t, Seconds(0.08), verdict.Time)

	require.NoError(t, json.Unmarshal([]byte(`{"status":{"id":3},"time":null}`), &verdict))
	require.Equal(t, Seconds(0), verdict.Time)

	require.NoError(t, json.Unmarshal([]byte(`{"status":{"id":3},"time":""}`), &verdict))
	require.Equal(t, Seconds(0), verdict.Time)

	require.Error(t, json.Unmarshal([]byte(`{"status":{"id":3},"time":"fast"}`), &verdict))
}
