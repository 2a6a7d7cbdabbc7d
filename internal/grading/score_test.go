package grading

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func outcomes(pattern ...bool) []TestOutcome {
	result := make([]TestOutcome, 0, len(pattern))
	for _, passed := range pattern {
		result = append(result, TestOutcome{Passed: passed})
	}
	return result
}

func TestScoreEmptySequenceIsZero(t *testing.T) {
	result := Score(nil)

	require.Zero(t, result.Scenario1)
	require.Zero(t, result.Scenario2)
	require.Zero(t, result.Scenario3)
	require.Zero(t, result.Final)
}

func TestScoreAllPassedHitsCeiling(t *testing.T) {
	result := Score(outcomes(true, true, true, true, true, true))

	require.Equal(t, 10.0, result.Scenario1)
	require.Equal(t, 10.0, result.Scenario2)
	require.Equal(t, 10.0, result.Scenario3)
	require.Equal(t, 10.0, result.Final)
}

func TestScoreAllFailedIsZero(t *testing.T) {
	result := Score(outcomes(false, false, false))

	require.Zero(t, result.Final)
}

func TestEqualWeightScoreThreeOfFive(t *testing.T) {
	// (3*2 / 5*2) * 10 = 6.00
	score := EqualWeightScore(outcomes(true, false, true, true, false))
	require.Equal(t, 6.0, score)
}

func TestTierWeightsTenCases(t *testing.T) {
	// floor(10*0.3)=3 easy, floor(10*0.4)=4 medium, remainder 3 hard.
	weights := tierWeights(10)

	require.Len(t, weights, 10)
	require.Equal(t, []float64{1, 1, 1}, weights[:3])
	require.Equal(t, []float64{1.5, 1.5, 1.5, 1.5}, weights[3:7])
	require.Equal(t, []float64{2.5, 2.5, 2.5}, weights[7:])
}

func TestTierWeightsHardTierAbsorbsRemainder(t *testing.T) {
	// floor(7*0.3)=2 easy, floor(7*0.4)=2 medium, remainder 3 hard.
	weights := tierWeights(7)

	require.Equal(t, []float64{1, 1, 1.5, 1.5, 2.5, 2.5, 2.5}, weights)
}

func TestTieredScoreOrderSensitive(t *testing.T) {
	early := TieredScore(outcomes(true, true, false, false))
	late := TieredScore(outcomes(false, false, true, true))

	// Passing the hard-tier cases must be worth more than the easy ones.
	require.Greater(t, late, early)
}

func TestProgressiveScoreOrderSensitive(t *testing.T) {
	// Weights 1, 1.5, 2; passing only the last = 2/4.5*10 = 4.44.
	score := ProgressiveScore(outcomes(false, false, true))
	require.Equal(t, 4.44, score)
}

func TestScoreFinalIsMaximumOfScenarios(t *testing.T) {
	cases := [][]TestOutcome{
		outcomes(true, false, true, true, false),
		outcomes(false, false, false, true),
		outcomes(true),
		outcomes(true, true, false, false, false, false, true, true, true, true),
	}

	for _, sequence := range cases {
		result := Score(sequence)
		require.Equal(t, maxMark(result.Scenario1, result.Scenario2, result.Scenario3), result.Final)
	}
}

func TestScoreDeterministicForSameOrder(t *testing.T) {
	sequence := outcomes(true, false, true, false, true, true, false)

	first := Score(sequence)
	second := Score(sequence)
	require.Equal(t, first, second)
}

func TestPenalizedTieredScoreDocksSlowAndHungryCases(t *testing.T) {
	fast := []TestOutcome{
		{Passed: true, TimeSecs: 0.01, MemoryKB: 1024},
		{Passed: true, TimeSecs: 0.02, MemoryKB: 2048},
	}
	slow := []TestOutcome{
		{Passed: true, TimeSecs: 0.5, MemoryKB: 1024},
		{Passed: true, TimeSecs: 0.02, MemoryKB: 40960},
	}

	require.Equal(t, 10.0, PenalizedTieredScore(fast))
	require.Less(t, PenalizedTieredScore(slow), 10.0)
}

func TestPenalizedTieredScorePenaltyFloorsAtZero(t *testing.T) {
	// Single passed case both slow and memory-hungry still scores >= 0.
	sequence := []TestOutcome{{Passed: true, TimeSecs: 1, MemoryKB: 99999}}
	score := PenalizedTieredScore(sequence)

	require.GreaterOrEqual(t, score, 0.0)
}

func TestClampedFinalRespectsCeiling(t *testing.T) {
	result := ScoreResult{Final: 9.5}

	require.Equal(t, 5.0, result.ClampedFinal(5))
	require.Equal(t, 9.5, result.ClampedFinal(10))
	require.Equal(t, 9.5, result.ClampedFinal(0))
}

func TestScoreJudgeResponseUsesPenalizedThirdScenario(t *testing.T) {
	accepted := &RawStatus{ID: 3, Description: "Accepted"}
	raw := RawJudgeResponse{Submissions: []RawVerdict{
		{Status: accepted, Time: 0.01, Memory: 1024},
		{Status: accepted, Time: 0.5, Memory: 1024},
		{Status: &RawStatus{ID: 4, Description: "Wrong Answer"}, Time: 0.01, Memory: 1024},
	}}

	result, err := ScoreJudgeResponse(raw)
	require.NoError(t, err)

	normalized, err := Normalize(raw)
	require.NoError(t, err)
	require.Equal(t, EqualWeightScore(normalized), result.Scenario1)
	require.Equal(t, TieredScore(normalized), result.Scenario2)
	require.Equal(t, PenalizedTieredScore(normalized), result.Scenario3)
}

func TestScoreJudgeResponseRejectsMalformedBatch(t *testing.T) {
	_, err := ScoreJudgeResponse(RawJudgeResponse{})
	require.ErrorIs(t, err, ErrMalformedJudgeResponse)
}
