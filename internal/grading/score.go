package grading

import "math"

// Scale is the common ceiling every scoring policy normalizes to.
const Scale = 10.0

// Weights and thresholds used by the policies. The tier split and the
// resource penalties were settled by the original grading team and are
// part of the documented contract, not tunables.
const (
	equalWeightPoints = 2.0

	easyShare    = 0.3
	mediumShare  = 0.4
	easyWeight   = 1.0
	mediumWeight = 1.5
	hardWeight   = 2.5

	progressiveBase = 1.0
	progressiveStep = 0.5

	timeThresholdSecs = 0.08
	memoryThresholdKB = 20480
	resourcePenalty   = 0.2
)

// ScoreResult holds the three candidate policy scores plus the chosen
// final mark. All three are kept so teachers can audit the policy
// comparison even though only Final is persisted as marks obtained.
type ScoreResult struct {
	Scenario1 float64 `json:"scenario1_marks"`
	Scenario2 float64 `json:"scenario2_marks"`
	Scenario3 float64 `json:"scenario3_marks"`
	Final     float64 `json:"final_marks"`
}

// ClampedFinal returns the final mark capped at the given ceiling.
// Non-positive ceilings leave the mark unchanged.
func (r ScoreResult) ClampedFinal(ceiling float64) float64 {
	if ceiling > 0 && r.Final > ceiling {
		return ceiling
	}
	return r.Final
}

// Score grades a normalized outcome sequence under all three policies
// and picks the maximum as the final mark. The grading policy was never
// settled, so a student is graded under whichever policy is most
// favorable. Deterministic for a given input order; an empty sequence
// scores zero everywhere.
func Score(outcomes []TestOutcome) ScoreResult {
	result := ScoreResult{
		Scenario1: EqualWeightScore(outcomes),
		Scenario2: TieredScore(outcomes),
		Scenario3: ProgressiveScore(outcomes),
	}
	result.Final = maxMark(result.Scenario1, result.Scenario2, result.Scenario3)
	return result
}

// ScoreJudgeResponse grades directly from a raw judge response. The
// third scenario swaps the progressive weights for the tiered weights
// with per-case time/memory penalties, which is only meaningful when
// the raw resource figures are present.
func ScoreJudgeResponse(raw RawJudgeResponse) (ScoreResult, error) {
	outcomes, err := Normalize(raw)
	if err != nil {
		return ScoreResult{}, err
	}

	result := ScoreResult{
		Scenario1: EqualWeightScore(outcomes),
		Scenario2: TieredScore(outcomes),
		Scenario3: PenalizedTieredScore(outcomes),
	}
	result.Final = maxMark(result.Scenario1, result.Scenario2, result.Scenario3)
	return result, nil
}

// EqualWeightScore grades every test case at the same weight.
func EqualWeightScore(outcomes []TestOutcome) float64 {
	total := len(outcomes)
	if total == 0 {
		return 0
	}

	passed := 0
	for _, outcome := range outcomes {
		if outcome.Passed {
			passed++
		}
	}

	obtained := float64(passed) * equalWeightPoints
	possible := float64(total) * equalWeightPoints
	return round2(obtained / possible * Scale)
}

// TieredScore partitions the ordered sequence into easy, medium and
// hard tiers by position and weights each tier differently. Tier sizes
// use floor division; the hard tier absorbs the rounding remainder.
func TieredScore(outcomes []TestOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}

	weights := tierWeights(len(outcomes))
	var obtained, possible float64
	for i, outcome := range outcomes {
		possible += weights[i]
		if outcome.Passed {
			obtained += weights[i]
		}
	}

	return round2(obtained / possible * Scale)
}

// ProgressiveScore weights the i-th case at 1 + 0.5*i, so later cases
// are worth progressively more.
func ProgressiveScore(outcomes []TestOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}

	var obtained, possible float64
	for i, outcome := range outcomes {
		weight := progressiveBase + progressiveStep*float64(i)
		possible += weight
		if outcome.Passed {
			obtained += weight
		}
	}

	return round2(obtained / possible * Scale)
}

// PenalizedTieredScore applies the tiered weights and docks a fixed
// penalty, floored at zero, for each passed case that exceeded the
// time or memory threshold.
func PenalizedTieredScore(outcomes []TestOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}

	weights := tierWeights(len(outcomes))
	var obtained, possible float64
	for i, outcome := range outcomes {
		possible += weights[i]
		if !outcome.Passed {
			continue
		}

		mark := weights[i]
		if outcome.TimeSecs > timeThresholdSecs {
			mark -= resourcePenalty
		}
		if outcome.MemoryKB > memoryThresholdKB {
			mark -= resourcePenalty
		}
		if mark < 0 {
			mark = 0
		}
		obtained += mark
	}

	return round2(obtained / possible * Scale)
}

func tierWeights(total int) []float64 {
	easyCount := int(math.Floor(float64(total) * easyShare))
	mediumCount := int(math.Floor(float64(total) * mediumShare))

	weights := make([]float64, total)
	for i := range weights {
		switch {
		case i < easyCount:
			weights[i] = easyWeight
		case i < easyCount+mediumCount:
			weights[i] = mediumWeight
		default:
			weights[i] = hardWeight
		}
	}

	return weights
}

func maxMark(marks ...float64) float64 {
	best := 0.0
	for _, mark := range marks {
		if mark > best {
			best = mark
		}
	}
	return best
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
