package game

import (
	"math"
	"unicode/utf8"
)

// DistributionKind tells who was credited for a solve.
type DistributionKind string

const (
	KindSelfRescue DistributionKind = "SELF_RESCUE"
	KindSteal      DistributionKind = "STEAL"
)

const baseMessageValue = 10

// Percentages of the message value consumed by hints. Index is the hint level.
var hintCostPercent = [MaxHintLevel + 1]int{0, 10, 20, 60}

// accuracyPenaltyPercent is taken off accepted guesses that were not exact.
const accuracyPenaltyPercent = 10

// Fever mode.
const (
	FeverThreshold  = 5
	FeverSolves     = 3
	feverMultiplier = 2.0
)

// Distribution is the split of a solved message's points.
//
// Each share is floored on its own, so a steal can award up to one point
// less than the effective value. That loss is kept as is.
type Distribution struct {
	TotalPoints  int              `json:"totalPoints"`
	WinnerPoints int              `json:"winnerPoints"`
	AuthorPoints int              `json:"authorPoints"`
	Kind         DistributionKind `json:"kind"`
}

// MessageValue is the base worth of a message: 10 plus its character count.
func MessageValue(content string) int {
	return baseMessageValue + utf8.RuneCountInString(content)
}

// HintAdjustedValue applies hint costs and the accuracy penalty to a
// message value. Never negative.
func HintAdjustedValue(value, hintLevel int, score float64) int {
	hintLevel = min(max(hintLevel, 0), MaxHintLevel)
	pct := 100 - hintCostPercent[hintLevel]
	if score < 1.0 {
		pct -= accuracyPenaltyPercent
	}
	if pct <= 0 {
		return 0
	}
	return value * pct / 100
}

// StreakMultiplier maps a player's consecutive correct guesses, counting the
// current one, to a score multiplier.
func StreakMultiplier(consecutive int) float64 {
	switch {
	case consecutive >= 4:
		return 2.0
	case consecutive == 3:
		return 1.5
	case consecutive == 2:
		return 1.2
	default:
		return 1.0
	}
}

// PointDistribution splits wordValue*multiplier between guesser and author.
func PointDistribution(wordValue int, guesserID, authorID string, multiplier float64) Distribution {
	// Work in hundredths so 1.2 and 1.5 multiply exactly.
	effective := wordValue * int(math.Round(multiplier*100))

	if guesserID == authorID {
		winner := effective * 50 / 10000
		return Distribution{
			TotalPoints:  winner,
			WinnerPoints: winner,
			AuthorPoints: 0,
			Kind:         KindSelfRescue,
		}
	}

	winner := effective * 75 / 10000
	author := effective * 25 / 10000
	return Distribution{
		TotalPoints:  winner + author,
		WinnerPoints: winner,
		AuthorPoints: author,
		Kind:         KindSteal,
	}
}

// TeamState is the team-wide bonus counters stored on the game.
type TeamState struct {
	ConsecutiveCorrect int `json:"consecutiveCorrect"`
	FeverRemaining     int `json:"feverRemaining"`
}

// AfterCorrect returns the team state following a correct solve and whether
// fever boosted that solve.
func (t TeamState) AfterCorrect() (TeamState, bool) {
	fever := t.FeverRemaining > 0
	if fever {
		t.FeverRemaining--
	}
	t.ConsecutiveCorrect++
	if t.ConsecutiveCorrect == FeverThreshold && t.FeverRemaining == 0 {
		t.FeverRemaining = FeverSolves
	}
	return t, fever
}

// AfterWrong zeroes the team bonus.
func (t TeamState) AfterWrong() TeamState {
	return TeamState{}
}

// SolveInput is everything needed to value a solve.
type SolveInput struct {
	Content            string
	AuthorID           string
	HintLevel          int
	GuesserID          string
	GuesserConsecutive int // before this solve
	Team               TeamState
	Guess              string
}

// SolvePrediction is the outcome of a guess. Clients call PredictSolve for
// instant feedback; the engine calls it to decide what to persist.
type SolvePrediction struct {
	Similarity         float64      `json:"similarity"`
	Correct            bool         `json:"correct"`
	BaseValue          int          `json:"baseValue"`
	Multiplier         float64      `json:"multiplier"`
	FeverApplied       bool         `json:"feverApplied"`
	Distribution       Distribution `json:"distribution"`
	GuesserConsecutive int          `json:"guesserConsecutive"`
	Team               TeamState    `json:"team"`
}

// PredictSolve values a guess without touching any state.
func PredictSolve(in SolveInput) SolvePrediction {
	score := Similarity(in.Guess, in.Content)
	p := SolvePrediction{Similarity: score}

	if !IsMatch(score) {
		p.GuesserConsecutive = 0
		p.Team = in.Team.AfterWrong()
		return p
	}

	p.Correct = true
	p.GuesserConsecutive = in.GuesserConsecutive + 1
	p.BaseValue = HintAdjustedValue(MessageValue(in.Content), in.HintLevel, score)
	p.Multiplier = StreakMultiplier(p.GuesserConsecutive)
	p.Team, p.FeverApplied = in.Team.AfterCorrect()
	if p.FeverApplied {
		p.Multiplier *= feverMultiplier
	}
	p.Distribution = PointDistribution(p.BaseValue, in.GuesserID, in.AuthorID, p.Multiplier)
	return p
}
