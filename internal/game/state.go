package game

// State is a screen of the game flow.
type State int

const (
	StateMenu State = iota
	StateModeSelection
	StateMathSelection
	StateSeriesSelection
	StatePlaying
	StateCarRepair
	StateStageComplete
	StateGameOver
	StateAchievements
	StateParentDashboard
	StateExit
)

func (s State) String() string {
	switch s {
	case StateMenu:
		return "menu"
	case StateModeSelection:
		return "mode-selection"
	case StateMathSelection:
		return "math-selection"
	case StateSeriesSelection:
		return "series-selection"
	case StatePlaying:
		return "playing"
	case StateCarRepair:
		return "car-repair"
	case StateStageComplete:
		return "stage-complete"
	case StateGameOver:
		return "game-over"
	case StateAchievements:
		return "achievements"
	case StateParentDashboard:
		return "parent-dashboard"
	case StateExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Outcome classifies the last submitted answer.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCorrect
	OutcomeWrong
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCorrect:
		return "correct"
	case OutcomeWrong:
		return "wrong"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "none"
	}
}
