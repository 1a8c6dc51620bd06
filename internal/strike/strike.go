// Package strike tracks wrong answers toward a car breakdown.
package strike

// Threshold is the strike count at which the car breaks down.
const Threshold = 3

// Level is the escalating car condition.
type Level int

const (
	Healthy Level = iota
	Light
	Moderate
	Breakdown
)

// LevelFor maps a strike count to its level.
func LevelFor(count int) Level {
	switch {
	case count <= 0:
		return Healthy
	case count == 1:
		return Light
	case count < Threshold:
		return Moderate
	default:
		return Breakdown
	}
}

func (l Level) String() string {
	switch l {
	case Healthy:
		return "healthy"
	case Light:
		return "light"
	case Moderate:
		return "moderate"
	case Breakdown:
		return "breakdown"
	default:
		return "unknown"
	}
}

// Message returns the warning shown when the level is reached.
func (l Level) Message() string {
	switch l {
	case Light:
		return "Strike 1: Your engine is making strange noises..."
	case Moderate:
		return "Strike 2: Your car is smoking and slowing down!"
	case Breakdown:
		return "BREAKDOWN! Your car has stopped working!"
	default:
		return ""
	}
}

// Description returns the follow-up hint for the level.
func (l Level) Description() string {
	switch l {
	case Light:
		return "One more wrong answer and you'll need to check under the hood!"
	case Moderate:
		return "Danger! One more mistake and your car will break down completely!"
	case Breakdown:
		return "You must solve a repair story problem to get back on track!"
	default:
		return ""
	}
}

// Status returns the compact car condition for the HUD.
func (l Level) Status() string {
	switch l {
	case Healthy:
		return "Perfect condition"
	case Light:
		return "Minor issues"
	case Moderate:
		return "Smoking and slow"
	default:
		return "Broken down"
	}
}

// Result describes the tracker state after a strike.
type Result struct {
	Count     int
	Level     Level
	Breakdown bool
}

// Tracker counts strikes for the active stage. The zero value is healthy.
type Tracker struct {
	count int
}

// Add records a strike.
func (t *Tracker) Add() Result {
	t.count++
	return t.result()
}

// Reset returns the car to healthy after a repair or a new stage.
func (t *Tracker) Reset() {
	t.count = 0
}

// Count returns the current strike count.
func (t *Tracker) Count() int {
	return t.count
}

// Level returns the current level.
func (t *Tracker) Level() Level {
	return LevelFor(t.count)
}

// Broken reports whether the car is broken down.
func (t *Tracker) Broken() bool {
	return t.count >= Threshold
}

func (t *Tracker) result() Result {
	return Result{
		Count:     t.count,
		Level:     LevelFor(t.count),
		Breakdown: t.count >= Threshold,
	}
}
