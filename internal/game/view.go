package game

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/mathrally/internal/achievement"
	"github.com/verte-zerg/mathrally/internal/model"
	"github.com/verte-zerg/mathrally/internal/session"
	"github.com/verte-zerg/mathrally/internal/stats"
	"github.com/verte-zerg/mathrally/internal/strike"
)

// View is everything the presentation layer needs to draw the current state.
type View struct {
	State   State
	Title   string
	Lines   []string
	Options []string
	Prompt  string

	Question      string
	QuestionIndex int
	StageLength   int
	Continuing    bool
	Strikes       int
	StrikeLevel   strike.Level
	Story         string
	StoryContext  string
	Outcome       Outcome
	Feedback      string
	HUD           session.Snapshot
	NewUnlocks    []achievement.Achievement

	Notice string
	Error  string
}

// View describes the current state.
func (c *Controller) View() View {
	v := View{
		State:      c.state,
		Notice:     c.notice,
		Error:      c.errMsg,
		HUD:        c.session.Snapshot(),
		NewUnlocks: c.deps.Catalog.RecentUnlocks(),
	}
	switch c.state {
	case StateMenu:
		v.Title = "Turbo Math Rally"
		v.Lines = []string{
			fmt.Sprintf("Welcome, %s!", c.profile.PlayerName),
			fmt.Sprintf("Achievement points: %s", humanize.Comma(int64(c.profile.Achievements.TotalPoints))),
		}
		v.Options = []string{"Start Racing", "Achievements", "Parent Dashboard", "Exit"}
	case StateModeSelection:
		v.Title = "Who is driving?"
		v.Options = []string{"Kid Mode", "Parent Mode", "Back"}
	case StateMathSelection:
		v.Title = "Choose your fuel"
		for _, op := range model.AllOperations() {
			v.Options = append(v.Options, op.Name())
		}
		v.Options = append(v.Options, "Mixed", "Back")
	case StateSeriesSelection:
		v.Title = "Choose your series"
		for _, d := range model.AllDifficulties() {
			v.Options = append(v.Options, fmt.Sprintf("%s (%s)", d.SeriesName(), d.AgeRange()))
		}
		v.Options = append(v.Options, "Back")
	case StatePlaying:
		c.playingView(&v)
	case StateCarRepair:
		v.Title = "Car Repair"
		v.Lines = []string{strike.Breakdown.Message(), strike.Breakdown.Description()}
		v.Story = c.story.Text
		v.StoryContext = c.story.Context
		v.Strikes = c.strikes.Count()
		v.StrikeLevel = c.strikes.Level()
		v.Outcome = c.outcome
		v.Feedback = c.feedback
		v.Prompt = "Repair answer:"
	case StateStageComplete:
		v.Title = "Stage Complete!"
		v.Lines = c.stageLines()
		v.Options = []string{"Race Again", "Main Menu"}
	case StateGameOver:
		v.Title = "Game Over"
		v.Lines = []string{
			"The repair didn't hold and your car is out of the race.",
			fmt.Sprintf("The repair answer was %d.", c.missed),
		}
		v.Outcome = c.outcome
		v.Options = []string{"Race Again", "Main Menu"}
	case StateAchievements:
		v.Title = fmt.Sprintf("Achievements (%.0f%% complete, %d points)", c.deps.Catalog.CompletionPercentage(), c.deps.Catalog.TotalPoints())
		v.Lines = stats.GalleryLines(c.deps.Catalog.ByCategory())
		v.Prompt = "Press Enter to return"
	case StateParentDashboard:
		v.Title = "Parent Dashboard"
		v.Lines = append(stats.ProfileLines(c.profile, c.deps.Now()), c.sessionLines()...)
		v.Lines = append(v.Lines, "",
			fmt.Sprintf("Auto-save: %s", onOff(c.profile.Settings.AutoSave)),
			fmt.Sprintf("Achievement notifications: %s", onOff(c.profile.Settings.ShowAchievementNotifications)),
		)
		v.Prompt = "a: toggle auto-save · n: toggle notifications · reset: clear all progress · Enter: back"
	case StateExit:
		v.Title = "See you at the next rally!"
	}
	return v
}

func (c *Controller) playingView(v *View) {
	v.Title = c.cfg.Label()
	v.Question = c.current.Question()
	v.QuestionIndex = c.index + 1
	v.StageLength = c.stageLength
	v.Continuing = c.continuing
	v.Strikes = c.strikes.Count()
	v.StrikeLevel = c.strikes.Level()
	v.Outcome = c.outcome
	v.Feedback = c.feedback
	if level := c.strikes.Level(); level != strike.Healthy {
		v.Lines = []string{level.Message(), level.Description()}
	}
	v.Prompt = "Answer:"
}

func (c *Controller) stageLines() []string {
	r := c.last
	lines := []string{
		r.config.Label(),
		fmt.Sprintf("Correct: %d/%d (%.1f%%)", r.correct, r.answered, model.AccuracyPercentage(r.correct, r.answered)),
		fmt.Sprintf("Time: %s", r.elapsed.Round(time.Second)),
	}
	for _, a := range r.unlocked {
		lines = append(lines, fmt.Sprintf("Unlocked %s %s (%s, %d pts)", a.Icon, a.Title, a.Rarity.DisplayName(), a.Points))
	}
	return lines
}

func (c *Controller) sessionLines() []string {
	snap := c.session.Snapshot()
	st := c.session.Stats()
	if st.TotalQuestions == 0 {
		return nil
	}
	return []string{
		"",
		"This session",
		fmt.Sprintf("Questions: %d, accuracy %.1f%%", st.TotalQuestions, snap.Accuracy),
		fmt.Sprintf("Best streak: %d, stages: %d, comebacks: %d", snap.BestStreak, snap.StagesCompleted, snap.Comebacks),
	}
}
