// Package game sequences menus, stages, breakdowns and repairs, driving the
// strike, session, achievement and profile components.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/mathrally/internal/achievement"
	"github.com/verte-zerg/mathrally/internal/model"
	"github.com/verte-zerg/mathrally/internal/profile"
	"github.com/verte-zerg/mathrally/internal/session"
	"github.com/verte-zerg/mathrally/internal/stats"
	"github.com/verte-zerg/mathrally/internal/strike"
)

// DefaultSaveTimeout bounds the final save on shutdown.
const DefaultSaveTimeout = 5 * time.Second

// DefaultStageLengths returns the questions per stage for each series.
func DefaultStageLengths() map[model.Difficulty]int {
	return map[model.Difficulty]int{
		model.DifficultyRookie: 25,
		model.DifficultyJunior: 35,
		model.DifficultyPro:    50,
	}
}

// Problems supplies arithmetic and repair story problems.
type Problems interface {
	Next(cfg model.GameConfiguration) model.Problem
	StoryProblem(d model.Difficulty, op model.Operation) model.StoryProblem
}

// Archive stores finished sessions for the parent dashboard.
type Archive interface {
	InsertSession(ctx context.Context, profileID string, rec model.SessionRecord) error
}

type weakBiaser interface {
	SetWeakOperations(ops []model.Operation, factor float64)
}

// WeakFocus biases mixed stages toward the player's weakest operations.
type WeakFocus struct {
	Enabled    bool
	Top        int
	Factor     float64
	MinAnswers int64
	// Recent supplies archived per-operation aggregates; lifetime stats are
	// used when it is nil or fails.
	Recent func(ctx context.Context) ([]model.OperationAggregate, error)
}

// Deps carries every collaborator of the controller. Profiles, Catalog and
// Problems are required.
type Deps struct {
	Profiles     *profile.Store
	Saver        *profile.Saver
	Catalog      *achievement.Catalog
	Archive      Archive
	Problems     Problems
	Logger       *slog.Logger
	Now          func() time.Time
	StageLengths map[model.Difficulty]int
	SaveTimeout  time.Duration
	WeakFocus    WeakFocus
}

type stageResult struct {
	config   model.GameConfiguration
	answered int
	correct  int
	elapsed  time.Duration
	unlocked []achievement.Achievement
}

// Controller is the game state machine. It is not safe for concurrent use.
type Controller struct {
	deps    Deps
	logger  *slog.Logger
	profile *profile.Profile

	lifetime model.Stats
	session  *session.Tracker
	strikes  strike.Tracker

	state  State
	choice model.GameConfiguration
	cfg    model.GameConfiguration
	played model.GameConfiguration

	stageLength   int
	index         int
	current       model.Problem
	askedAt       time.Time
	stageStart    time.Time
	stageAnswered int
	stageCorrect  int
	stageUnlocks  []achievement.Achievement

	resume     int
	continuing bool
	story      model.StoryProblem

	outcome  Outcome
	feedback string
	notice   string
	errMsg   string
	last     stageResult
	missed   int

	sessionUnlocks []string
	cancelUnlock   func()
	loading        bool
	closed         bool
}

// New builds a controller for p, restoring the catalog from its ledger.
func New(deps Deps, p *profile.Profile) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.StageLengths == nil {
		deps.StageLengths = DefaultStageLengths()
	}
	if deps.SaveTimeout <= 0 {
		deps.SaveTimeout = DefaultSaveTimeout
	}
	if deps.Saver == nil {
		deps.Saver = profile.NewSaver(deps.Profiles, deps.Logger)
	}
	c := &Controller{
		deps:     deps,
		logger:   deps.Logger.With("component", "game"),
		profile:  p,
		lifetime: p.Lifetime(),
		session:  session.NewTracker(session.WithClock(deps.Now)),
		state:    StateMenu,
	}
	deps.Catalog.Restore(p.Achievements.Unlocked, p.Achievements.Progress, p.Achievements.UnlockedAt)
	c.cancelUnlock = deps.Catalog.OnUnlock(c.onUnlock)
	c.catchUp()
	c.refreshWeakFocus()
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Profile returns the live profile.
func (c *Controller) Profile() *profile.Profile {
	return c.profile
}

// Snapshot returns the live session HUD values.
func (c *Controller) Snapshot() session.Snapshot {
	return c.session.Snapshot()
}

// Advance feeds one line of input to the current state and returns the new
// state. Failures are logged, reported through View().Error, and return the
// game to the menu.
func (c *Controller) Advance(input string) (next State) {
	c.notice = ""
	c.errMsg = ""
	defer func() {
		if r := recover(); r != nil {
			c.fail(fmt.Errorf("unexpected failure in %s: %v", c.state, r))
			next = c.state
		}
	}()
	if err := c.handle(input); err != nil {
		c.fail(err)
	}
	return c.state
}

func (c *Controller) fail(err error) {
	c.logger.Error("game step failed", "state", c.state.String(), "err", err)
	c.errMsg = err.Error()
	c.state = StateMenu
}

func (c *Controller) handle(input string) error {
	switch c.state {
	case StateMenu:
		c.handleMenu(input)
	case StateModeSelection:
		c.handleModeSelection(input)
	case StateMathSelection:
		c.handleMathSelection(input)
	case StateSeriesSelection:
		return c.handleSeriesSelection(input)
	case StatePlaying:
		return c.handleAnswer(input)
	case StateCarRepair:
		return c.handleRepair(input)
	case StateStageComplete, StateGameOver:
		c.handleAfterStage(input)
	case StateAchievements:
		c.state = StateMenu
	case StateParentDashboard:
		c.handleDashboard(input)
	case StateExit:
	default:
		return fmt.Errorf("unknown state %d", int(c.state))
	}
	return nil
}

func (c *Controller) invalidChoice(max int) {
	c.notice = fmt.Sprintf("Please choose a number from 1 to %d.", max)
}

func (c *Controller) handleMenu(input string) {
	choice, ok := parseChoice(input, 4)
	if !ok {
		c.invalidChoice(4)
		return
	}
	switch choice {
	case 1:
		c.state = StateModeSelection
	case 2:
		c.state = StateAchievements
	case 3:
		c.state = StateParentDashboard
	case 4:
		c.state = StateExit
	}
}

func (c *Controller) handleModeSelection(input string) {
	choice, ok := parseChoice(input, 3)
	if !ok {
		c.invalidChoice(3)
		return
	}
	switch choice {
	case 1:
		c.choice.PlayerMode = model.ModeKid
		c.state = StateMathSelection
	case 2:
		c.choice.PlayerMode = model.ModeParent
		c.state = StateParentDashboard
	case 3:
		c.state = StateMenu
	}
}

func (c *Controller) handleMathSelection(input string) {
	choice, ok := parseChoice(input, 6)
	if !ok {
		c.invalidChoice(6)
		return
	}
	switch {
	case choice <= 4:
		c.choice.Operation = model.AllOperations()[choice-1]
		c.choice.Mixed = false
		c.state = StateSeriesSelection
	case choice == 5:
		c.choice.Operation = model.OpAddition
		c.choice.Mixed = true
		c.state = StateSeriesSelection
	default:
		c.state = StateModeSelection
	}
}

func (c *Controller) handleSeriesSelection(input string) error {
	choice, ok := parseChoice(input, 4)
	if !ok {
		c.invalidChoice(4)
		return nil
	}
	if choice == 4 {
		c.state = StateMathSelection
		return nil
	}
	c.choice.Difficulty = model.AllDifficulties()[choice-1]
	stage := c.choice
	if !stage.Mixed && !stage.Difficulty.Allows(stage.Operation) {
		c.notice = fmt.Sprintf("%s is not part of the %s, racing mixed instead.", stage.Operation.Name(), stage.Difficulty.SeriesName())
		stage.Mixed = true
	}
	return c.startStage(stage)
}

// startStage begins a stage with cfg; the menu selection in c.choice is
// left untouched so a fallback applies to this stage only.
func (c *Controller) startStage(cfg model.GameConfiguration) error {
	length := c.deps.StageLengths[cfg.Difficulty]
	if length <= 0 {
		return fmt.Errorf("no stage length configured for %s", cfg.Difficulty)
	}
	c.cfg = cfg
	c.stageLength = length
	c.index = 0
	c.stageStart = c.deps.Now()
	c.stageAnswered = 0
	c.stageCorrect = 0
	c.stageUnlocks = nil
	c.continuing = false
	c.resume = 0
	c.outcome = OutcomeNone
	c.feedback = ""
	c.strikes.Reset()
	c.played = c.cfg
	c.logger.Info("stage started", "series", string(c.cfg.Difficulty), "operation", string(c.cfg.Operation), "mixed", c.cfg.Mixed, "questions", length)
	c.nextQuestion()
	c.state = StatePlaying
	return nil
}

func (c *Controller) nextQuestion() {
	c.current = c.deps.Problems.Next(c.cfg)
	c.askedAt = c.deps.Now()
}

func (c *Controller) handleAnswer(input string) error {
	elapsed := c.deps.Now().Sub(c.askedAt).Seconds()
	value, err := ParseAnswer(input)
	correct := err == nil && value == c.current.Answer
	switch {
	case err != nil:
		c.outcome = OutcomeInvalid
		c.feedback = "That's not a number! Type digits only."
	case correct:
		c.outcome = OutcomeCorrect
		c.feedback = "Correct! Full throttle!"
	default:
		c.outcome = OutcomeWrong
		c.feedback = fmt.Sprintf("Not quite: %d %s %d = %d", c.current.Left, c.current.Operation.Symbol(), c.current.Right, c.current.Answer)
	}

	c.session.RecordOperationAnswer(c.current.Operation, correct, elapsed)
	c.stageAnswered++
	if correct {
		c.stageCorrect++
	}

	if !correct {
		res := c.strikes.Add()
		if res.Breakdown {
			c.evaluate(false)
			c.resume = c.index + 1
			c.story = c.deps.Problems.StoryProblem(c.cfg.Difficulty, c.current.Operation)
			c.logger.Info("car breakdown", "question", c.index+1, "strikes", res.Count)
			c.state = StateCarRepair
			return nil
		}
	}
	c.evaluate(false)

	c.index++
	if c.index >= c.stageLength {
		c.completeStage()
		return nil
	}
	c.nextQuestion()
	return nil
}

func (c *Controller) handleRepair(input string) error {
	value, err := ParseAnswer(input)
	if err != nil || value != c.story.Answer {
		c.missed = c.story.Answer
		c.outcome = OutcomeWrong
		if err != nil {
			c.outcome = OutcomeInvalid
		}
		c.logger.Info("repair failed", "question", c.resume)
		c.save()
		c.state = StateGameOver
		return nil
	}
	c.strikes.Reset()
	c.continuing = true
	c.outcome = OutcomeCorrect
	c.feedback = "Repair complete! Back on the track!"
	c.index = c.resume
	if c.index >= c.stageLength {
		c.completeStage()
		return nil
	}
	c.nextQuestion()
	c.state = StatePlaying
	return nil
}

func (c *Controller) completeStage() {
	c.session.RecordStageCompletion(c.cfg.Difficulty)
	c.evaluate(true)

	elapsed := c.deps.Now().Sub(c.stageStart)
	accuracy := model.AccuracyPercentage(c.stageCorrect, c.stageAnswered)
	c.deps.Profiles.UpdateRallyProgress(c.profile, c.cfg.Difficulty, accuracy, elapsed)
	c.deps.Profiles.Touch(c.profile)
	c.refreshWeakFocus()
	c.save()

	c.last = stageResult{
		config:   c.cfg,
		answered: c.stageAnswered,
		correct:  c.stageCorrect,
		elapsed:  elapsed,
		unlocked: c.stageUnlocks,
	}
	c.logger.Info("stage complete", "series", string(c.cfg.Difficulty), "accuracy", accuracy, "elapsed", elapsed.Round(time.Millisecond))
	c.state = StateStageComplete
}

func (c *Controller) handleAfterStage(input string) {
	choice, ok := parseChoice(input, 2)
	if !ok {
		c.invalidChoice(2)
		return
	}
	if choice == 1 {
		c.state = StateSeriesSelection
		return
	}
	c.state = StateMenu
}

// handleDashboard applies parent settings commands; any other input returns
// to the menu.
func (c *Controller) handleDashboard(input string) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "a":
		settings := c.profile.Settings
		settings.AutoSave = !settings.AutoSave
		c.UpdateSettings(settings)
		c.notice = fmt.Sprintf("Auto-save %s.", onOff(settings.AutoSave))
	case "n":
		settings := c.profile.Settings
		settings.ShowAchievementNotifications = !settings.ShowAchievementNotifications
		c.UpdateSettings(settings)
		c.notice = fmt.Sprintf("Achievement notifications %s.", onOff(settings.ShowAchievementNotifications))
	case "reset":
		c.ResetProgress()
		c.notice = "All progress was reset."
	default:
		c.state = StateMenu
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// UpdateSettings stores new player settings and saves them.
func (c *Controller) UpdateSettings(settings profile.Settings) {
	c.deps.Profiles.UpdateSettings(c.profile, settings)
	c.deps.Saver.Save(c.profile)
}

// ResetProgress clears the profile, the achievement state and the running
// session, keeping the player's name and creation date.
func (c *Controller) ResetProgress() {
	c.deps.Profiles.ResetProfile(c.profile)
	c.deps.Catalog.Reset()
	c.session.Reset()
	c.strikes.Reset()
	c.lifetime = c.profile.Lifetime()
	c.sessionUnlocks = nil
	c.played = model.GameConfiguration{}
	c.refreshWeakFocus()
	c.deps.Saver.Save(c.profile)
	c.logger.Info("profile reset", "profile", c.profile.ID)
}

// catchUp runs the full pass at load. Unlocks earned from lifetime data go to
// the ledger but are neither credited to this session nor announced.
func (c *Controller) catchUp() {
	c.loading = true
	c.evaluate(true)
	c.loading = false
	c.deps.Catalog.DrainRecentUnlocks()
}

// evaluate rechecks achievements against the session merged with lifetime
// stats and mirrors progress into the ledger.
func (c *Controller) evaluate(full bool) {
	sessionStats := c.session.Stats()
	combined := session.Combine(sessionStats, c.lifetime)
	unlocked := c.deps.Catalog.Check(sessionStats, combined, c.cfg, full)
	for _, a := range c.deps.Catalog.All() {
		if a.Unlocked || a.Progress <= c.profile.Achievements.Progress[a.ID] {
			continue
		}
		c.deps.Profiles.UpdateAchievementLedger(c.profile, a.ID, false, a.Progress)
	}
	if len(unlocked) > 0 {
		c.save()
	}
}

func (c *Controller) onUnlock(a achievement.Achievement) {
	c.deps.Profiles.UpdateAchievementLedger(c.profile, a.ID, true, a.Target)
	if c.loading {
		c.logger.Info("achievement caught up at load", "id", a.ID)
		return
	}
	c.sessionUnlocks = append(c.sessionUnlocks, a.ID)
	if c.state == StatePlaying || c.state == StateCarRepair {
		c.stageUnlocks = append(c.stageUnlocks, a)
	}
	c.logger.Info("achievement unlocked", "id", a.ID, "points", a.Points)
}

func (c *Controller) refreshWeakFocus() {
	wf := c.deps.WeakFocus
	biaser, ok := c.deps.Problems.(weakBiaser)
	if !wf.Enabled || !ok {
		return
	}
	current := c.session.Stats()
	var aggs []model.OperationAggregate
	if wf.Recent != nil {
		recent, err := wf.Recent(context.Background())
		if err != nil {
			c.logger.Warn("recent operation stats unavailable", "err", err)
		} else {
			aggs = stats.MergeAggregates(recent, stats.AggregatesFromStats(current.ByOperation))
		}
	}
	if aggs == nil {
		combined := session.Combine(current, c.lifetime)
		aggs = stats.AggregatesFromStats(combined.ByOperation)
	}
	weak := stats.SelectWeakOperations(aggs, wf.Top, wf.MinAnswers)
	biaser.SetWeakOperations(weak, wf.Factor)
	if len(weak) > 0 {
		c.logger.Debug("weak operation focus", "operations", weak)
	}
}

// save starts a background save unless the player turned auto-save off.
func (c *Controller) save() {
	if !c.profile.Settings.AutoSave {
		return
	}
	c.deps.Saver.Save(c.profile)
}

// Shutdown folds the session into the profile, archives it, and waits for
// the final save up to the configured timeout.
func (c *Controller) Shutdown(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.state = StateExit
	if c.cancelUnlock != nil {
		c.cancelUnlock()
	}

	ctx, cancel := context.WithTimeout(ctx, c.deps.SaveTimeout)
	defer cancel()

	if c.profile.ID == "" {
		c.deps.Profiles.AssignID(c.profile)
	}
	var rec *model.SessionRecord
	if c.session.Stats().TotalQuestions > 0 {
		r := c.session.Record(c.played, c.deps.Now(), c.sessionUnlocks)
		c.deps.Profiles.RecordSession(c.profile, r)
		rec = &r
	}
	c.deps.Profiles.Touch(c.profile)
	pending := c.deps.Saver.Save(c.profile)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := pending.Wait(gctx); err != nil {
			return fmt.Errorf("final profile save: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return c.deps.Saver.Flush(gctx)
	})
	if rec != nil && c.deps.Archive != nil {
		profileID := c.profile.ID
		g.Go(func() error {
			if err := c.deps.Archive.InsertSession(gctx, profileID, *rec); err != nil {
				return fmt.Errorf("archive session: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Error("shutdown incomplete", "err", err)
		return err
	}
	c.logger.Info("session saved", "profile", c.profile.ID, "recorded", rec != nil)
	return nil
}
