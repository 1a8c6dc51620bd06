// Package main provides the CLI entrypoint for mathrally.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/mathrally/internal/achievement"
	"github.com/verte-zerg/mathrally/internal/config"
	"github.com/verte-zerg/mathrally/internal/game"
	"github.com/verte-zerg/mathrally/internal/generator"
	"github.com/verte-zerg/mathrally/internal/model"
	"github.com/verte-zerg/mathrally/internal/profile"
	"github.com/verte-zerg/mathrally/internal/stats"
	"github.com/verte-zerg/mathrally/internal/statsui"
	"github.com/verte-zerg/mathrally/internal/store"
	"github.com/verte-zerg/mathrally/internal/tui"
)

const (
	defaultWeakTop     = 2
	defaultWeakWindow  = 10
	defaultCurveWindow = 5
	defaultLogLevel    = "info"
	defaultSaveTimeout = "5s"
)

var (
	configPath string
	saveDir    string
	dbPath     string
	logLevel   string
	playerName string

	playQuestions  int
	playFocusWeak  bool
	playWeakTop    int
	playWeakWindow int

	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mathrally",
		Short:         "Arithmetic racing game for the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	pf.StringVar(&saveDir, "save-dir", config.DefaultSaveDir(), "directory holding player profiles")
	pf.StringVar(&dbPath, "db-path", config.DefaultDBPath(), "session archive database")
	pf.StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&playerName, "profile", "", "player name (default: most recently played)")

	rootCmd.Flags().IntVar(&playQuestions, "questions", 0, "questions per stage (0 keeps the difficulty default)")
	rootCmd.Flags().BoolVar(&playFocusWeak, "focus-weak", false, "bias mixed stages toward weak operations")
	rootCmd.Flags().IntVar(&playWeakTop, "weak-top", defaultWeakTop, "number of weak operations to focus on")
	rootCmd.Flags().IntVar(&playWeakWindow, "weak-window", defaultWeakWindow, "number of recent sessions to compute weak operations")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newProfilesCmd())
	rootCmd.AddCommand(newAchievementsCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

// settings is the resolved runtime configuration: flags over env over file.
type settings struct {
	saveTimeout time.Duration
	logger      *slog.Logger
	closeLog    func()
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	env, err := config.LoadEnv()
	if err != nil {
		return settings{}, fmt.Errorf("failed to read environment: %w", err)
	}
	env.Overlay(&fileCfg)

	applyStringConfig(cmd, "save-dir", &saveDir, fileCfg.Storage.SaveDir)
	applyStringConfig(cmd, "db-path", &dbPath, fileCfg.Storage.DBPath)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "profile", &playerName, fileCfg.Game.Profile)
	if cmd.Flags().Lookup("questions") != nil {
		applyIntConfig(cmd, "questions", &playQuestions, fileCfg.Game.Questions)
		applyBoolConfig(cmd, "focus-weak", &playFocusWeak, fileCfg.Game.FocusWeak)
		applyIntConfig(cmd, "weak-top", &playWeakTop, fileCfg.Game.WeakTop)
		applyIntConfig(cmd, "weak-window", &playWeakWindow, fileCfg.Game.WeakWindow)
	}

	timeoutText := defaultSaveTimeout
	if fileCfg.Storage.SaveTimeout != nil {
		timeoutText = *fileCfg.Storage.SaveTimeout
	}
	timeout, err := time.ParseDuration(timeoutText)
	if err != nil || timeout <= 0 {
		return settings{}, fmt.Errorf("invalid save-timeout %q", timeoutText)
	}
	if err := validatePlayConfig(); err != nil {
		return settings{}, err
	}

	logger, closeLog, err := openLogger(config.DefaultLogPath(), logLevel)
	if err != nil {
		return settings{}, err
	}
	return settings{saveTimeout: timeout, logger: logger, closeLog: closeLog}, nil
}

func validatePlayConfig() error {
	if playQuestions < 0 {
		return fmt.Errorf("--questions must be >= 0")
	}
	if playWeakTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if playWeakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	if strings.TrimSpace(saveDir) == "" {
		return fmt.Errorf("--save-dir must not be empty")
	}
	if strings.TrimSpace(dbPath) == "" {
		return fmt.Errorf("--db-path must not be empty")
	}
	return nil
}

// openLogger writes text logs to path; the terminal belongs to the TUI.
func openLogger(path, level string) (*slog.Logger, func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q", level)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl}))
	closeLog := func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}
	return logger, closeLog, nil
}

func openProfiles(cfg settings, catalog *achievement.Catalog) (*profile.Store, error) {
	opts := []profile.Option{profile.WithLogger(cfg.logger)}
	if catalog != nil {
		opts = append(opts, profile.WithCatalog(catalog))
	}
	profiles, err := profile.Open(saveDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open save dir: %w", err)
	}
	return profiles, nil
}

func openArchive() (*store.Store, func(), error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}, nil
}

// resolvePlayer picks the requested player, or the most recent one. Unless
// create is set, a name with no saved profile is an error.
func resolvePlayer(profiles *profile.Store, create bool) (string, error) {
	name := strings.TrimSpace(playerName)
	summaries, err := profiles.Summaries()
	if err != nil {
		summaries = nil
	}
	if name == "" {
		if len(summaries) > 0 {
			return summaries[0].PlayerName, nil
		}
		if !create {
			return "", fmt.Errorf("%w: no saved players yet", profile.ErrNotFound)
		}
		return profile.DefaultPlayerName, nil
	}
	if !create {
		if _, err := profiles.Find(name); err != nil {
			return "", withSuggestion(profiles, name, err)
		}
		return name, nil
	}
	if suggestion, ok := profiles.Suggest(name); ok {
		logErrf("No profile named %q; did you mean %q? Starting a new profile.\n", name, suggestion)
	}
	return name, nil
}

func withSuggestion(profiles *profile.Store, name string, err error) error {
	if errors.Is(err, profile.ErrNotFound) {
		if suggestion, ok := profiles.Suggest(name); ok {
			return fmt.Errorf("%w (did you mean %q?)", err, suggestion)
		}
	}
	return err
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer cfg.closeLog()

	catalog, err := achievement.LoadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load achievements: %w", err)
	}
	profiles, err := openProfiles(cfg, catalog)
	if err != nil {
		return err
	}
	st, closeArchive, err := openArchive()
	if err != nil {
		return err
	}
	defer closeArchive()

	name, err := resolvePlayer(profiles, true)
	if err != nil {
		return err
	}
	p := profiles.LoadOrCreate(name)
	cfg.logger.Info("starting game", "player", p.PlayerName, "profile", p.ID)

	stageLengths := game.DefaultStageLengths()
	if playQuestions > 0 {
		for d := range stageLengths {
			stageLengths[d] = playQuestions
		}
	}
	weakFocus := game.WeakFocus{
		Enabled:    playFocusWeak,
		Top:        playWeakTop,
		Factor:     generator.DefaultWeakFactor,
		MinAnswers: 5,
	}
	if playWeakWindow > 0 {
		profileID := p.ID
		weakFocus.Recent = func(ctx context.Context) ([]model.OperationAggregate, error) {
			return st.RecentOperationAggregates(ctx, profileID, playWeakWindow)
		}
	}

	ctrl := game.New(game.Deps{
		Profiles:     profiles,
		Saver:        profile.NewSaver(profiles, cfg.logger),
		Catalog:      catalog,
		Archive:      st,
		Problems:     generator.New(),
		Logger:       cfg.logger,
		StageLengths: stageLengths,
		SaveTimeout:  cfg.saveTimeout,
		WeakFocus:    weakFocus,
	}, p)

	program := tea.NewProgram(tui.NewModel(ctrl, catalog), tea.WithAltScreen())
	_, runErr := program.Run()
	if err := ctrl.Shutdown(context.Background()); err != nil {
		logErrf("failed to save progress: %v\n", err)
	}
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List saved players",
		Args:  cobra.NoArgs,
		RunE:  runProfilesCmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved player",
		Args:  cobra.ExactArgs(1),
		RunE:  runProfilesDeleteCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset <name>",
		Short: "Clear a saved player's progress, keeping the name",
		Args:  cobra.ExactArgs(1),
		RunE:  runProfilesResetCmd,
	})
	return cmd
}

func runProfilesCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer cfg.closeLog()
	catalog, err := achievement.LoadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load achievements: %w", err)
	}
	profiles, err := openProfiles(cfg, catalog)
	if err != nil {
		return err
	}
	summaries, err := profiles.Summaries()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		logErrln("No saved players yet. Start one with: mathrally --profile <name>")
		return nil
	}
	rows := make([][]string, 0, len(summaries))
	for _, sum := range summaries {
		rows = append(rows, []string{
			sum.PlayerName,
			humanize.Time(sum.LastPlayedAt),
			humanize.Comma(int64(sum.TotalQuestions)),
			fmt.Sprintf("%.1f%%", sum.Accuracy),
			humanize.Comma(int64(sum.TotalPoints)),
			fmt.Sprintf("%d", sum.Unlocked),
		})
	}
	lines := stats.FormatTable(
		[]string{"Player", "Last played", "Questions", "Accuracy", "Points", "Badges"},
		rows,
		map[int]bool{2: true, 3: true, 4: true, 5: true},
	)
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func runProfilesDeleteCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer cfg.closeLog()
	profiles, err := openProfiles(cfg, nil)
	if err != nil {
		return err
	}
	if err := profiles.Delete(args[0]); err != nil {
		return withSuggestion(profiles, args[0], err)
	}
	cfg.logger.Info("profile deleted", "player", args[0])
	logErrf("Deleted %s\n", args[0])
	return nil
}

func runProfilesResetCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer cfg.closeLog()
	catalog, err := achievement.LoadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load achievements: %w", err)
	}
	profiles, err := openProfiles(cfg, catalog)
	if err != nil {
		return err
	}
	return resetProfile(profiles, args[0], cfg.logger)
}

// resetProfile clears the stored progress of the player named name.
func resetProfile(profiles *profile.Store, name string, logger *slog.Logger) error {
	sum, err := profiles.Find(name)
	if err != nil {
		return withSuggestion(profiles, name, err)
	}
	p := profiles.LoadOrCreate(sum.PlayerName)
	profiles.ResetProfile(p)
	if err := profiles.Save(p); err != nil {
		return err
	}
	logger.Info("profile reset", "player", p.PlayerName)
	logErrf("Reset %s\n", p.PlayerName)
	return nil
}

func newAchievementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "achievements",
		Short: "Show the achievement gallery for a player",
		Args:  cobra.NoArgs,
		RunE:  runAchievementsCmd,
	}
}

func runAchievementsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer cfg.closeLog()
	catalog, err := achievement.LoadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load achievements: %w", err)
	}
	profiles, err := openProfiles(cfg, catalog)
	if err != nil {
		return err
	}
	name, err := resolvePlayer(profiles, false)
	if err != nil {
		return err
	}
	p := profiles.LoadOrCreate(name)
	catalog.Restore(p.Achievements.Unlocked, p.Achievements.Progress, p.Achievements.UnlockedAt)

	lines := append([]string{p.PlayerName, ""}, stats.GalleryLines(catalog.ByCategory())...)
	out := strings.Join(lines, "\n") + "\n"
	if _, err := fmt.Fprint(cmd.OutOrStdout(), out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print the report instead of opening the dashboard")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	filter, err := statsFilter()
	if err != nil {
		return err
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer cfg.closeLog()

	catalog, err := achievement.LoadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load achievements: %w", err)
	}
	profiles, err := openProfiles(cfg, catalog)
	if err != nil {
		return err
	}
	st, closeArchive, err := openArchive()
	if err != nil {
		return err
	}
	defer closeArchive()

	name, err := resolvePlayer(profiles, false)
	if err != nil {
		return err
	}
	p := profiles.LoadOrCreate(name)
	catalog.Restore(p.Achievements.Unlocked, p.Achievements.Progress, p.Achievements.UnlockedAt)
	filter.ProfileID = p.ID

	if statsPlain {
		return printStats(cmd, st, p, catalog, filter)
	}
	program := tea.NewProgram(statsui.NewModel(st, p, catalog, filter), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func statsFilter() (model.ArchiveFilter, error) {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return model.ArchiveFilter{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return model.ArchiveFilter{}, fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow <= 0 {
		return model.ArchiveFilter{}, fmt.Errorf("--curve-window must be > 0")
	}
	return model.ArchiveFilter{Since: sinceTime, Last: statsLast, CurveWindow: statsCurveWindow}, nil
}

func printStats(cmd *cobra.Command, st *store.Store, p *profile.Profile, catalog *achievement.Catalog, filter model.ArchiveFilter) error {
	report, err := stats.BuildReport(cmd.Context(), st, filter)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	header := strings.Join(stats.ProfileLines(p, time.Now()), "\n") + "\n\n"
	if _, err := fmt.Fprint(w, header); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	title := func(id string) string {
		if a, ok := catalog.Get(id); ok {
			return a.Title
		}
		return id
	}
	return report.Render(w, stats.TerminalWidth(), title)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# mathrally configuration
# Uncomment a value to enable it. CLI flags and MATHRALLY_* variables override config values.

[game]
# profile = "Ada"         # Player to load (default: most recently played)
# questions = 0           # Questions per stage (0 keeps the difficulty default)
# focus-weak = false      # Bias mixed stages toward weak operations
# weak-top = %d            # Number of weak operations to focus on
# weak-window = %d        # Number of recent sessions to compute weak operations

[storage]
# save-dir = %q
# db-path = %q
# save-timeout = %q      # How long to wait for the final save on exit

[log]
# level = %q          # debug, info, warn or error
`,
		defaultWeakTop,
		defaultWeakWindow,
		config.DefaultSaveDir(),
		config.DefaultDBPath(),
		defaultSaveTimeout,
		defaultLogLevel,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
