// enginectl drives recomputations and board rebuilds from the command
// line. Long runs can be detached into the background with a pid file and
// a log file.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"grappling-rank/internal/config"
	"grappling-rank/internal/database"
	"grappling-rank/internal/domain"
	"grappling-rank/internal/logger"
	"grappling-rank/internal/pidlock"
	"grappling-rank/internal/repository"
	"grappling-rank/internal/service"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
)

// detachedEnv marks the re-executed background child so it does not
// detach again.
const detachedEnv = "ENGINECTL_DETACHED"

type app struct {
	cfg           *config.Config
	logger        zerolog.Logger
	db            *sql.DB
	recompute     *service.RecomputeService
	board         *service.BoardService
	bracket       *service.BracketService
	registrations *repository.RegistrationRepository
}

func setup() (*app, error) {
	log := logger.New()

	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}
	log = logger.SetLevel(cfg.Level())

	db, err := database.New(cfg, log)
	if err != nil {
		return nil, err
	}

	athleteRepo := repository.NewAthleteRepository(db, log)
	matchRepo := repository.NewMatchRepository(db, log)
	suspensionRepo := repository.NewSuspensionRepository(db, log)
	boardRepo := repository.NewBoardRepository(db, log)
	liveRepo := repository.NewLiveRatingRepository(db, log)

	board := service.NewBoardService(boardRepo, log)
	return &app{
		cfg:           cfg,
		logger:        log,
		db:            db,
		recompute:     service.NewRecomputeService(matchRepo, athleteRepo, suspensionRepo, board, log),
		board:         board,
		bracket:       service.NewBracketService(matchRepo, athleteRepo, boardRepo, liveRepo, log),
		registrations: repository.NewRegistrationRepository(db, log),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("error closing database connection")
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type RecomputeCommand struct {
	Discipline       string `long:"discipline" description:"gi or no-gi" required:"yes"`
	Gender           string `long:"gender" description:"limit to one gender"`
	StartDate        string `long:"start-date" description:"only matches on or after this date (YYYY-MM-DD)"`
	Athlete          string `long:"athlete" description:"limit to one athlete id (best effort, skips the rated flag)"`
	Youth            bool   `long:"youth" description:"youth and juvenile divisions only"`
	NoScore          bool   `long:"no-score" description:"skip match scoring"`
	Rerank           bool   `long:"rerank" description:"rebuild the ranking board afterwards"`
	RankPreviousDate string `long:"rank-previous-date" description:"recompute the previous-period snapshot as of this date (YYYY-MM-DD)"`
	Background       bool   `long:"background" description:"detach into the background with a pid and log file"`
}

func (c *RecomputeCommand) Execute(_ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	if (c.Background || a.cfg.Background) && os.Getenv(detachedEnv) == "" {
		return detach(a.cfg)
	}

	params, err := c.params()
	if err != nil {
		return err
	}

	lock, err := pidlock.Acquire(a.cfg.PidFile)
	if err != nil {
		return err
	}
	defer lock.Release()

	ctx, cancel := signalContext()
	defer cancel()

	_, err = a.recompute.Run(ctx, *params)
	return err
}

func (c *RecomputeCommand) params() (*service.RecomputeParams, error) {
	discipline, err := domain.ParseDiscipline(c.Discipline)
	if err != nil {
		return nil, err
	}

	params := &service.RecomputeParams{
		Discipline: discipline,
		YouthOnly:  c.Youth,
		Score:      !c.NoScore,
		Rerank:     c.Rerank,
	}

	if c.Gender != "" {
		if params.Gender, err = domain.ParseGender(c.Gender); err != nil {
			return nil, err
		}
	}
	if c.StartDate != "" {
		start, err := time.Parse(time.DateOnly, c.StartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid --start-date: %w", err)
		}
		params.StartDate = &start
	}
	if c.Athlete != "" {
		if params.AthleteID, err = uuid.Parse(c.Athlete); err != nil {
			return nil, fmt.Errorf("invalid --athlete: %w", err)
		}
	}
	if c.RankPreviousDate != "" {
		prev, err := time.Parse(time.DateOnly, c.RankPreviousDate)
		if err != nil {
			return nil, fmt.Errorf("invalid --rank-previous-date: %w", err)
		}
		params.RankPreviousDate = &prev
	}
	return params, nil
}

type RerankCommand struct {
	Discipline   string `long:"discipline" description:"gi or no-gi; all disciplines when omitted"`
	PreviousDate string `long:"previous-date" description:"recompute the previous-period snapshot as of this date (YYYY-MM-DD)"`
}

func (c *RerankCommand) Execute(_ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	var previous *time.Time
	if c.PreviousDate != "" {
		prev, err := time.Parse(time.DateOnly, c.PreviousDate)
		if err != nil {
			return fmt.Errorf("invalid --previous-date: %w", err)
		}
		previous = &prev
	}

	if c.Discipline == "" {
		return a.board.RebuildAll(ctx, previous)
	}
	discipline, err := domain.ParseDiscipline(c.Discipline)
	if err != nil {
		return err
	}
	return a.board.Rebuild(ctx, discipline, previous)
}

type ProjectCommand struct {
	Event    string `long:"event" description:"event id" required:"yes"`
	Division string `long:"division" description:"division id" required:"yes"`
}

func (c *ProjectCommand) Execute(_ []string) error {
	eventID, err := uuid.Parse(c.Event)
	if err != nil {
		return fmt.Errorf("invalid --event: %w", err)
	}
	divisionID, err := uuid.Parse(c.Division)
	if err != nil {
		return fmt.Errorf("invalid --division: %w", err)
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	div, err := a.registrations.Division(ctx, divisionID)
	if err != nil {
		return err
	}
	competitors, err := a.registrations.CompetitorsForDivision(ctx, eventID, divisionID)
	if err != nil {
		return err
	}

	proj, err := a.bracket.Project(ctx, eventID, *div, competitors, nil)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tNAME\tTEAM\tRATING\tADJUSTED\tMATCHES\tPERCENTILE")
	for _, comp := range proj.Competitors {
		rating := fmt.Sprintf("%.0f", comp.Rating)
		if comp.Provisional {
			rating += "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.0f\t%d\t%.1f%%\n",
			comp.Ordinal, comp.Name, comp.Team, rating, comp.AdjustedRating, comp.MatchCount, comp.Percentile*100)
	}
	return w.Flush()
}

type ExpireLiveCommand struct{}

func (c *ExpireLiveCommand) Execute(_ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()
	return a.bracket.ExpireLive(ctx)
}

// detach re-executes the current invocation as a session leader with
// stdout and stderr pointed at the log file.
func detach(cfg *config.Config) error {
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", cfg.LogFile, err)
	}
	defer logFile.Close()

	args := make([]string, 0, len(os.Args)-1)
	for _, arg := range os.Args[1:] {
		if arg == "--background" {
			continue
		}
		args = append(args, arg)
	}

	child := exec.Command(os.Args[0], args...)
	child.Env = append(os.Environ(), detachedEnv+"=1")
	child.Stdout = logFile
	child.Stderr = logFile
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start background process: %w", err)
	}

	fmt.Printf("running in the background: pid %d, log %s\n", child.Process.Pid, cfg.LogFile)
	return nil
}

func main() {
	parser := flags.NewParser(nil, flags.Default)
	parser.Usage = "[OPTIONS] COMMAND [COMMAND-OPTIONS]"

	parser.AddCommand("recompute", "Recompute ratings over the match stream", "", &RecomputeCommand{})
	parser.AddCommand("rerank", "Rebuild the ranking board", "", &RerankCommand{})
	parser.AddCommand("project", "Project seedings for an upcoming division", "", &ProjectCommand{})
	parser.AddCommand("expire-live", "Delete live ratings past their retention window", "", &ExpireLiveCommand{})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				return
			}
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
