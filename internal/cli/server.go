package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"medquiz-service/internal/app"
	"medquiz-service/internal/config"
	"medquiz-service/internal/domain"
	"medquiz-service/internal/infra/memory"
	pginfra "medquiz-service/internal/infra/postgres"
	redisinfra "medquiz-service/internal/infra/redis"
	transport "medquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	registryTTL := config.TTLDuration(cfg.Redis.TTL, time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	var gateway app.Gateway = memory.NewGateway()
	if pool != nil {
		loader = pginfra.NewQuestionLoader(pool)
		gateway = pginfra.NewGateway(pool)
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var questions app.QuestionRepository
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, cacheTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, cacheTTL)
	}

	var registry app.SessionRegistry
	if redisClient != nil {
		registry = redisinfra.NewRegistry(redisClient, registryTTL)
	} else {
		registry = memory.NewRegistry()
	}

	quizCfg := app.DefaultConfig()
	quizCfg.QuickCount = config.CountOr(cfg.Quiz.QuickCount, quizCfg.QuickCount)
	quizCfg.TimedCount = config.CountOr(cfg.Quiz.TimedCount, quizCfg.TimedCount)
	quizCfg.TimedBudget = config.TTLDuration(cfg.Quiz.TimedBudget, quizCfg.TimedBudget)
	quizCfg.AutoAdvanceDelay = config.TTLDuration(cfg.Quiz.AutoAdvanceDelay, quizCfg.AutoAdvanceDelay)
	quizCfg.RecordTimeout = config.TTLDuration(cfg.Quiz.RecordTimeout, quizCfg.RecordTimeout)

	service := app.NewQuizService(registry, questions, gateway, quizCfg, logger)
	wsHandler := transport.NewWSHandler(service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz session service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions provides a minimal question bank for dependency-free runs;
// production deployments load the bank from Postgres.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:     "q-cardio-1",
			Prompt: "A 58-year-old man presents with crushing substernal chest pain radiating to the left arm. Which artery is most commonly occluded in inferior myocardial infarction?",
			Options: []domain.Option{
				{Label: "A", Text: "Left anterior descending artery"},
				{Label: "B", Text: "Right coronary artery"},
				{Label: "C", Text: "Left circumflex artery"},
				{Label: "D", Text: "Left main coronary artery"},
			},
			CorrectIndex: 1,
			Explanation:  "The right coronary artery supplies the inferior wall of the left ventricle in right-dominant circulation.",
			Category:     "cardiology",
			Difficulty:   domain.DifficultyMedium,
		},
		{
			ID:     "q-pharm-1",
			Prompt: "Which medication class is first-line for heart failure with reduced ejection fraction?",
			Options: []domain.Option{
				{Label: "A", Text: "ACE inhibitors"},
				{Label: "B", Text: "Calcium channel blockers"},
				{Label: "C", Text: "Class I antiarrhythmics"},
			},
			CorrectIndex: 0,
			Explanation:  "ACE inhibitors reduce mortality in HFrEF and are first-line therapy.",
			Category:     "pharmacology",
			Difficulty:   domain.DifficultyEasy,
		},
		{
			ID:     "q-neuro-1",
			Prompt: "A lesion of the optic chiasm classically produces which visual field defect?",
			Options: []domain.Option{
				{Label: "A", Text: "Ipsilateral monocular blindness"},
				{Label: "B", Text: "Bitemporal hemianopia"},
				{Label: "C", Text: "Homonymous hemianopia"},
			},
			CorrectIndex: 1,
			Explanation:  "Chiasmal lesions interrupt crossing nasal fibers, producing bitemporal hemianopia.",
			Category:     "neurology",
			Difficulty:   domain.DifficultyEasy,
		},
		{
			ID:     "q-biochem-1",
			Prompt: "Deficiency of which enzyme causes classic phenylketonuria?",
			Options: []domain.Option{
				{Label: "A", Text: "Phenylalanine hydroxylase"},
				{Label: "B", Text: "Tyrosinase"},
				{Label: "C", Text: "Homogentisate oxidase"},
				{Label: "D", Text: "Branched-chain ketoacid dehydrogenase"},
			},
			CorrectIndex: 0,
			Explanation:  "Classic PKU results from phenylalanine hydroxylase deficiency.",
			Category:     "biochemistry",
			Difficulty:   domain.DifficultyMedium,
		},
		{
			ID:     "q-micro-1",
			Prompt: "A patient with a prosthetic heart valve develops endocarditis two months after surgery. The most likely causative organism is:",
			Options: []domain.Option{
				{Label: "A", Text: "Streptococcus viridans"},
				{Label: "B", Text: "Staphylococcus epidermidis"},
				{Label: "C", Text: "Enterococcus faecalis"},
				{Label: "D", Text: "Candida albicans"},
			},
			CorrectIndex: 1,
			Explanation:  "Coagulase-negative staphylococci dominate early prosthetic valve endocarditis via biofilm formation.",
			Category:     "microbiology",
			Difficulty:   domain.DifficultyHard,
		},
	}
}
