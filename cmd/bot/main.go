package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/config"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/infrastructure"
	ophttp "github.com/Abilka94/WoW-Reg-Legion-Bot/internal/interfaces/http"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/interfaces/telegram"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/repository"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/session"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/usecases"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/validation"
)

func main() {
	memoryMode := flag.Bool("memory", false, "run with in-memory storage (no Postgres/Redis)")
	configPath := flag.String("config", "config.json", "path to the reloadable config file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	env, err := config.LoadEnv()
	if err != nil {
		log.Error("configuration", "err", err)
		os.Exit(1)
	}
	runtime := config.LoadRuntime(*configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage.
	var repo repository.AccountRepository
	if *memoryMode || env.DatabaseURL == "" {
		log.Warn("running with in-memory storage, data will not survive restarts")
		repo = repository.NewMemoryRepository(runtime.MaxAccountsPerUser)
	} else {
		pg, err := infrastructure.NewPostgresClient(ctx, env.DatabaseURL)
		if err != nil {
			log.Error("postgres connect", "err", err)
			os.Exit(1)
		}
		defer pg.Close()
		repo = repository.NewPostgresRepository(pg.Pool, runtime.MaxAccountsPerUser)
	}

	// Sessions.
	var sessions session.Store
	if !*memoryMode && env.RedisAddr != "" {
		client, err := infrastructure.NewRedisClient(ctx, env.RedisAddr, env.RedisPassword, env.RedisDB)
		if err != nil {
			log.Error("redis connect", "err", err)
			os.Exit(1)
		}
		defer client.Close()
		sessions = session.NewRedisStore(client, session.DefaultTTL)
	} else {
		sessions = session.NewMemoryStore(session.DefaultTTL)
	}

	var policy validation.Policy
	switch env.ValidationPolicy {
	case "strict":
		policy = validation.StrictPolicy{}
	default:
		policy = validation.BasicPolicy{}
	}

	wizard := usecases.NewRegistrationWizard(repo, policy, sessions, runtime, log)
	lifecycle := usecases.NewCredentialLifecycleManager(repo, policy, sessions, runtime, log)
	shop := usecases.NewCurrencyShop(repo, sessions, runtime, log)
	stats := usecases.NewStatsService(repo, log)

	api, err := tgbotapi.NewBotAPI(env.BotToken)
	if err != nil {
		log.Error("telegram connect", "err", err)
		os.Exit(1)
	}

	bot := telegram.NewBot(api, telegram.Deps{
		Wizard:    wizard,
		Lifecycle: lifecycle,
		Shop:      shop,
		Stats:     stats,
		Sessions:  sessions,
		Runtime:   runtime,
		Limiter:   infrastructure.NewUserRateLimiter(1, 3),
		News:      infrastructure.NewFileCache("news.txt"),
		Info:      infrastructure.NewFileCache("connection_info.txt"),
		AdminID:   env.AdminID,
		ServerURL: env.ServerURL,
		Log:       log,
	})

	// Ops API, optional.
	if env.HTTPAddr != "" {
		auth := usecases.NewOpsAuth(env.OpsAdminUser, env.OpsAdminPassword, env.JWTSecret)
		gin.SetMode(gin.ReleaseMode)
		r := gin.New()
		r.Use(gin.Recovery())
		ophttp.SetupRoutes(r, ophttp.NewHandler(auth, stats, bot), ophttp.NewMiddleware(auth))
		go func() {
			log.Info("ops API listening", "addr", env.HTTPAddr)
			if err := r.Run(env.HTTPAddr); err != nil {
				log.Error("ops API stopped", "err", err)
			}
		}()
	}

	bot.Run(ctx)
}
