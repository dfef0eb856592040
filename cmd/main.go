package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/brandpulse-backend/internal/db"
	"github.com/yungbote/brandpulse-backend/internal/handlers"
	"github.com/yungbote/brandpulse-backend/internal/jobs"
	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/middleware"
	"github.com/yungbote/brandpulse-backend/internal/observability"
	"github.com/yungbote/brandpulse-backend/internal/repos"
	"github.com/yungbote/brandpulse-backend/internal/server"
	"github.com/yungbote/brandpulse-backend/internal/services"
	"github.com/yungbote/brandpulse-backend/internal/simulation"
	"github.com/yungbote/brandpulse-backend/internal/sse"
	"github.com/yungbote/brandpulse-backend/internal/sse/bus"
	"github.com/yungbote/brandpulse-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	calibrationPath := utils.GetEnv("SIMULATION_CALIBRATION_FILE", "", log)
	serverPort := utils.GetEnv("SERVER_PORT", "8080", log)

	// Tracing
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: utils.GetEnv("OTEL_SERVICE_NAME", "brandpulse-backend", log),
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if otelShutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	brandProfileRepo := repos.NewBrandProfileRepo(thePG, log)
	personaRepo := repos.NewPersonaRepo(thePG, log)
	postRepo := repos.NewPostRepo(thePG, log)
	simulationResultRepo := repos.NewSimulationResultRepo(thePG, log)
	simulationRunRepo := repos.NewSimulationRunRepo(thePG, log)
	aiCallLogRepo := repos.NewAICallLogRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)
	var emitter services.SSEEmitter = &services.HubEmitter{Hub: sseHub}
	if os.Getenv("REDIS_ADDR") != "" {
		redisBus, busErr := bus.NewRedisBus(log)
		if busErr != nil {
			log.Warn("Redis SSE bus init failed, falling back to local hub", "error", busErr)
		} else {
			if fErr := redisBus.StartForwarder(context.Background(), sseHub.Broadcast); fErr != nil {
				log.Warn("Redis SSE forwarder failed to start, falling back to local hub", "error", fErr)
			} else {
				emitter = &services.BusEmitter{Bus: redisBus}
				defer redisBus.Close()
			}
		}
	}
	notifier := services.NewSimulationNotifier(emitter)

	// Calibration
	calibration := simulation.DefaultCalibration(log)
	if calibrationPath != "" {
		loaded, calErr := simulation.LoadCalibration(log, calibrationPath)
		if calErr != nil {
			log.Error("Could not load calibration overrides", "path", calibrationPath, "error", calErr)
			os.Exit(1)
		}
		calibration = loaded
	}

	// Services
	log.Info("Setting up Services from main...")
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	judge := services.NewAudienceJudge(log, openaiClient, calibration, aiCallLogRepo)
	engine := simulation.NewEngine(log, judge, calibration, simulation.NewRand())
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	simulationService := services.NewSimulationService(thePG, log, personaRepo, postRepo, simulationResultRepo, simulationRunRepo, notifier)

	// Job worker
	registry := jobs.NewRegistry()
	registry.Register(services.JobTypeAudienceSimulation, jobs.NewSimulateAudienceHandler(log, personaRepo, postRepo, simulationResultRepo, engine))
	worker := jobs.NewWorker(thePG, log, simulationRunRepo, registry, notifier)
	go worker.Start(context.Background())

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	brandProfileHandler := handlers.NewBrandProfileHandler(log, brandProfileRepo)
	personaHandler := handlers.NewPersonaHandler(log, personaRepo)
	postHandler := handlers.NewPostHandler(log, postRepo)
	simulationHandler := handlers.NewSimulationHandler(log, simulationService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:         authHandler,
		AuthMiddleware:      authMiddleware,
		BrandProfileHandler: brandProfileHandler,
		PersonaHandler:      personaHandler,
		PostHandler:         postHandler,
		SimulationHandler:   simulationHandler,
		SSEHandler:          sseHandler,
	})

	log.Info("Starting server", "port", serverPort)
	if err := router.Run(":" + serverPort); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
