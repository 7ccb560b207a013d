package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"campusnest/market/internal/api"
	"campusnest/market/internal/cache"
	"campusnest/market/internal/config"
	"campusnest/market/internal/db"
	"campusnest/market/internal/distance"
	"campusnest/market/internal/email"
	"campusnest/market/internal/logging"
	"campusnest/market/internal/realtime"
	"campusnest/market/internal/services"
	"campusnest/market/internal/storage"
	"campusnest/market/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'img' (image processing), 'all' (default)")

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			slog.Error("error disconnecting from MongoDB", "error", err)
		}
	}()
	if err := db.EnsureIndexes(ctx, mongoDb); err != nil {
		fatal("failed to ensure indexes", err)
	}

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		fatal("failed to connect to Redis", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			slog.Error("error disconnecting from Redis", "error", err)
		}
	}()

	apiEnabled := cfg.RunMode == "api" || cfg.RunMode == "all"
	bgEnabled := cfg.RunMode == "bg" || cfg.RunMode == "all"
	imgEnabled := cfg.RunMode == "img" || cfg.RunMode == "all"
	if !apiEnabled && !bgEnabled && !imgEnabled {
		slog.Error("invalid run mode", "mode", cfg.RunMode)
		os.Exit(1)
	}

	// Realtime: only API processes hold sockets, everyone publishes.
	var hub *realtime.Hub
	if apiEnabled {
		hub = realtime.NewHub(256)
		go hub.Run(ctx)
	}
	bridge := realtime.NewRedisBridge(redisClient, cfg.RealtimeChannel, hub)

	// Email
	var primaryEmailSender email.Sender
	if os.Getenv("MOCK_SERVICES") == "true" {
		slog.Info("MOCK_SERVICES enabled, capturing emails in Redis")
		primaryEmailSender = email.NewRedisSender(redisClient, cfg)
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg)
	}
	emailSender := email.NewCompositeEmailSender(primaryEmailSender)
	if _, logOnly := primaryEmailSender.(*email.LoggingSender); !logOnly && os.Getenv("LOG_EMAILS") == "true" {
		emailSender.AddSender(email.NewLoggingSender(cfg))
	}

	objectStorage, err := storage.NewS3Storage(cfg)
	if err != nil {
		slog.Warn("document storage unavailable, uploads will be refused", "error", err)
		objectStorage = nil
	}

	var upstream distance.Geocoder = distance.Unavailable{}
	if google, err := distance.NewGoogleGeocoder(cfg.GeocodeBaseURL, cfg.GeocodeAPIKey, cfg.GeocodeRegion); err != nil {
		slog.Warn("geocoding unavailable, address distances will fail", "error", err)
	} else {
		upstream = google
	}
	geocoder := distance.NewCachedGeocoder(upstream, redisClient, cfg.GeocodeCacheTTL)
	calculator := distance.NewCalculator(geocoder, cfg.DistanceWorkers)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	jobs := tasks.NewEnqueuer(taskClient)

	// Services
	userService := services.NewUserService(mongoDb)
	propertyService := services.NewPropertyService(mongoDb, redisClient, cfg)
	studentService := services.NewStudentService(mongoDb, cfg, userService, objectStorage, jobs, bridge)
	wishlistService := services.NewWishlistService(mongoDb, studentService, propertyService, bridge)
	notificationService := services.NewNotificationService(mongoDb, cfg, bridge)
	visitService := services.NewVisitRequestService(mongoDb, userService, propertyService, notificationService, jobs, bridge)
	joinService := services.NewJoinRequestService(mongoDb, userService, studentService, propertyService, notificationService, jobs, bridge)
	distanceService := services.NewDistanceService(propertyService, calculator, jobs)
	publicStudentService := services.NewPublicStudentService(mongoDb, userService, studentService)
	dashboardService := services.NewStudentDashboardService(mongoDb, studentService, notificationService)
	emailTemplateService := services.NewEmailTemplateService(mongoDb)

	taskProcessor := tasks.NewTaskProcessor(cfg, emailSender, emailTemplateService, objectStorage,
		studentService, propertyService, geocoder)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// Service API (always runs)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(cfg, redisClient, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("service API listening", "port", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("service API ListenAndServe error", err)
		}
	}()

	slog.Info("starting application", "mode", cfg.RunMode)

	var mainApiSrv *http.Server
	if apiEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bridge.Subscribe(ctx); err != nil {
				slog.Error("realtime bridge stopped", "error", err)
			}
		}()

		mainApiSrv = &http.Server{
			Addr: ":" + cfg.ApiPort,
			Handler: api.SetupRouter(ctx, cfg, api.Services{
				Properties:     propertyService,
				Distance:       distanceService,
				Students:       studentService,
				Wishlist:       wishlistService,
				Visits:         visitService,
				Joins:          joinService,
				Notifications:  notificationService,
				PublicStudents: publicStudentService,
				Dashboard:      dashboardService,
			}, hub),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("main API listening", "port", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatal("main API ListenAndServe error", err)
			}
		}()
	}

	var taskSrv *asynq.Server
	if bgEnabled || imgEnabled {
		var mux *asynq.ServeMux
		taskSrv, mux = tasks.SetupServer(redisClient, taskProcessor, imgEnabled, bgEnabled)
		if err := taskSrv.Start(mux); err != nil {
			fatal("task server failed to start", err)
		}
		slog.Info("task server started", "background", bgEnabled, "images", imgEnabled)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received signal, shutting down", "signal", sig.String())
	case <-shutdownChan:
		slog.Info("shutdown requested via service API")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		slog.Error("service API shutdown error", "error", err)
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			slog.Error("main API shutdown error", "error", err)
		}
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}

	// stops the hub, the bridge and the rate limiter sweep
	cancel()
	wg.Wait()

	slog.Info("server gracefully stopped")
}
