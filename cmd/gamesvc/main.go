package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/avvvet/strategists-services/configs"
	"github.com/avvvet/strategists-services/internal/comm"
	mongodb "github.com/avvvet/strategists-services/internal/db"
	"github.com/avvvet/strategists-services/internal/gamesvc/advice"
	"github.com/avvvet/strategists-services/internal/gamesvc/broker"
	gamecfg "github.com/avvvet/strategists-services/internal/gamesvc/config"
	"github.com/avvvet/strategists-services/internal/gamesvc/db"
	"github.com/avvvet/strategists-services/internal/gamesvc/gamemap"
	handlers "github.com/avvvet/strategists-services/internal/gamesvc/handlers"
	"github.com/avvvet/strategists-services/internal/gamesvc/history"
	"github.com/avvvet/strategists-services/internal/gamesvc/predictions"
	"github.com/avvvet/strategists-services/internal/gamesvc/service"
	"github.com/avvvet/strategists-services/internal/gamesvc/store"
	"github.com/avvvet/strategists-services/internal/gamesvc/updates"
	nats "github.com/avvvet/strategists-services/internal/nats"
	"github.com/avvvet/strategists-services/internal/worker"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "game"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := gamecfg.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	id := config.CreateUniqueInstance(SERVICE_NAME)

	// store: pg when configured, process memory otherwise
	var gameStore store.Store
	if cfg.DBUrl != "" {
		dbpool, err := db.Connect(cfg.DBUrl, cfg.DBMaxConns)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer db.ClosePool()
		pgStore := store.NewPostgresStore(dbpool)
		if err := pgStore.Migrate(context.Background()); err != nil {
			log.Fatalf("Failed to migrate DB: %v", err)
		}
		gameStore = pgStore
		log.Printf("pg connection established successfully")
	} else {
		gameStore = store.NewMemoryStore()
		log.Warn("DATABASE_URL not set, games are kept in memory")
	}

	// history archive
	var archive history.Archive
	if cfg.MongoURI != "" {
		database, disconnect, err := mongodb.ConnectToDB(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer disconnect()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		archive, err = history.NewMongoArchive(ctx, database, cfg.History.Collection)
		cancel()
		if err != nil {
			log.Fatalf("Failed to prepare history archive: %v", err)
		}
		log.Printf("MongoDB connection established successfully")
	}
	historyLog := history.NewLog(archive, cfg.History.Retention)
	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), 10*time.Second)
	historyLog.Restore(restoreCtx)
	cancelRestore()

	// Connect to NATS
	n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"-"+id)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}
	defer n.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	b := broker.NewBroker(n.Conn)
	dispatcher := updates.NewDispatcher(b.Updates(), cfg.QueueSize)
	defer dispatcher.Close()

	// follow-up jobs dispatch updates, so the pool stops first
	pool := worker.NewPool(cfg.Workers, cfg.Workers*32)
	defer pool.Close()

	deps := service.Deps{
		Store:      gameStore,
		Pool:       pool,
		Dispatcher: dispatcher,
		Maps:       gamemap.Default(),
		History:    historyLog,
	}
	if cfg.Advices.Enabled {
		deps.Advices = advice.NewEngine(
			advice.AvoidTimeout(1),
			advice.FrequentlyInvest(2, cfg.Advices.FrequentlyInvestLookBack),
			advice.ConcentrateInvestments(3, cfg.Advices.ConcentrateMinLands),
		)
	}
	if cfg.Predictions.Enabled {
		deps.Predictions = predictions.NewClient(cfg.Predictions.URL, cfg.Predictions.Timeout)
	}
	gameService := service.NewGameService(cfg, deps)
	defer gameService.Close()
	b.GameService = gameService

	pingCtx, stopPing := context.WithCancel(context.Background())
	defer stopPing()
	go dispatcher.RunPing(pingCtx, cfg.Ping)

	// commands from socket services, one game service of the group handles each
	sub, err := b.QueueSubscribeCommands(comm.CommandsTopic, SERVICE_NAME)
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(0)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(gameService, cfg.Port)
	h.InitAuth(cfg.JwtSecret)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
