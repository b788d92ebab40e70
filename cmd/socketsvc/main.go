package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avvvet/strategists-services/internal/comm"
	"github.com/avvvet/strategists-services/internal/nats"
	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/strategists-services/configs"

	"github.com/avvvet/strategists-services/internal/socketsvc/broker"
	"github.com/avvvet/strategists-services/internal/socketsvc/hub"
	"github.com/avvvet/strategists-services/internal/socketsvc/routes"
	"github.com/avvvet/strategists-services/internal/socketsvc/ws"
)

const SERVICE_NAME = "socket"

type socketConfig struct {
	Port       string `env:"SOCKET_SERVICE_PORT" envDefault:"8081"`
	RateLimit  int    `env:"RATE_LIMIT" envDefault:"100"`
	JwtSecret  string `env:"JWT_SECRET_KEY"`
	NatsURL    string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	NatsToken  string `env:"NATS_TOKEN"`
	BufferSize int    `env:"SOCKET_BUFFER_SIZE" envDefault:"64"`
}

func init() {
	instanceId := "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := env.ParseAs[socketConfig]()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	id := config.CreateUniqueInstance(SERVICE_NAME)

	// Connect to NATS
	n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"-"+id)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Initialize websocket handler
	s := ws.NewWs(hub.New(cfg.BufferSize))

	// Initialize routes
	routes.InitAuth(cfg.JwtSecret)
	routes.SetRoutes(r, s, cfg.Port)

	// Initialize broker, socket functions are injected
	b := broker.NewBroker(n.Conn, s.Send, s.Bind, s.Fanout)
	s.Broker = b // set broker reference for websocket handler logic

	// replies of the game service
	subReplies, err := b.Subscribe(comm.RepliesTopic)
	if err != nil {
		log.Errorf("Error: unable to subscribe to replies %v", err)
		os.Exit(0)
	}

	// updates of every game
	subUpdates, err := b.SubscribeUpdates()
	if err != nil {
		log.Errorf("Error: unable to subscribe to updates %v", err)
		os.Exit(0)
	}

	// Create server with timeout settings
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
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

	subReplies.Unsubscribe()
	subUpdates.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
