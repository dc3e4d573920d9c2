package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/crewdock/crewdock/internal/config"
	"github.com/crewdock/crewdock/internal/database"
	"github.com/crewdock/crewdock/internal/handlers"
	"github.com/crewdock/crewdock/internal/router"
	"github.com/crewdock/crewdock/internal/services"
	"github.com/crewdock/crewdock/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("crewdock %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Server] Failed to load config: %v", err)
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("[Server] Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(); err != nil {
		log.Fatalf("[Server] Failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	entityStore := services.NewEntityStore(db)
	sessionStore := services.NewSessionStore(db)
	authService := services.NewAuthService(db, cfg)
	auditService := services.NewAuditService(db)
	resolver := services.NewVariableResolver(entityStore)
	gate := services.NewAccessGate(entityStore, authService)
	registry := services.NewLivenessRegistry()
	queue := services.NewRedisQueue(redisClient, cfg.Queue.Name, cfg.Queue.GetEnqueueTimeout())
	stopSignal := services.NewRedisStopSignal(redisClient)

	orchestrator := services.NewSessionOrchestrator(
		entityStore, sessionStore, resolver, gate, registry, queue, stopSignal,
	)

	if err := authService.EnsureAdmin(); err != nil {
		log.Fatalf("[Server] Failed to ensure admin account: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := router.New(router.Handlers{
		Sessions: handlers.NewSessionHandler(orchestrator, authService, auditService),
		Public:   handlers.NewPublicSessionHandler(orchestrator),
		Apps:     handlers.NewAppHandler(entityStore, authService),
		Auth:     handlers.NewAuthHandler(authService, auditService),
		Stream:   handlers.NewStreamHandler(orchestrator, redisClient),
		System:   handlers.NewSystemHandler(auditService),
	}, authService)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("[Server] crewdock %s listening on %s", version.Version, addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("[Server] Server error: %v", err)
	}
}
