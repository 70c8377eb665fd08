package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"sealed-auction/internal/api/handlers"
	"sealed-auction/internal/config"
	"sealed-auction/internal/domain"
	"sealed-auction/internal/homomorphic"
	"sealed-auction/internal/infrastructure/gateway"
	"sealed-auction/internal/infrastructure/leader"
	"sealed-auction/internal/infrastructure/mysql"
	"sealed-auction/internal/infrastructure/redis"
	"sealed-auction/internal/infrastructure/websocket"
	"sealed-auction/internal/services"
	"sealed-auction/pkg/logger"
)

func main() {
	log := logger.New()
	log.Info("Starting Sealed Auction Engine")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log.Info("Configuration loaded", "config", cfg.GetConfigString())

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Error("Failed to connect to MySQL", "error", err)
		os.Exit(1)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}(db)

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		log.Error("Failed to ping MySQL", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to MySQL")

	// Initialize the homomorphic evaluator and comparator
	evaluator, err := homomorphic.NewLocalEvaluator()
	if err != nil {
		log.Error("Failed to initialize evaluator", "error", err)
		os.Exit(1)
	}
	comparator := homomorphic.NewComparator(evaluator)

	// Authorization predicates. Manager keys come from config; the sweeper
	// runs under the instance id, which is always a manager.
	managers := make(map[string]struct{}, len(cfg.Engine.ManagerKeys)+1)
	for _, key := range cfg.Engine.ManagerKeys {
		managers[key] = struct{}{}
	}
	managers[cfg.Instance.ID] = struct{}{}
	managerAuth := domain.AuthFunc(func(caller string) bool {
		_, ok := managers[caller]
		return ok
	})
	verifierAuth := domain.AuthFunc(func(caller string) bool {
		return cfg.Gateway.VerifierKey != "" && caller == cfg.Gateway.VerifierKey
	})

	var transport domain.VerifierTransport
	if cfg.Gateway.Enabled && cfg.Gateway.URL != "" {
		transport = gateway.NewHTTPTransport(cfg.Gateway.URL, 10*time.Second, log)
	}

	engine := services.NewEngine(
		comparator,
		services.Options{
			Capacity:          cfg.Engine.Capacity,
			DefaultDuration:   cfg.Engine.DefaultDuration,
			ClosedMarketplace: cfg.Engine.ClosedMarketplace,
			GatewayEnabled:    cfg.Gateway.Enabled,
			ChainID:           cfg.Gateway.ChainID,
			RequesterID:       cfg.Instance.ID,
			VerificationTTL:   cfg.Gateway.VerificationTTL,
		},
		managerAuth,
		verifierAuth,
		transport,
		log,
	)
	engine.SetPersistence(
		mysql.NewMySQLAuctionRepository(db),
		mysql.NewMySQLBidRepository(db),
		mysql.NewMySQLClaimRepository(db),
	)
	engine.SetEventPublisher(redis.NewEventPublisher(rdb))

	// Live push path: redis events fan out to websocket auction rooms.
	connManager := websocket.NewConnectionManager(log)
	notifier := websocket.NewWebSocketNotifier(connManager)
	subscriber := redis.NewRedisEventSubscriber(rdb, log)
	subscriberCtx, stopSubscriber := context.WithCancel(context.Background())
	defer stopSubscriber()
	go func() {
		if err := subscriber.SubscribeToAuctionEvents(subscriberCtx, notifier.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event subscriber exited", "error", err)
		}
	}()

	// Leader election and the resolution sweeper
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)
	sweeper := services.NewResolutionSweeper(
		engine, leaderElection, cfg.Instance.ID, cfg.Instance.ID,
		cfg.Engine.SweepInterval, log)

	go func() {
		if err := sweeper.Start(context.Background()); err != nil {
			log.Error("Failed to start sweeper", "error", err)
		}
	}()

	go func() {
		for {
			became, err := leaderElection.BecomeLeader(context.Background(), cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("Became resolution leader", "instance_id", cfg.Instance.ID)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			"X-Caller-ID",
		},
	}))

	auctionHandler := handlers.NewAuctionHandler(engine, log)
	wsHandlers := handlers.NewWebSocketHandlers(engine, connManager, log)

	api := e.Group("/api/v1")
	api.POST("/auctions", auctionHandler.CreateAuction)
	api.GET("/auctions", auctionHandler.GetActiveAuctions)
	api.GET("/auctions/stats", auctionHandler.GetAuctionStats)
	api.GET("/auctions/:id", auctionHandler.GetAuction)
	api.POST("/auctions/:id/bids", auctionHandler.PlaceBid)
	api.POST("/auctions/:id/resolve", auctionHandler.ResolveAuction)
	api.POST("/auctions/resolve-batch", auctionHandler.BatchResolveAuctions)
	api.POST("/auctions/:id/emergency-end", auctionHandler.EmergencyEndAuction)
	api.POST("/auctions/:id/claim", auctionHandler.ClaimReward)
	api.GET("/auctions/:id/bids/:user", auctionHandler.HasUserBid)
	api.GET("/auctions/:id/bids/:user/history", auctionHandler.GetBidHistory)
	api.GET("/auctions/:id/claims/:user", auctionHandler.HasClaimedReward)
	api.GET("/wins", auctionHandler.GetMyWins)
	api.POST("/gateway/verified", auctionHandler.GatewayVerified)
	api.POST("/gateway/rejected", auctionHandler.GatewayRejected)
	e.GET("/ws/:id", wsHandlers.Watch)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-engine",
			"timestamp": time.Now().Format(time.RFC3339),
			"port":      cfg.Server.Port,
		})
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting auction engine server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction engine...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sweeper.Stop(); err != nil {
		log.Error("Failed to stop sweeper", "error", err)
	}
	stopSubscriber()
	if err := leaderElection.ReleaseLeadership(ctx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Auction engine stopped")
}
