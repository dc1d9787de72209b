package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"mangacal/internal/auth"
	"mangacal/internal/calendar"
	"mangacal/internal/notify"
	"mangacal/internal/orchestrator"
	"mangacal/internal/providers"
	"mangacal/internal/series"
	"mangacal/internal/settings"
	synchub "mangacal/internal/sync"
	"mangacal/pkg/database"
	"mangacal/pkg/utils"
)

func main() {
	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	orc := orchestrator.New(startupCtx,
		providers.NewAniList(),
		providers.NewMangaDex(),
		providers.NewJikan(),
		providers.NewOpenLibrary(),
	)
	cancelStartup()

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Start sync + notify transports first so binding errors show up early
	hub := synchub.NewHub()
	router.GET("/ws", synchub.WSHandler(hub))
	tcpSrv := synchub.NewServer(":7070", hub)

	notifyRegistry := notify.NewRegistry()
	notifySrv := notify.NewServer(":7071", notifyRegistry, nil)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"backends":    orc.Backends(),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	settingsRepo := settings.NewRepo(db)
	settingsHandler := settings.NewHandler(settingsRepo)

	calRepo := calendar.NewRepo(db)
	materializer := calendar.NewMaterializer(db, settingsRepo, orc.HasReliableFutureBoundary)
	calHandler := calendar.NewHandler(calRepo, materializer, hub, notifySrv)

	seriesRepo := series.NewRepo(db)
	importer := series.NewImporter(seriesRepo, orc, materializer)
	seriesHandler := series.NewHandler(seriesRepo, importer, orc, hub)

	// Public reads
	seriesHandler.RegisterRoutes(router.Group("/series"))
	seriesHandler.RegisterMetadataRoutes(router.Group("/metadata"))
	calHandler.RegisterRoutes(router.Group("/calendar"))

	// Auth
	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	authHandler := auth.NewHandler(authRepo, tokenSvc)
	authHandler.RegisterRoutes(router.Group("/auth"))

	// Mutating routes require a valid token
	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo))
	seriesHandler.RegisterProtectedRoutes(protected.Group("/series"))
	calHandler.RegisterProtectedRoutes(protected.Group("/calendar"))
	settingsHandler.RegisterRoutes(protected.Group("/settings"))

	httpSrv := &http.Server{
		Addr:    ":8080",
		Handler: router,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	// Not in the waitgroup: the UDP read loop has no clean shutdown and the
	// process exits right after wg.Wait anyway.
	go func() {
		if err := notifySrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("HTTP API server listening on :8080")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}
