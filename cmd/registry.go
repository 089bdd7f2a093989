package cmd

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penhub/pushkit/pkg/config"
	"github.com/penhub/pushkit/pkg/registry"
)

var registryCfgPath string

// RegistryCmd runs the subscription registry server.
var RegistryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Run the push subscription registry",
	Long:  "Serve the subscription registry: mirror device subscriptions, fan out blog events as web push, and track notification telemetry",
	Run:   runRegistry,
}

func init() {
	RegistryCmd.Flags().StringVarP(&registryCfgPath, "config", "c", "", "Configuration file path")
	if err := viper.BindPFlag("config", RegistryCmd.Flags().Lookup("config")); err != nil {
		log.Printf("Failed to bind config flag: %v", err)
	}
}

func runRegistry(cmd *cobra.Command, args []string) {
	cfg, err := config.LoadConfig(registryCfgPath)
	if err != nil {
		log.Printf("Failed to load config, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}
	if cfg.Registry.JWTSecret == "" {
		log.Fatal("registry requires a JWT secret (PUSHKIT_JWT_SECRET or registry.jwt_secret)")
	}

	store, err := registry.NewStore(cfg.Registry.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Failed to close storage: %v", err)
		}
	}()

	// The sender is optional: without VAPID keys the registry still
	// mirrors subscriptions, it just cannot deliver.
	var sender registry.PushSender
	webpushSender, err := registry.NewWebPushSender(
		cfg.Registry.VAPIDPublicKey,
		cfg.Registry.VAPIDPrivateKey,
		cfg.Registry.VAPIDContact,
	)
	if err != nil {
		log.Printf("Web push delivery disabled: %v", err)
	} else {
		sender = webpushSender
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	handlers := registry.NewHandlers(store, sender)
	handlers.Mount(e.Group("", registry.BearerAuth(cfg.Registry.JWTSecret)))

	janitor, err := registry.NewJanitor(store, cfg.Registry.JanitorSchedule)
	if err != nil {
		log.Fatalf("Failed to schedule janitor: %v", err)
	}
	janitor.Start()
	defer janitor.Stop()

	go func() {
		log.Printf("Starting pushkit registry on %s", cfg.Registry.Addr)
		if err := e.Start(cfg.Registry.Addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down registry...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
