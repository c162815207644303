// Command battleserver is the process entry point that exposes the battle
// engine over HTTP: it loads configuration, wires the content store and
// battle registry, starts the observability debug server, and serves the
// chi router until terminated.
package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/battlecore/battlecore/internal/api"
	"github.com/battlecore/battlecore/internal/config"
	"github.com/battlecore/battlecore/internal/content"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[battleserver] no .env file found, using environment variables only")
	}

	log.Println("[battleserver] starting")

	appConfig := config.Load()

	store, err := content.NewLocalStore()
	if err != nil {
		log.Fatalf("[battleserver] loading content store: %v", err)
	}

	registry := api.NewRegistry(store, appConfig.Engine)

	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		debugCfg.Enabled = false
	}
	if err := api.StartDebugServer(debugCfg); err != nil {
		log.Printf("[battleserver] debug server disabled: %v", err)
	}

	router := api.NewRouter(api.RouterConfig{Registry: registry})

	addr := ":" + strconv.Itoa(appConfig.Server.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		log.Printf("[battleserver] listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[battleserver] server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[battleserver] shutting down")
}
