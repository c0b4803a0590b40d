package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/likechat/config"
	"github.com/example/likechat/modules/activity"
	"github.com/example/likechat/modules/api"
	"github.com/example/likechat/modules/broadcast"
)

func main() {
	log.Println("=== likechat relay - Fiber WebSocket + EventBus activity ===")

	cfg := config.Load()

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.Relay.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	broadcastModule := broadcast.NewModule(broadcast.Options{
		Buckets:            cfg.Relay.RegistryBuckets,
		AuthoritativeLikes: cfg.Relay.AuthoritativeLikes,
		LedgerSize:         cfg.Relay.LikeLedgerSize,
		WriteTimeout:       cfg.Relay.WriteTimeout,
	})
	activityModule := activity.NewModule(app.Logger())
	apiModule := api.NewModule(cfg.Relay, broadcastModule.Hub(), activityModule.Store(), app.Logger())

	// broadcast owns the room registry; activity consumes the events api emits.
	app.Register(broadcastModule)
	app.Register(activityModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg.Relay, apiModule.Addr())

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Relay.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.RelayConfig, addr string) {
	likes := "relayed as deltas"
	if cfg.AuthoritativeLikes {
		likes = "authoritative counter"
	}

	log.Println("")
	log.Println("Relay started successfully!")
	log.Println("")
	log.Printf("Listening on %s", addr)
	log.Printf("  Likes: %s (ledger size %d)", likes, cfg.LikeLedgerSize)
	log.Printf("  Max message length: %d", cfg.MaxMessageLength)
	log.Println("")
	log.Println("REST API Endpoints:")
	log.Println("  GET    /health                 - Health check")
	log.Println("  GET    /api/v1/rooms           - List active rooms")
	log.Println("  GET    /api/v1/rooms/:name     - Room members and activity")
	log.Println("")
	log.Println("WebSocket Endpoint: /ws?username=yourname")
	log.Println("  Events: join room, leave room, chat message, toggle like")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
