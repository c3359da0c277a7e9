package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fasthttp/router"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"

	"payment-dispatcher/internal/config"
	"payment-dispatcher/internal/dispatch"
	"payment-dispatcher/internal/handlers"
	"payment-dispatcher/internal/health"
	"payment-dispatcher/internal/lock"
	"payment-dispatcher/internal/models"
	"payment-dispatcher/internal/processor"
	"payment-dispatcher/internal/queue"
	"payment-dispatcher/internal/store"
)

func main() {
	cfg := config.Load()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// Workers backoff-and-retry on their own, so this is not fatal.
		log.Printf("warning: redis connection failed: %v", err)
	}
	cancelPing()

	paymentQueue := queue.New(rdb)
	ledger := store.New(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	if cfg.RunsWorkers() {
		httpClient := processor.DefaultHTTPClient()
		defaultClient := processor.NewClient(models.ProcessorDefault, cfg.DefaultProcessorURL, httpClient)
		fallbackClient := processor.NewClient(models.ProcessorFallback, cfg.FallbackProcessorURL, httpClient)

		monitor := health.NewMonitor(defaultClient, fallbackClient, config.HealthInterval)
		pool := dispatch.NewPool(dispatch.Config{
			Workers:        cfg.Workers,
			LockTTL:        config.LockTTL,
			LockBackoff:    config.LockBackoff,
			StoreBackoff:   config.StoreBackoff,
			DequeueTimeout: config.DequeueTimeout,
		}, paymentQueue, lock.New(rdb), ledger, monitor, defaultClient, fallbackClient)

		g.Go(func() error { return monitor.Run(gctx) })
		g.Go(func() error { return pool.Run(gctx) })
		log.Printf("started %d dispatch workers (service type %s)", cfg.Workers, cfg.ServiceType)
	}

	r := router.New()
	handlers.New(paymentQueue, ledger).Register(r)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		log.Printf("listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil {
			log.Fatalf("could not listen on %s: %v", addr, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down...")

	// Stop the loops first so no worker is mid-dispatch when the store
	// connection goes away.
	cancel()
	if err := g.Wait(); err != nil {
		log.Printf("background loops exited with error: %v", err)
	}

	if err := server.Shutdown(); err != nil {
		log.Printf("server shutdown failed: %v", err)
	}
	if err := rdb.Close(); err != nil {
		log.Printf("closing redis client failed: %v", err)
	}

	log.Println("shutdown complete")
}
