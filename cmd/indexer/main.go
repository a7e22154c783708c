package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/git-guard/internal/bootstrap"
	"github.com/kirillkom/git-guard/internal/config"
	"github.com/kirillkom/git-guard/internal/observability/logging"
)

func main() {
	partition := flag.String("partition", "all", "file suffix to reindex (e.g. .go), or all")
	enqueue := flag.Bool("enqueue", false, "publish a reindex request instead of indexing inline")
	flag.Parse()

	cfg := config.Load()
	logger := logging.NewJSONLogger("indexer", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *enqueue {
		queue, err := bootstrap.NewQueue(cfg)
		if err != nil {
			log.Fatalf("queue error: %v", err)
		}
		defer queue.Close()

		if err := queue.PublishReindexRequested(ctx, *partition); err != nil {
			log.Fatalf("enqueue reindex error: %v", err)
		}
		log.Printf("reindex of %q enqueued on %s", *partition, cfg.NATSSubject)
		return
	}

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if err := app.IndexUC.Index(ctx, *partition); err != nil {
		log.Fatalf("index error: %v", err)
	}
	log.Printf("reindex of %q done", *partition)
}
