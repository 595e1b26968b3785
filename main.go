package main

import (
	"context"
	"os"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		Log("failed to load configuration %v", err)
		os.Exit(1)
	}

	ctx, cancelContext := context.WithCancel(context.Background())
	defer (func() {
		cancelContext()
	})()

	shutdownTracing, err := setupTracing(ctx, cfg.Tracing)
	if err != nil {
		Log("failed to set up tracing %v", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	db, err := NewDB(cfg.DB)
	if err != nil {
		Log("failed to open database connection %v", err)
		os.Exit(1)
	}
	defer db.Close()

	repo, err := NewRepo(ctx, db)
	if err != nil {
		Log("failed to initialize repository %v", err)
		os.Exit(1)
	}

	mgr := NewGameManager(repo, NewExperienceTable(cfg.Leveling.BaseExperience, cfg.Leveling.Growth))

	srv, err := NewServer(mgr, cfg.Server)
	if err != nil {
		Log("failed to start http server %v", err)
		os.Exit(1)
	}

	postProcessor := NewPostProcessor(ctx, cfg.PostProcessor, mgr)

	go postProcessor.Run()
	srv.Run()
}
