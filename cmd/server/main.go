package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"agentd/internal/agent"
	"agentd/internal/agents"
	"agentd/internal/api"
	"agentd/internal/config"
	"agentd/internal/db"
	"agentd/internal/executor"
	"agentd/internal/memory"
	"agentd/internal/orchestrator"
	redisdb "agentd/internal/redis"
)

func main() {
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	gormDB, err := db.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	rdb := redisdb.NewClient(cfg)

	// Memory tiers
	index, err := memory.NewQdrantIndex(cfg.Qdrant.URL, cfg.Qdrant.Collection, cfg.Qdrant.APIKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Qdrant init error: %v\n", err)
		os.Exit(1)
	}
	embedder := memory.NewHTTPEmbedder(cfg.Embedding.URL)
	durable := memory.NewGormStore(gormDB)
	mirror := memory.NewRedisMirror(rdb)
	memSvc := memory.NewService(cfg.Memory, embedder, index, durable, mirror)

	consolidator := memory.NewConsolidator(memSvc, cfg.Memory)
	go consolidator.Start()
	log.Printf("[Main] Consolidation worker started (interval: %ds)", cfg.Memory.ConsolidationIntervalSecs)

	// Agent registry is populated once at startup, then frozen.
	registry := agent.NewRegistry()
	if err := agents.RegisterBuiltins(registry); err != nil {
		fmt.Fprintf(os.Stderr, "Agent registration error: %v\n", err)
		os.Exit(1)
	}
	registry.Freeze()
	log.Printf("[Main] Registered %d agents", registry.Count())

	exec := executor.New(cfg.Orchestrator.MaxWorkers, cfg.SubmitTimeout())
	orch := orchestrator.New(registry, exec, memSvc, cfg.DefaultDeadline(), orchestrator.Options{
		Cache:           orchestrator.NewRedisCache(rdb, time.Duration(cfg.Orchestrator.ResultCacheTTLSecs)*time.Second),
		EventBufferSize: cfg.Orchestrator.EventBufferSize,
	})

	r := api.SetupRouter(api.Deps{
		Cfg:          cfg,
		Redis:        rdb,
		Orch:         orch,
		Memory:       memSvc,
		Consolidator: consolidator,
	})
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Starting server on %s%s\n", addr, cfg.Server.Subpath)
	if err := r.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
