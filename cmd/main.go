package main

import (
	"log"

	"negotiation-tutor/internal/app"
	"negotiation-tutor/internal/config"
	"negotiation-tutor/internal/curriculum"
	"negotiation-tutor/internal/platform/logger"
	"negotiation-tutor/internal/service/agent"
	"negotiation-tutor/internal/service/evaluation"
	"negotiation-tutor/internal/service/generator"
	"negotiation-tutor/internal/service/practice"
	"negotiation-tutor/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg, err := logger.New(cfg.LogMode, cfg.LogSalt)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	levels, err := curriculum.Default()
	if err != nil {
		lg.Error("load curriculum", "error", err)
		return
	}

	llm := agent.New(cfg.LLM)
	keys := config.EnvKeys{}
	store := session.NewMemoryStore()
	svc := practice.New(practice.Deps{
		Sections:  levels,
		Scenarios: generator.New(llm, keys, lg.With("component", "generator")),
		Collab:    llm,
		Evaluator: evaluation.New(llm, keys, store, lg.With("component", "evaluation")),
		Store:     store,
		Keys:      keys,
		Log:       lg.With("component", "practice"),
	})

	server := app.NewServer(cfg.AppName, levels, svc, lg)
	lg.Info("listening", "port", cfg.Port, "model", cfg.LLM.Model, "azure", cfg.LLM.Azure())
	if err := server.Listen(":" + cfg.Port); err != nil {
		lg.Error("server stopped", "error", err)
	}
}
