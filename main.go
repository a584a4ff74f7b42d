package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"negotiation-tutor/internal/config"
	"negotiation-tutor/internal/curriculum"
	"negotiation-tutor/internal/platform/logger"
	"negotiation-tutor/internal/service/agent"
	"negotiation-tutor/internal/service/document"
	"negotiation-tutor/internal/service/generator"
	"negotiation-tutor/internal/service/render"
)

// Generates one scenario for a section and prints it with its prompts.
func main() {
	chapter := flag.String("chapter", "chapter-2", "chapter id")
	section := flag.String("section", "chapter-2-section-1", "section id")
	level := flag.String("difficulty", "balanced", "friendly, balanced, tough or shrewd")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	levels, err := curriculum.Default()
	if err != nil {
		log.Fatalf("load curriculum: %v", err)
	}
	sec, err := levels.Section(*chapter, *section)
	if err != nil {
		log.Fatalf("section: %v", err)
	}

	gen := generator.New(agent.New(cfg.LLM), config.EnvKeys{}, logger.Nop())
	sc, profile, err := gen.GenerateForSection(context.Background(), sec, *level)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}
	raw, err := sc.MarshalJSON()
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	prompts := render.FromSection(sec, sc, profile)

	fmt.Println("--- Scenario ---")
	fmt.Println(string(raw))
	fmt.Println("--- Opening ---")
	fmt.Println(document.OpeningMessage(sec.ID, sc))
	fmt.Println("--- Conversation prompt ---")
	fmt.Println(prompts.Conversation)
	fmt.Println("--- Evaluation prompt ---")
	fmt.Println(prompts.Evaluation)
}
