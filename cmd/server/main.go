// Package main provides the chat bot server entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/garyellow/chatbot-go/internal/app"
	"github.com/garyellow/chatbot-go/internal/buildinfo"
	"github.com/garyellow/chatbot-go/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	application, err := app.Initialize(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize %s: %v\n", buildinfo.String(), err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
