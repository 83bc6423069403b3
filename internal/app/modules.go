package app

import (
	"fmt"

	"github.com/garyellow/chatbot-go/internal/bot"
	"github.com/garyellow/chatbot-go/internal/config"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/garyellow/chatbot-go/internal/metrics"
	"github.com/garyellow/chatbot-go/internal/modules/admin"
	"github.com/garyellow/chatbot-go/internal/modules/emoji"
	"github.com/garyellow/chatbot-go/internal/modules/fun"
	"github.com/garyellow/chatbot-go/internal/modules/game"
	"github.com/garyellow/chatbot-go/internal/modules/help"
	"github.com/garyellow/chatbot-go/internal/modules/lookup"
	"github.com/garyellow/chatbot-go/internal/modules/profile"
	"github.com/garyellow/chatbot-go/internal/modules/quotes"
	"github.com/garyellow/chatbot-go/internal/storage"
)

// Deps are the shared services the command modules are built from.
// Handlers only touch them when invoked, so tooling that needs the handler
// names alone may leave DB and Fetcher nil.
type Deps struct {
	DB            *storage.DB
	Fetcher       lookup.Fetcher
	LookupBaseURL string
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
}

// NewModules creates every command module. The help module is also returned
// on its own because its catalog can only be attached after Build.
func NewModules(d Deps) ([]bot.Module, *help.Handler) {
	helpHandler := help.NewHandler()
	return []bot.Module{
		fun.NewHandler(d.Logger, nil),
		quotes.NewHandler(d.DB, d.Logger),
		emoji.NewHandler(d.DB, d.Logger),
		game.NewHandler(d.DB, d.Logger),
		admin.NewHandler(d.DB, d.Logger),
		profile.NewHandler(d.DB, d.Logger),
		lookup.NewHandler(d.LookupBaseURL, d.Fetcher, d.Metrics, d.Logger),
		helpHandler,
	}, helpHandler
}

// BuildTables binds defs to the modules created from d and seals the result.
func BuildTables(defs []config.CommandDefinition, d Deps) (*bot.Tables, error) {
	modules, helpHandler := NewModules(d)
	tables, err := bot.Build(defs, modules...)
	if err != nil {
		return nil, fmt.Errorf("build command tables: %w", err)
	}
	helpHandler.Attach(tables.Registry)
	return tables, nil
}
