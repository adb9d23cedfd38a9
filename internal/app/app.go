package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jkoh/wealthtower/internal/cache"
	"github.com/jkoh/wealthtower/internal/clients/gsheet"
	"github.com/jkoh/wealthtower/internal/clients/yahoo"
	"github.com/jkoh/wealthtower/internal/common"
	"github.com/jkoh/wealthtower/internal/interfaces"
	"github.com/jkoh/wealthtower/internal/models"
	"github.com/jkoh/wealthtower/internal/services/ledger"
	"github.com/jkoh/wealthtower/internal/services/quote"
	"github.com/jkoh/wealthtower/internal/services/valuation"
	"github.com/jkoh/wealthtower/internal/storage"
)

// App holds all initialized clients, services, and storage. It is the
// shared core used by cmd/wealthtower-server and the server package.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	SheetClient      interfaces.TableClient
	MarketClient     interfaces.MarketDataClient
	QuoteService     interfaces.QuoteService
	ValuationService interfaces.ValuationService
	LedgerService    interfaces.LedgerService
	StartupTime      time.Time

	caches cache.Group
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, clients, and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	// Load configuration - check provided path, WEALTHTOWER_CONFIG, then
	// binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("WEALTHTOWER_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "wealthtower.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/wealthtower.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if config.Clients.Sheets.SheetID == "" {
		logger.Warn().Msg("Sheet ID not configured - holdings and history reads will be unavailable")
	}
	if config.Clients.Sheets.WebhookURL == "" {
		logger.Warn().Msg("Webhook URL not configured - history persistence will park snapshots locally")
	}

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		StartupTime: startupStart,
	}

	// Caches are created here and injected so a force refresh can clear
	// every layer in one pass.
	tables := cache.New[string, gsheet.Table](config.Clients.Sheets.GetCacheTTL())
	quotes := cache.New[string, models.PriceQuote](config.Clients.Yahoo.GetCacheTTL())
	a.caches.Register(tables)
	a.caches.Register(quotes)

	sheetClient := gsheet.NewClient(config.Clients.Sheets.SheetID,
		gsheet.WithWebhookURL(config.Clients.Sheets.WebhookURL),
		gsheet.WithSheets(config.Clients.Sheets.HoldingsSheet, config.Clients.Sheets.HistorySheet),
		gsheet.WithLogger(logger),
		gsheet.WithRateLimit(config.Clients.Sheets.RateLimit),
		gsheet.WithTimeout(config.Clients.Sheets.GetTimeout()),
		gsheet.WithCache(tables),
	)

	marketClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
	)

	quoteService := quote.NewService(marketClient, quotes, logger)
	valuationService := valuation.NewService(sheetClient, quoteService, config.Clients.Sheets.HoldingsSheet, config.Valuation, logger)
	ledgerService := ledger.NewService(sheetClient, valuationService, storageManager, config.Clients.Sheets.HistorySheet, logger)

	a.SheetClient = sheetClient
	a.MarketClient = marketClient
	a.QuoteService = quoteService
	a.ValuationService = valuationService
	a.LedgerService = ledgerService

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// ForceRefresh drops every cache layer at once so the next read cycle
// hits the sheet and the quote API again.
func (a *App) ForceRefresh() {
	a.caches.InvalidateAll()
	a.Logger.Info().Msg("Caches invalidated")
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
