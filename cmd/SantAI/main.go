package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ParthPatel00/SantAI/internal/api"
	"github.com/ParthPatel00/SantAI/internal/flow"
	"github.com/ParthPatel00/SantAI/internal/genai"
	"github.com/ParthPatel00/SantAI/internal/lockfile"
	"github.com/ParthPatel00/SantAI/internal/messaging"
	"github.com/ParthPatel00/SantAI/internal/models"
	"github.com/ParthPatel00/SantAI/internal/payment"
	"github.com/ParthPatel00/SantAI/internal/peer"
	"github.com/ParthPatel00/SantAI/internal/search"
	"github.com/ParthPatel00/SantAI/internal/store"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for SantAI state data
	DefaultStateDir = "/var/lib/santai"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "santai.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping SantAI with configured modules")
	if err := run(ctx, flags); err != nil {
		slog.Error("SantAI failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("SantAI exited successfully")
}

// run wires the modules together and serves until the context is cancelled.
func run(ctx context.Context, flags Flags) error {
	// Only one instance may use a state directory at a time.
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := buildStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	genaiClient, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		return err
	}

	searcher, err := buildSearcher(flags)
	if err != nil {
		return err
	}
	payments := payment.NewService(st, buildPaymentOptions(flags)...)
	coordinator := buildCoordinator(flags, searcher)
	stateManager := flow.NewStoreBasedStateManager(st)
	giftFlow := flow.NewGiftFlow(stateManager, genaiClient, searcher, payments, coordinator)

	// Idle sessions are evicted in the background.
	janitor := flow.NewJanitor(st, flow.DefaultCleanupInterval, flow.DefaultMaxIdle)
	janitor.Start(ctx)

	apiOpts := buildAPIOptions(flags)

	// The Twilio transport is optional: without credentials the HTTP chat
	// endpoint is the only way in.
	if *flags.twilioSID != "" && *flags.twilioToken != "" {
		twilioService, err := messaging.NewTwilioService(
			messaging.WithTwilioAccountSID(*flags.twilioSID),
			messaging.WithTwilioAuthToken(*flags.twilioToken),
			messaging.WithTwilioFromNumber(*flags.twilioFrom),
		)
		if err != nil {
			return err
		}
		if err := twilioService.Start(ctx); err != nil {
			return err
		}
		defer twilioService.Stop()

		respHandler := messaging.NewResponseHandler(twilioService)
		respHandler.SetDefaultAction(func(ctx context.Context, from, responseText string, timestamp int64) (bool, error) {
			if err := st.AddResponse(models.Response{From: from, Body: responseText, Time: timestamp}); err != nil {
				slog.Warn("Failed to record inbound response", "error", err, "from", from)
			}
			reply, err := giftFlow.ProcessResponse(ctx, from, responseText)
			if err != nil {
				return false, err
			}
			if err := twilioService.SendMessage(ctx, from, reply); err != nil {
				return false, err
			}
			if err := st.AddReceipt(models.Receipt{To: from, Status: models.MessageStatusSent, Time: time.Now().Unix()}); err != nil {
				slog.Warn("Failed to record receipt", "error", err, "to", from)
			}
			return true, nil
		})
		respHandler.Start(ctx)

		apiOpts = append(apiOpts, api.WithWebhook(twilioService.WebhookHandler))
		slog.Info("Twilio WhatsApp transport enabled", "from", *flags.twilioFrom)
	} else {
		slog.Info("No Twilio credentials configured, serving HTTP chat only")
	}

	server := api.NewServer(giftFlow, coordinator, payments, st, apiOpts...)
	return server.Run(ctx)
}

// Config holds environment configuration
type Config struct {
	DatabaseURL  string
	StateDir     string
	OpenAIKey    string
	APIAddr      string
	BaseURL      string
	GiftAPIKey   string
	FriendAgents string
	TwilioSID    string
	TwilioToken  string
	TwilioFrom   string
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDSN        *string
	openaiKey    *string
	apiAddr      *string
	baseURL      *string
	giftAPIKey   *string
	friendAgents *string
	twilioSID    *string
	twilioToken  *string
	twilioFrom   *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StateDir:     os.Getenv("SANTAI_STATE_DIR"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		APIAddr:      os.Getenv("API_ADDR"),
		BaseURL:      os.Getenv("BASE_URL"),
		GiftAPIKey:   os.Getenv("GIFT_API_KEY"),
		FriendAgents: os.Getenv("FRIEND_AGENTS"),
		TwilioSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:   os.Getenv("TWILIO_FROM_NUMBER"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No SANTAI_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"SANTAI_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"BASE_URL", config.BaseURL,
		"GIFT_API_KEY_SET", config.GiftAPIKey != "",
		"FRIEND_AGENTS", config.FriendAgents,
		"TWILIO_CONFIGURED", config.TwilioSID != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for SantAI data (overrides $SANTAI_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN, Postgres URL or SQLite path (overrides $DATABASE_URL)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		baseURL:      flag.String("base-url", config.BaseURL, "public base URL for checkout links (overrides $BASE_URL)"),
		giftAPIKey:   flag.String("gift-api-key", config.GiftAPIKey, "product search API key (overrides $GIFT_API_KEY)"),
		friendAgents: flag.String("friend-agents", config.FriendAgents, "friend agent directory, name=url pairs separated by commas (overrides $FRIEND_AGENTS)"),
		twilioSID:    flag.String("twilio-account-sid", config.TwilioSID, "Twilio account SID (overrides $TWILIO_ACCOUNT_SID)"),
		twilioToken:  flag.String("twilio-auth-token", config.TwilioToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)"),
		twilioFrom:   flag.String("twilio-from-number", config.TwilioFrom, "Twilio WhatsApp sender number (overrides $TWILIO_FROM_NUMBER)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"baseURL", *flags.baseURL,
		"giftAPIKeySet", *flags.giftAPIKey != "",
		"friendAgents", *flags.friendAgents)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if !strings.Contains(*flags.dbDSN, "postgres://") && !strings.Contains(*flags.dbDSN, "host=") {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// buildStore constructs the persistent store from the DSN.
func buildStore(flags Flags) (store.Store, error) {
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithSQLiteDSN(*flags.dbDSN))
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildSearcher picks the live product search when an API key is configured,
// otherwise the deterministic catalog.
func buildSearcher(flags Flags) (search.Searcher, error) {
	if *flags.giftAPIKey != "" {
		slog.Debug("Product search API key configured, using live search")
		return search.NewClient(search.WithAPIKey(*flags.giftAPIKey))
	}
	slog.Debug("No product search API key, using deterministic catalog")
	return search.NewCatalogClient(), nil
}

// buildPaymentOptions constructs payment service options
func buildPaymentOptions(flags Flags) []payment.Option {
	var paymentOpts []payment.Option
	if *flags.baseURL != "" {
		paymentOpts = append(paymentOpts, payment.WithBaseURL(*flags.baseURL))
	}
	return paymentOpts
}

// buildCoordinator parses the friend agent directory and creates the peer
// coordinator. Returns nil when no friend agents are configured.
func buildCoordinator(flags Flags, searcher search.Searcher) *peer.Coordinator {
	addresses := parseFriendAgents(*flags.friendAgents)
	if len(addresses) == 0 {
		return nil
	}
	directory := peer.NewDirectory(addresses)
	slog.Info("Friend agents configured", "count", len(addresses), "names", directory.Names())
	return peer.NewCoordinator(directory, peer.NewHTTPSender(), searcher)
}

// parseFriendAgents parses "alice=http://host:8003,bob=http://host:8004"
// into a name-to-address map. Malformed entries are skipped with a warning.
func parseFriendAgents(spec string) map[string]string {
	addresses := make(map[string]string)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, address, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		address = strings.TrimSpace(address)
		if !ok || name == "" || address == "" {
			slog.Warn("Skipping malformed friend agent entry", "entry", entry)
			continue
		}
		addresses[name] = address
	}
	return addresses
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
