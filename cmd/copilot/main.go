// Package main is the innovation co-pilot CLI entry point.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/copilot/internal/catalog"
	"github.com/hyperjump/copilot/internal/cli"
	"github.com/hyperjump/copilot/internal/config"
	"github.com/hyperjump/copilot/internal/embedding"
	"github.com/hyperjump/copilot/internal/engine"
	"github.com/hyperjump/copilot/internal/indexer"
	"github.com/hyperjump/copilot/internal/ledger"
	"github.com/hyperjump/copilot/internal/llm"
	"github.com/hyperjump/copilot/internal/models"
	"github.com/hyperjump/copilot/internal/retrieval"
	"github.com/hyperjump/copilot/internal/server"
	"github.com/hyperjump/copilot/internal/storage"
	"github.com/hyperjump/copilot/internal/synth"
	"github.com/hyperjump/copilot/internal/vector"
	"github.com/hyperjump/copilot/internal/watcher"
	"github.com/hyperjump/copilot/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = engine.Version

const (
	defaultConfigPath = "/usr/local/etc/copilot/config.yaml"
	defaultServerURL  = "http://localhost:8001"
)

// loadConfig loads config from path. When path is the default and does not exist,
// config.yaml in the current directory is tried, then built-in defaults.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	candidates := []string{defaultConfigPath}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append([]string{filepath.Join(cwd, "config.yaml")}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			cfg, err := config.Load(p)
			if err != nil {
				return nil, "", err
			}
			return cfg, p, nil
		}
	}
	return config.Default(), "", nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "index":
		runIndex()
	case "status":
		runStatus()
	case "generate":
		runGenerate()
	case "submissions":
		runSubmissions()
	case "version", "--version", "-v":
		fmt.Printf("copilot version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// mustLoad loads config and builds a logger, exiting on failure.
func mustLoad(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = cfg.Debug || debugFlag
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	watch := fs.Bool("watch", false, "re-index when the catalog file changes (overrides catalog.watch)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := mustLoad(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The server starts without a catalog; requests answer 503 until one is indexed.
	if n, err := components.Engine.EnsureIndexed(ctx); err != nil {
		logger.Error("initial indexing failed", zap.String("catalog", cfg.Catalog.Path), zap.Error(err))
	} else {
		logger.Info("catalog ready", zap.Int("technologies", n))
	}

	if cfg.Catalog.Watch || *watch {
		w := watcher.NewWatcher(cfg.Catalog.Path, func(path string) {
			if n, err := components.Engine.EnsureIndexed(ctx); err != nil {
				logger.Error("re-index after catalog change failed", zap.String("path", path), zap.Error(err))
			} else {
				logger.Info("catalog re-indexed", zap.Int("technologies", n))
			}
		}, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Warn("catalog watch disabled", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	srv := server.NewServer(components.Engine, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	force := fs.Bool("force", false, "rebuild even when the catalog is unchanged")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger := mustLoad(*configPath, *debug)
	defer logger.Sync()
	if fs.NArg() > 0 {
		cfg.Catalog.Path = fs.Arg(0)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	n, err := components.Engine.Reindex(context.Background(), *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d technologies from %s\n", n, cfg.Catalog.Path)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = inspect the local catalog and index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := mustFormat(*outputFormat)
	var status *engine.DatabaseStatus
	if *serverURL != "" {
		st, err := cli.NewClient(*serverURL, 30*time.Second).DatabaseStatus(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = st
	} else {
		cfg, _, logger := mustLoad(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		if _, err := components.Engine.EnsureIndexed(ctx); err != nil {
			logger.Warn("catalog not indexed", zap.Error(err))
		}
		st := components.Engine.DatabaseStatus(ctx)
		status = &st
	}
	if err := cli.WriteDatabaseStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ", ") }

func (s *stringList) Set(v string) error {
	if v = strings.TrimSpace(v); v != "" {
		*s = append(*s, v)
	}
	return nil
}

// optionalFlags records which optional challenge fields were given on the command line.
type optionalFlags struct {
	sector    string
	baseline  float64
	reduction float64
	timeline  int
	budget    string
	set       map[string]bool
}

// buildChallenge assembles a challenge, leaving unset optional fields absent.
func buildChallenge(description string, opt optionalFlags, constraints []string) models.ChallengeInput {
	c := models.ChallengeInput{
		Description: strings.TrimSpace(description),
		Constraints: append([]string{}, constraints...),
	}
	if opt.set["sector"] {
		c.IndustrySector = &opt.sector
	}
	if opt.set["baseline"] {
		c.EmissionsBaseline = &opt.baseline
	}
	if opt.set["reduction"] {
		c.TargetReduction = &opt.reduction
	}
	if opt.set["timeline"] {
		c.TimelineMonths = &opt.timeline
	}
	if opt.set["budget"] {
		c.BudgetRange = &opt.budget
	}
	return c
}

// argsReorder moves flags that follow positional arguments to the front so
// flag.Parse sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runGenerate() {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	timeout := fs.Duration("timeout", 10*time.Minute, "request timeout")
	var opt optionalFlags
	var constraints stringList
	fs.StringVar(&opt.sector, "sector", "", "industry sector")
	fs.Float64Var(&opt.baseline, "baseline", 0, "emissions baseline (tCO2e/year)")
	fs.Float64Var(&opt.reduction, "reduction", 0, "target reduction (%)")
	fs.IntVar(&opt.timeline, "timeline", 0, "timeline (months)")
	fs.StringVar(&opt.budget, "budget", "", "budget range")
	fs.Var(&constraints, "constraint", "constraint (repeatable)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: copilot generate [flags] <challenge description>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format := mustFormat(*outputFormat)
	description := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(description) == "" || description == "-" {
		description = readStdin()
	}
	if strings.TrimSpace(description) == "" {
		fs.Usage()
		os.Exit(1)
	}
	opt.set = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { opt.set[f.Name] = true })
	challenge := buildChallenge(description, opt, constraints)

	res, err := cli.NewClient(*serverURL, *timeout).Generate(context.Background(), challenge)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generation failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteGenerationResult(os.Stdout, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func readStdin() string {
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return ""
	}
	var b strings.Builder
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		b.WriteString(sc.Text())
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func runSubmissions() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: copilot submissions <list|pending|show|review> [flags]")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("submissions "+sub, flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	feedback := fs.String("feedback", "", "review feedback")
	_ = fs.Parse(argsReorder(os.Args[3:]))

	format := mustFormat(*outputFormat)
	client := cli.NewClient(*serverURL, 30*time.Second)
	ctx := context.Background()

	var err error
	switch sub {
	case "list":
		var list *models.SubmissionList
		if list, err = client.ListSubmissions(ctx); err == nil {
			err = cli.WriteSubmissionList(os.Stdout, list, format)
		}
	case "pending":
		var list *models.PendingList
		if list, err = client.ListPending(ctx); err == nil {
			err = cli.WritePendingList(os.Stdout, list, format)
		}
	case "show":
		if fs.NArg() != 1 {
			fmt.Println("Usage: copilot submissions show <id>")
			os.Exit(1)
		}
		var s *models.Submission
		if s, err = client.GetSubmission(ctx, fs.Arg(0)); err == nil {
			err = cli.WriteSubmission(os.Stdout, s, format)
		}
	case "review":
		if fs.NArg() != 2 {
			fmt.Println("Usage: copilot submissions review [--feedback text] <id> <approve|reject>")
			os.Exit(1)
		}
		var fb *string
		if *feedback != "" {
			fb = feedback
		}
		var res *cli.ReviewResult
		if res, err = client.Review(ctx, fs.Arg(0), fs.Arg(1), fb); err == nil {
			fmt.Println(res.Message)
			err = cli.WriteSubmission(os.Stdout, &res.Submission, format)
		}
	default:
		fmt.Printf("Unknown submissions command: %s\n", sub)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
}

func mustFormat(s string) cli.OutputFormat {
	f, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return f
}

// Components holds initialized services.
type Components struct {
	Embedder embedding.Embedder
	Service  vector.Service
	Storage  storage.SubmissionStore
	Engine   *engine.Engine
}

func (c *Components) Close() {
	if c.Service != nil {
		_ = c.Service.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	generator, err := llm.NewOllamaGenerator(cfg.LLM.Host, cfg.LLM.Model, cfg.LLM.Timeout, logger)
	if err != nil {
		return nil, err
	}

	collection := cfg.Catalog.Collection
	provider := cfg.Embedding.Provider
	if provider == embedding.ProviderOllama && cfg.VectorStore.Type != string(vector.ServiceTypeBleve) {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := generator.Ping(pingCtx)
		cancel()
		if err != nil {
			// Hash vectors are not comparable with model vectors, so they get their own collection.
			logger.Warn("ollama unreachable, falling back to hash embeddings",
				zap.String("host", cfg.LLM.Host), zap.Error(err))
			provider = embedding.ProviderHash
			collection += "_" + embedding.ProviderHash
		}
	}

	if cfg.VectorStore.Type != string(vector.ServiceTypeBleve) {
		c.Embedder, err = embedding.New(embedding.Options{
			Provider:    provider,
			Model:       cfg.Embedding.Model,
			Host:        cfg.LLM.Host,
			Dimensions:  cfg.Embedding.Dimensions,
			CacheSize:   cfg.Embedding.CacheSize,
			Concurrency: cfg.Embedding.Concurrency,
			Timeout:     cfg.LLM.Timeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
	}

	c.Service, err = vector.NewService(vector.ServiceOptions{
		Type:           cfg.VectorStore.Type,
		Path:           cfg.VectorStore.Path,
		QdrantHost:     cfg.VectorStore.QdrantHost,
		QdrantPort:     cfg.VectorStore.QdrantPort,
		LexicalWeight:  cfg.VectorStore.LexicalWeight,
		SemanticWeight: cfg.VectorStore.SemanticWeight,
		Embedder:       c.Embedder,
		Logger:         logger,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	logger.Info("vector store initialized",
		zap.String("type", cfg.VectorStore.Type),
		zap.String("collection", collection),
		zap.String("embedding_provider", provider))

	ledgerOpts := []ledger.Option{ledger.WithLogger(logger)}
	if cfg.Storage.DatabasePath != "" {
		db, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		c.Storage = db
		ledgerOpts = append(ledgerOpts, ledger.WithStore(db))
	}
	led := ledger.New(ledgerOpts...)
	if c.Storage != nil {
		n, err := led.Restore(context.Background())
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to restore submissions: %w", err)
		}
		logger.Info("submissions restored", zap.Int("count", n))
	}

	store := catalog.NewStore()
	idxOpts := []indexer.IndexerOption{indexer.WithLogger(logger)}
	if cfg.Catalog.Sheet != "" {
		idxOpts = append(idxOpts, indexer.WithSheet(cfg.Catalog.Sheet))
	}
	c.Engine = engine.New(engine.Deps{
		Store:     store,
		Indexer:   indexer.NewIndexer(store, c.Service, collection, cfg.Catalog.MetadataPath, idxOpts...),
		Retriever: retrieval.NewRetriever(store, c.Service, collection, logger),
		Synthesizer: synth.New(generator, llm.Options{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			TopP:        cfg.LLM.TopP,
		}, cfg.Retrieval.MaxPromptCandidates, logger),
		Ledger:    led,
		Generator: generator,
		Service:   c.Service,
	}, engine.Paths{
		Catalog:     cfg.Catalog.Path,
		Collection:  collection,
		VectorStore: cfg.VectorStore.Path,
		Database:    cfg.Storage.DatabasePath,
	}, cfg.Retrieval.TopK, logger)
	return c, nil
}

func printUsage() {
	fmt.Println(`copilot - NZTC innovation co-pilot

Usage:
  copilot server [flags]                      Start the HTTP server
  copilot index [flags] [catalog]             Index the technology catalog
  copilot status [flags]                      Show catalog and index status
  copilot generate [flags] <description>      Generate solutions for a challenge
  copilot submissions list|pending [flags]    List submissions
  copilot submissions show <id>               Show one submission
  copilot submissions review <id> <action>    Approve or reject a submission
  copilot version                             Show version
  copilot help                                Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/copilot/config.yaml, then ./config.yaml)
  --debug            Enable debug logging
  --watch            Re-index when the catalog file changes

Index Flags:
  --config string    Config file path
  --force            Rebuild even when the catalog is unchanged

Status Flags:
  --server string    Server URL (default: http://localhost:8001). Use --server "" to inspect locally.
  --output string    Output format: text or json (default: text)

Generate Flags:
  --server string         Server URL (default: http://localhost:8001)
  --sector string         Industry sector
  --baseline float        Emissions baseline (tCO2e/year)
  --reduction float       Target reduction (%)
  --timeline int          Timeline (months)
  --budget string         Budget range
  --constraint string     Constraint (repeatable)
  --output string         Output format: text or json

Environment:
  OLLAMA_HOST, COPILOT_CATALOG_PATH, QDRANT_HOST (a .env file is loaded if present)

Examples:
  copilot server --watch
  copilot index --force ./data/technology_database.xlsx
  copilot generate --sector "Oil & Gas" --reduction 30 --constraint offshore "Reduce flaring on an FPSO"
  copilot submissions pending
  copilot submissions review --feedback "Pilot in Q3" 3f2c... approve`)
}
