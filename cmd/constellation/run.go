package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"constellation/internal/config"
	"constellation/internal/generate"
	"constellation/internal/llm"
	llmclient "constellation/internal/llm/client"
	"constellation/internal/output"
	"constellation/internal/scan"
	"constellation/internal/traverse"
)

const configFileHint = config.FileName + " (default ./" + config.FileName + ")"

type runOptions struct {
	configPath string
	out        string
	store      string
	dryRun     bool
	quiet      bool
}

func (o *runOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.out, "out", "", "output root directory (fs store)")
	cmd.Flags().StringVar(&o.store, "store", "", "output store: fs, memory, s3 or postgres")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "keep documents in memory only")
}

func runCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [root]",
		Short: "Analyze a project tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configPath, _ = cmd.Flags().GetString("config")
			opts.quiet, _ = cmd.Flags().GetBool("quiet")
			return runAnalysis(cmd, opts, args)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runAnalysis(cmd *cobra.Command, opts *runOptions, args []string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.quiet)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	engine, closeFn, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Printf("close: %v", err)
		}
	}()
	if cfg.PromptLogDir != "" {
		ctx = llm.WithHook(ctx, &llm.PromptSaver{Dir: cfg.PromptLogDir})
	}

	rep, err := engine.Run(ctx, root)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), rep, output.Location(engine.Writer.Store))
	return nil
}

func loadConfig(opts *runOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.out != "" {
		cfg.Output.Dir = opts.out
	}
	if opts.store != "" {
		cfg.Output.Store = strings.ToLower(strings.TrimSpace(opts.store))
	}
	if opts.dryRun {
		cfg.Output.Store = output.KindMemory
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveRoot returns the analyzed tree: the argument if given, otherwise the
// parent of the working directory (the tool usually lives inside the project).
func resolveRoot(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return filepath.Abs(args[0])
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}
	return filepath.Dir(wd), nil
}

func newLogger(w io.Writer, quiet bool) *log.Logger {
	if quiet {
		w = io.Discard
	}
	return log.New(w, "", log.LstdFlags)
}

// buildEngine wires configuration into a traversal engine. The returned
// function releases the LLM client and the store.
func buildEngine(ctx context.Context, cfg *config.Config, logger *log.Logger) (*traverse.Engine, func() error, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	gen, client, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		closeStore(store)
		return nil, nil, err
	}

	engine := &traverse.Engine{
		Scan: scan.Options{
			Extensions: cfg.SourceFileExtensions,
			Ignore:     cfg.Ignore,
			Logger:     logger,
		},
		Generator:       gen,
		Writer:          output.NewWriter(store, cfg.Output.SummaryFileName, cfg.Output.DiagramFileName),
		DiagramFileName: cfg.Output.DiagramFileName,
		Exclude:         localOutputDirs(cfg),
		Logger:          logger,
	}
	closeFn := func() error {
		var err error
		if client != nil {
			err = client.Close()
		}
		closeStore(store)
		return err
	}
	return engine, closeFn, nil
}

func newGenerator(ctx context.Context, cfg *config.Config, logger *log.Logger) (generate.Generator, llmclient.LLMClient, error) {
	inner, err := llmclient.New(ctx, llmclient.Options{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Settings: llmclient.Settings{
			MaxTokens:   cfg.LLM.Settings.MaxTokens,
			Temperature: cfg.Temperature(),
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("llm client: %w", err)
	}
	client := llm.Wrap(inner,
		llm.WithHooks(),
		llm.Retry(cfg.LLM.Retries, cfg.RetryDelay()),
		llm.WithLogging(logger),
		llm.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
	)
	return &generate.LLMGenerator{
		Client:          client,
		MaxContentChars: cfg.MaxContentChars,
		DiagramFileName: cfg.Output.DiagramFileName,
		Logger:          logger,
	}, client, nil
}

// localOutputDirs lists the directories this run writes into on disk; the
// engine never analyzes them, so reruns stay idempotent.
func localOutputDirs(cfg *config.Config) []string {
	var dirs []string
	if cfg.Output.Store == "" || cfg.Output.Store == output.KindFS {
		dirs = append(dirs, cfg.Output.Dir)
	}
	if cfg.PromptLogDir != "" {
		dirs = append(dirs, cfg.PromptLogDir)
	}
	return dirs
}

func openStore(cfg *config.Config) (output.Store, error) {
	store, err := output.Open(output.Options{
		Kind: cfg.Output.Store,
		Dir:  cfg.Output.Dir,
		S3: output.S3Config{
			Endpoint:  cfg.Output.S3.Endpoint,
			Region:    cfg.Output.S3.Region,
			AccessKey: cfg.Output.S3.AccessKey,
			SecretKey: cfg.Output.S3.SecretKey,
			Bucket:    cfg.Output.S3.Bucket,
			Prefix:    cfg.Output.S3.Prefix,
			UseSSL:    cfg.Output.S3.UseSSL,
		},
		PostgresDSN: cfg.Output.Postgres.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Output.Store, err)
	}
	return store, nil
}

func closeStore(s output.Store) {
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}
