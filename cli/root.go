package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"git.wyat.me/zwagit/config"
	"git.wyat.me/zwagit/repo"
)

var (
	version = "dev"
	commit  = "none"
)

type globalFlags struct {
	configFile string
	dir        string
	backend    string
	verbose    bool
}

func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "zwagit",
		Short: "A mini git-like version control system",
		Long: `zwagit stores file contents as content-addressed objects.

Objects are written as "<kind> <size>\0<content>" envelopes and named by
the SHA-1 of that envelope.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	rootCmd.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "config file (optional)")
	rootCmd.PersistentFlags().StringVar(&g.dir, "dir", "", "repository directory (default .zwagit)")
	rootCmd.PersistentFlags().StringVar(&g.backend, "backend", "", "object backend: loose, badger, sqlite, pebble, minio")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newInitCommand(g))
	rootCmd.AddCommand(newHashObjectCommand(g))
	rootCmd.AddCommand(newCatFileCommand(g))
	rootCmd.AddCommand(newBenchCommand(g))

	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "zwagit: %v\n", err)
		return ExitCode(err)
	}
	return ExitOK
}

// env loads configuration, applies command-line overrides and builds the
// logger every command shares.
func (g *globalFlags) env(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, nil, err
	}
	if g.dir != "" {
		cfg.Dir = g.dir
	}
	if g.backend != "" {
		cfg.Backend = g.backend
	}
	if g.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, usageError{fmt.Errorf("invalid configuration: %w", err)}
	}

	logger, err := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (g *globalFlags) openRepo(cmd *cobra.Command) (*repo.Repository, *zap.Logger, error) {
	cfg, logger, err := g.env(cmd)
	if err != nil {
		return nil, nil, err
	}
	r, err := repo.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return r, logger, nil
}

func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
