package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"git.wyat.me/zwagit/bench"
	"git.wyat.me/zwagit/config"
	"git.wyat.me/zwagit/store/badger"
	"git.wyat.me/zwagit/store/loose"
	ministore "git.wyat.me/zwagit/store/minio"
	"git.wyat.me/zwagit/store/pebble"
	"git.wyat.me/zwagit/store/sqlite"
)

func newBenchCommand(g *globalFlags) *cobra.Command {
	var iterations int
	var small bool

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark every object backend",
		Long: `Run Put, Get, Exists and concurrent Put against throwaway instances of
each embedded backend, plus MinIO when it is configured, and print the
results as JSON.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.env(cmd)
			if err != nil {
				return err
			}
			sizes := bench.Sizes
			if small {
				sizes = sizes[:1]
			}

			run, err := runBench(cfg, logger, sizes, iterations)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		},
	}

	cmd.Flags().IntVar(&iterations, "iterations", bench.DefaultIterations, "timed calls per operation and size")
	cmd.Flags().BoolVar(&small, "small", false, "only benchmark the smallest object size")

	return cmd
}

func runBench(cfg *config.Config, logger *zap.Logger, sizes []bench.Size, iterations int) (bench.RunResult, error) {
	run := bench.RunResult{Timestamp: time.Now()}

	tmp, err := os.MkdirTemp("", "zwagit-bench-*")
	if err != nil {
		return run, err
	}
	defer os.RemoveAll(tmp)

	looseDir := filepath.Join(tmp, "loose")
	if err := os.Mkdir(looseDir, 0o755); err != nil {
		return run, err
	}
	run.Backends = append(run.Backends, bench.Run("Loose", loose.New(looseDir, logger), sizes, iterations))

	sqliteStore, err := sqlite.New(filepath.Join(tmp, "sqlite.db"))
	if err != nil {
		return run, err
	}
	defer sqliteStore.Close()
	run.Backends = append(run.Backends, bench.Run("SQLite", sqliteStore, sizes, iterations))

	badgerStore, err := badger.New(filepath.Join(tmp, "badger"))
	if err != nil {
		return run, err
	}
	defer badgerStore.Close()
	run.Backends = append(run.Backends, bench.Run("BadgerDB", badgerStore, sizes, iterations))

	pebbleStore, err := pebble.New(filepath.Join(tmp, "pebble"), logger)
	if err != nil {
		return run, err
	}
	defer pebbleStore.Close()
	run.Backends = append(run.Backends, bench.Run("Pebble", pebbleStore, sizes, iterations))

	if m := cfg.Minio; m.Configured() {
		logger.Info("benchmarking minio", zap.String("endpoint", m.Endpoint), zap.String("bucket", m.Bucket))
		minioStore, err := ministore.New(m.Endpoint, m.AccessKey, m.SecretKey, m.Bucket, m.UseSSL)
		if err != nil {
			run.Backends = append(run.Backends, bench.BackendResult{Backend: "MinIO/S3", Error: err.Error()})
		} else {
			minioStore = minioStore.WithPrefix(fmt.Sprintf("zwagit-bench/%d", run.Timestamp.UnixNano()))
			run.Backends = append(run.Backends, bench.Run("MinIO/S3", minioStore, sizes, iterations))
			if err := minioStore.Flush(); err != nil {
				logger.Warn("flush minio bucket", zap.Error(err))
			}
		}
	}

	return run, nil
}
