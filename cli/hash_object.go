package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"git.wyat.me/zwagit/object"
	"git.wyat.me/zwagit/store"
)

func newHashObjectCommand(g *globalFlags) *cobra.Command {
	var kind string
	var dryRun bool
	var write bool
	var stdin bool

	cmd := &cobra.Command{
		Use:   "hash-object [file]",
		Short: "Store a file as an object and print its id",
		Long: `Read a file (or standard input with --stdin), store it as an object of
the given kind and print the object id. With --dry-run the id is computed
but nothing is written.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if stdin {
				return exactArgs(0)(cmd, args)
			}
			return exactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if write && dryRun {
				return usageError{errors.New("-w and --dry-run are mutually exclusive")}
			}
			var data []byte
			var err error
			if stdin {
				data, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			} else {
				data, err = os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read %s: %w", args[0], err)
				}
			}
			obj := &object.Object{Kind: object.Kind(kind), Data: data}

			if dryRun {
				_, id, err := store.Seal(obj)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}

			r, logger, err := g.openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			id, err := r.Objects.Put(obj)
			if err != nil {
				return err
			}
			logger.Debug("stored object", zap.String("id", id), zap.String("kind", kind), zap.Int("size", len(data)))
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", string(object.KindBlob), "object kind")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "compute the id without writing")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the object (the default, kept for git compatibility)")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "read content from standard input")

	return cmd
}
