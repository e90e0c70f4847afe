package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"git.wyat.me/zwagit/repo"
)

func newInitCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty repository",
		Long:  `Create the repository directory with empty objects/ and refs/ directories.`,
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.env(cmd)
			if err != nil {
				return err
			}

			err = repo.Init(cfg.Dir)
			if errors.Is(err, repo.ErrAlreadyInitialized) {
				fmt.Fprintln(cmd.OutOrStdout(), "Repository already initialized.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty zwagit repository in %s/\n", cfg.Dir)
			return nil
		},
	}
}
