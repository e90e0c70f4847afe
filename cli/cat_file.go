package cli

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"git.wyat.me/zwagit/object"
	"git.wyat.me/zwagit/store"
)

func newCatFileCommand(g *globalFlags) *cobra.Command {
	var pretty, raw, kind, size, exists, human bool

	cmd := &cobra.Command{
		Use:   "cat-file (-p | --raw | -t | -s | -e) <object>",
		Short: "Print an object's content, envelope, kind or size",
		Long: `Look up an object by id.

  -p      print the decoded content
  --raw   print the stored envelope bytes
  -t      print the object kind
  -s      print the content size in bytes
  -e      exit 0 if the object exists, 6 otherwise`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, set := range []bool{pretty, raw, kind, size, exists} {
				if set {
					modes++
				}
			}
			if modes != 1 {
				return usageError{errors.New("exactly one of -p, --raw, -t, -s, -e is required")}
			}
			id := args[0]

			r, _, err := g.openRepo(cmd)
			if err != nil {
				return err
			}
			defer r.Close()

			if exists {
				ok, err := r.Objects.Exists(id)
				if err != nil {
					return err
				}
				if !ok {
					return store.NotFound(id)
				}
				return nil
			}

			envelope, err := r.Objects.Get(id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				_, err = out.Write(envelope)
				return err
			}

			obj, err := object.Decode(envelope)
			if err != nil {
				return fmt.Errorf("object %s: %w", id, err)
			}
			switch {
			case pretty:
				_, err = out.Write(obj.Data)
			case kind:
				_, err = fmt.Fprintln(out, obj.Kind)
			case size && human:
				_, err = fmt.Fprintln(out, humanize.IBytes(uint64(len(obj.Data))))
			case size:
				_, err = fmt.Fprintln(out, len(obj.Data))
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "print decoded content")
	cmd.Flags().BoolVar(&raw, "raw", false, "print raw envelope bytes")
	cmd.Flags().BoolVarP(&kind, "type", "t", false, "print object kind")
	cmd.Flags().BoolVarP(&size, "size", "s", false, "print content size")
	cmd.Flags().BoolVarP(&exists, "exists", "e", false, "check whether the object exists")
	cmd.Flags().BoolVarP(&human, "human-readable", "H", false, "with -s, print a human-readable size")

	return cmd
}
