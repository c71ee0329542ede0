package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/ratebook/internal/adapters/codec"
	"github.com/okian/ratebook/pkg/logger"
)

func (a *app) newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a ratings document against the schema",
		Long: `Validates FILE against the domain's JSON Schema and checks that no
(owner, item) pair is rated twice. Every problem is printed; the exit status
is non-zero when any is found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]
			out := cmd.OutOrStdout()

			c, err := a.codec()
			if err != nil {
				return err
			}
			doc, err := os.ReadFile(path)
			if err != nil {
				a.log.Error(ctx, "failed to read document", logger.String("path", path), logger.Error(err))
				return err
			}

			ratings, err := c.ValidateAndDecode(doc)
			var se *codec.SchemaError
			var de *codec.DecodeError
			switch {
			case errors.As(err, &se):
				for _, v := range se.Violations {
					fmt.Fprintf(out, "%s: %s\n", path, v)
				}
				return err
			case errors.As(err, &de):
				if len(de.Duplicates) == 0 {
					fmt.Fprintf(out, "%s: %s\n", path, de.Reason)
				}
				for _, k := range de.Duplicates {
					fmt.Fprintf(out, "%s: duplicate rating for %s\n", path, k)
				}
				return err
			case err != nil:
				return err
			}
			fmt.Fprintf(out, "%s: ok (%d ratings)\n", path, len(ratings))
			return nil
		},
	}
}
