package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacentio/dimensions/dimension"
)

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		typeID string
	)

	cmd := &cobra.Command{
		Use:   "resolve [dimension-id...]",
		Short: "Resolve the dimensions a user is bound to, or dimensions by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (userID == "") == (len(args) == 0) {
				return fmt.Errorf("pass either --user or dimension ids")
			}
			if len(args) > 0 && typeID == "" {
				return fmt.Errorf("--type is required when resolving by id")
			}

			a, err := opts.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var dims []dimension.DynamicDimension
			if userID != "" {
				dims, err = a.Service.ResolveDimensionsForUser(cmd.Context(), userID)
			} else {
				dims, err = a.Service.ResolveDimensionsByID(cmd.Context(), typeID, args)
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), opts.output, dims)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id whose bound dimensions and descendants to resolve")
	cmd.Flags().StringVar(&typeID, "type", "", "Dimension type id, required with ids")
	return cmd
}
