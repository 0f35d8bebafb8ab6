package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jacentio/dimensions/dimension"
	"github.com/jacentio/dimensions/internal/shard"
)

// fixture is the seed file layout. Dimensions may nest children.
type fixture struct {
	Types      []dimension.DimensionType        `yaml:"types"`
	Dimensions []dimension.Dimension            `yaml:"dimensions"`
	Bindings   []dimension.Binding              `yaml:"bindings"`
	Settings   []dimension.AuthorizationSetting `yaml:"settings"`
}

type seedOutput struct {
	Types      int `json:"types" yaml:"types"`
	Dimensions int `json:"dimensions" yaml:"dimensions"`
	Bindings   int `json:"bindings" yaml:"bindings"`
	Settings   int `json:"settings" yaml:"settings"`
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load types, dimensions, bindings and settings from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadFixture(args[0])
			if err != nil {
				return err
			}

			a, err := opts.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			var out seedOutput
			for _, t := range f.Types {
				if _, err := a.Service.SaveType(ctx, t); err != nil {
					return err
				}
				out.Types++
			}
			if len(f.Dimensions) > 0 {
				saved, err := a.Service.Save(ctx, f.Dimensions...)
				if err != nil {
					return err
				}
				out.Dimensions = len(saved)
			}
			if len(f.Bindings) > 0 {
				saved, err := a.Service.Bind(ctx, f.Bindings...)
				if err != nil {
					return err
				}
				out.Bindings = len(saved)
			}
			for _, s := range f.Settings {
				if s.ID == "" {
					s.ID = shard.RowKey(s.DimensionType, s.DimensionTarget, s.Permission)
				}
				if _, err := a.Stores.Settings.Save(ctx, s); err != nil {
					return fmt.Errorf("save setting %s: %w", s.ID, err)
				}
				out.Settings++
			}
			return writeOutput(cmd.OutOrStdout(), opts.output, out)
		},
	}
	return cmd
}
