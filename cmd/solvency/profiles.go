package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/MikeSquared-Agency/Solvency/internal/config"
)

var profilesCmd = &cli.Command{
	Name:   "profiles",
	Usage:  "Print every published scoring profile as YAML",
	Action: cmdProfiles,
}

func cmdProfiles(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	registry, err := config.BuildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("build profile registry: %w", err)
	}
	out, err := config.MarshalProfiles(registry.Profiles())
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}
	_, err = os.Stdout.Write(out)
	return err
}
