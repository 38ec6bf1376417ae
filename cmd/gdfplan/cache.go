package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gdfplan/internal/driver"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the plan cache",
}

var cacheDirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Print the plan cache directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := openCache(cmd)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), c.Dir())
		return nil
	},
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every cached plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := openCache(cmd)
		if err != nil {
			return err
		}
		if err := c.DropAll(); err != nil {
			return fmt.Errorf("failed to clear %q: %w", c.Dir(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed cached plans in %s\n", c.Dir())
		return nil
	},
}

func init() {
	cacheCmd.PersistentFlags().String("cache-dir", "", "plan cache directory (default: [compile].cache_dir or the user cache dir)")
	cacheCmd.AddCommand(cacheDirCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
}

func openCache(cmd *cobra.Command) (*driver.PlanCache, error) {
	dir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return nil, err
	}
	if dir == "" {
		configPath, err := cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return nil, err
		}
		cfg, _, err := resolveConfig(configPath)
		if err != nil {
			return nil, err
		}
		dir = cfg.Compile.CacheDir
	}
	return driver.OpenPlanCache(dir, "gdfplan")
}
