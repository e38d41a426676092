package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/shoerack/internal/paths"
	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// configFile holds the keys init pins in config.yaml.
type configFile struct {
	Backend       string `yaml:"backend"`
	DataDir       string `yaml:"data_dir,omitempty"`
	SyncStrategy  string `yaml:"sync_strategy,omitempty"`
	Premium       bool   `yaml:"premium"`
	FreeTierLimit int    `yaml:"free_tier_limit"`
}

func (a *app) newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize shoerack storage",
		Long: "Create the configuration and data directories, record the data directory in\n" +
			"config.yaml, then initialize the storage backend.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "rewrite config.yaml even if it exists")
	return cmd
}

func (a *app) runInit(cmd *cobra.Command, force bool) error {
	cfg, err := a.storeConfig()
	if err != nil {
		return err
	}

	if err := writeConfig(paths.ConfigFile(a.configDir), cfg, a.tier().Limit, a.tier().Premium, force); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	s, err := a.openStorage(cmd.Context())
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	if a.flags.jsonMode {
		return printJSON(cmd, map[string]string{
			"config_dir": a.configDir,
			"data_dir":   cfg.DataDir,
			"backend":    cfg.Backend,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), "shoerack initialized")
	fmt.Fprintf(cmd.OutOrStdout(), "  config: %s\n  data:   %s\n", a.configDir, cfg.DataDir)
	return nil
}

// writeConfig records the resolved settings in config.yaml. An existing
// file written by hand is left alone unless force is set; the default file
// created on first run is always replaced.
func writeConfig(path string, cfg types.Config, limit int, premium bool, force bool) error {
	if existing, err := os.ReadFile(path); err == nil && !force && string(existing) != defaultConfigYAML {
		return nil
	}

	out := configFile{
		Backend:       cfg.Backend,
		DataDir:       cfg.DataDir,
		SyncStrategy:  cfg.SQLiteConfig.SyncStrategy,
		Premium:       premium,
		FreeTierLimit: limit,
	}
	if cfg.Backend == types.BackendPostgres {
		out.DataDir = ""
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
