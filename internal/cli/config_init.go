package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fairdiet/fairdiet/internal/config"
)

// ErrConfigExists is returned by config init when the target file exists
// and --force was not given.
var ErrConfigExists = errors.New("configuration file already exists, use --force to overwrite")

// NewConfigInitCmd creates the config init command. Inside a project (a
// directory tree containing .fairdiet/) it writes the project overlay and a
// .gitignore; otherwise, or with --global, it writes ~/.fairdiet/config.yaml.
func NewConfigInitCmd() *cobra.Command {
	var (
		force  bool
		global bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values.

Inside a project, creates $PROJECT/.fairdiet/config.yaml with a .gitignore
that keeps logs and local data out of version control. Use --global to write
~/.fairdiet/config.yaml even inside a project.`,
		Example: `  # Create project-local configuration
  fairdiet config init

  # Create global configuration, overwriting an existing file
  fairdiet config init --global --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectDir := config.GetResolvedProjectDir()
			if projectDir != "" && !global {
				return initProjectConfig(cmd, projectDir, force)
			}
			dir, err := config.GetConfigDir()
			if err != nil {
				return fmt.Errorf("resolving config directory: %w", err)
			}
			return writeDefaultConfig(cmd, filepath.Join(dir, "config.yaml"), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	cmd.Flags().BoolVar(&global, "global", false, "write the global configuration even inside a project")

	return cmd
}

func initProjectConfig(cmd *cobra.Command, projectDir string, force bool) error {
	if err := writeDefaultConfig(cmd, filepath.Join(projectDir, "config.yaml"), force); err != nil {
		return err
	}
	created, err := config.EnsureGitignore(projectDir)
	if err != nil {
		return fmt.Errorf("creating .gitignore: %w", err)
	}
	if created {
		cmd.Printf("Created %s\n", filepath.Join(projectDir, ".gitignore"))
	}
	return nil
}

// writeDefaultConfig saves the built-in defaults to path. Environment
// overrides are deliberately not written.
func writeDefaultConfig(cmd *cobra.Command, path string, force bool) error {
	if !force {
		_, err := os.Stat(path)
		if err == nil {
			return &ExitError{Code: ExitFailure, Err: ErrConfigExists}
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access config path %s: %w", path, err)
		}
	}

	cfg := config.Default()
	cfg.SetConfigPath(path)
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}
	cmd.Printf("Configuration initialized at %s\n", path)
	return nil
}
