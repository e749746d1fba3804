package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gpcscan/gpcscan/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/gpcscan.yaml
var configTemplate embed.FS

// defaultConfigPath returns the path `gpcscan init` writes to when no
// --output is given: the XDG config directory, where every command finds
// the file without further flags.
func defaultConfigPath() string {
	return filepath.Join(config.XDGConfigDir(), config.XDGConfigFile)
}

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new gpcscan configuration file",
		Long: `Init creates a commented gpcscan configuration file.

Without --output the file is written to the XDG config directory
(~/.config/gpcscan/gpcscan.yaml on Linux), where every gpcscan command
picks it up automatically.

The generated file includes:
- Default settings for crawl budget and journey limits
- Commented examples for site-specific overrides
- Documentation for all available options

Examples:
  # Create the config file in the XDG config directory
  gpcscan init

  # Create a per-project config in the current directory
  gpcscan init -o .gpcscan

  # Force overwrite an existing file
  gpcscan init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", defaultConfigPath(),
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := configTemplate.ReadFile("templates/gpcscan.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write configuration file
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Printf("Created configuration file: %s\n", outputPath)
	fmt.Println("\nEdit this file to configure site-specific settings such as:")
	fmt.Println("  - Crawl page budget and journey limits per site")
	fmt.Println("  - Jurisdiction (us_ca or eu) per site")
	fmt.Println("  - Extra opt-out link wording for unusual footers")

	return nil
}
