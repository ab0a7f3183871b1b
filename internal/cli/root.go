// Package cli implements the shelf command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dbPath    string
	jsonMode  bool
}

var flags rootFlags

// NewRootCmd creates the top-level "shelf" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shelf",
		Short: "An embedded ORM over a single-file SQLite store",
		Long:  "Shelf maps declared record schemas onto a SQLite file and exposes\nfiltered queries, bulk updates, and thread-safe CRUD.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: .shelf)")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "store file path (default: shelf.db)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newDemoCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitUserError)
	}
}

// resolveConfigDir returns the config directory from flag, env, or default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flags.configDir)
}
