package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/blog"
	"github.com/mesh-intelligence/shelf/pkg/orm"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the store",
		Long:  "Create the configuration directory, the store file, and the demo tables.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := storeConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := orm.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if _, err := blog.Register(db); err != nil {
		return fmt.Errorf("register schemas: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Store initialized: %s\n", cfg.Path)
	return nil
}
