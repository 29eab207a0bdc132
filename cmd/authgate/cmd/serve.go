package cmd

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/bastion-labs/authgate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	// Seeding must finish before the listener accepts authenticated traffic.
	if err := store.Seed(ctx); err != nil {
		return fmt.Errorf("failed to seed baseline accounts: %w", err)
	}

	gateway := authgate.New(cfg, store)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Views:                 authgate.NewViewEngine(),
	})
	gateway.Mount(app)

	fmt.Printf("authgate listening on %s\n", cfg.ListenAddr)
	return app.Listen(cfg.ListenAddr)
}
