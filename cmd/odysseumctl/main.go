package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"odysseum/internal/bootstrap"
	"odysseum/internal/config"
	"odysseum/internal/database"
	"odysseum/internal/logger"
)

// env is the process state shared by every subcommand.
type env struct {
	cfg *config.Config
	log *logrus.Logger
	db  *gorm.DB
}

func (e *env) open() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.log = logger.New(cfg.LogLevel, cfg.LogFormat)
	e.db, err = database.Connect(cfg.DatabaseURL, e.log)
	return err
}

func main() {
	e := &env{}
	rootCmd := &cobra.Command{
		Use:          "odysseumctl",
		Short:        "Odysseum operations tool",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.open()
		},
	}

	rootCmd.AddCommand(
		migrateCmd(e),
		seedCmd(e),
		sweepCmd(e),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bootstrap.Migrate(e.db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			e.log.WithField("models", len(bootstrap.Models())).Info("schema up to date")
			return nil
		},
	}
}

func sweepCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Cancel bookings left unpaid past their timeout",
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, _ := cmd.Flags().GetInt("batch")
			if batch <= 0 {
				batch = 100
			}
			app := bootstrap.New(e.cfg, e.db, e.log)

			total := 0
			for {
				n, err := app.Bookings.ExpireUnpaid(context.Background(), batch)
				if err != nil {
					return err
				}
				total += n
				if n < batch {
					break
				}
			}
			fmt.Printf("Cancelled %d unpaid booking(s).\n", total)
			return nil
		},
	}
	cmd.Flags().Int("batch", 100, "bookings cancelled per pass")
	return cmd
}
