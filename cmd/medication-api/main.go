package main

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/fieldcrypt"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "medication-api",
		Short:         "Medication management REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runServer(cfg, log)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := database.Connect(cfg.Database, log)
			if err != nil {
				return err
			}
			return database.Migrate(db, log)
		},
	}
}

func seedCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users and the medication catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("SEED_PASSWORD")
			}
			if password == "" {
				return errors.New("seed password is required: pass --password or set SEED_PASSWORD")
			}
			if err := auth.ValidatePasswordStrength(password); err != nil {
				return fmt.Errorf("seed password: %w", err)
			}

			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			sealer, err := newSealer(cfg, log)
			if err != nil {
				return err
			}

			db, err := database.Connect(cfg.Database, log)
			if err != nil {
				return err
			}
			if err := database.Migrate(db, log); err != nil {
				return err
			}
			return database.Seed(db, sealer, password, log)
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password for every seeded account (default $SEED_PASSWORD)")
	return cmd
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.Log, cfg.App.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, log, nil
}

// newSealer builds the field sealer. Development without CRYPTO_FIELD_KEY
// derives a key from the JWT secret.
func newSealer(cfg *config.Config, log *zap.Logger) (*fieldcrypt.Sealer, error) {
	if cfg.Crypto.FieldKey == "" {
		log.Warn("CRYPTO_FIELD_KEY not set, deriving a development key from JWT_SECRET")
		key := sha256.Sum256([]byte("field-key:" + cfg.JWT.Secret))
		return fieldcrypt.New(key[:])
	}

	key, err := cfg.Crypto.FieldKeyBytes()
	if err != nil {
		return nil, err
	}
	return fieldcrypt.New(key)
}
