// pocketctl - offline administration for a pocketos database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/pocketos/internal/config"
	"github.com/ashureev/pocketos/internal/identity"
	"github.com/ashureev/pocketos/internal/llm"
	"github.com/ashureev/pocketos/internal/settings"
	"github.com/ashureev/pocketos/internal/state"
	"github.com/ashureev/pocketos/internal/store"
)

// cli carries the global flags and the lazily opened repository.
type cli struct {
	dbPath   string
	deviceID string

	cfg     *config.Config
	repo    store.Repository
	ownRepo bool
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	if err := newRootCmd(&cli{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "pocketctl",
		Short: "Administer a pocketos database",
		Long: `pocketctl works directly on the database the pocketos server uses.

It can upgrade stored state to the current schema, seed contacts from a
YAML roster, list the models an endpoint offers and send chat messages
on behalf of a device.

A running server caches each active device's state in memory until the
device has been idle for SWEEP_INTERVAL, and its next write for that
device replaces whatever pocketctl stored. Stop the server, or wait for
the device to go idle, before running commands that change state
(migrate, contacts import, send).`,
		SilenceUsage:      true,
		PersistentPreRunE: c.open,
	}
	root.PersistentPostRunE = func(*cobra.Command, []string) error {
		return c.close()
	}

	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "database path (defaults to DB_PATH)")
	root.PersistentFlags().StringVar(&c.deviceID, "device", "", "device id to act on")

	root.AddCommand(devicesCmd(c))
	root.AddCommand(migrateCmd(c))
	root.AddCommand(modelsCmd(c))
	root.AddCommand(contactsCmd(c))
	root.AddCommand(sendCmd(c))
	return root
}

func (c *cli) open(*cobra.Command, []string) error {
	if c.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		c.cfg = cfg
	}
	if c.dbPath != "" {
		c.cfg.DBPath = c.dbPath
	}
	if c.repo != nil {
		return nil
	}
	if c.cfg.InMemory() {
		return fmt.Errorf("pocketctl needs a database file, DB_PATH=memory has nothing to administer")
	}
	repo, err := store.NewSQLite(c.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	c.repo = repo
	c.ownRepo = true
	return nil
}

func (c *cli) close() error {
	if !c.ownRepo || c.repo == nil {
		return nil
	}
	c.ownRepo = false
	return c.repo.Close()
}

// device returns the --device id, registering the device if it is new.
func (c *cli) device(ctx context.Context) (string, error) {
	if c.deviceID == "" {
		return "", fmt.Errorf("--device is required")
	}
	if !identity.IsValidDeviceID(c.deviceID) {
		return "", fmt.Errorf("invalid device id %q", c.deviceID)
	}
	if err := identity.EnsureDevice(ctx, c.repo, c.deviceID); err != nil {
		return "", fmt.Errorf("register device: %w", err)
	}
	return c.deviceID, nil
}

func (c *cli) container(ctx context.Context) (*state.Container, error) {
	id, err := c.device(ctx)
	if err != nil {
		return nil, err
	}
	return state.Load(ctx, id, c.repo, nil)
}

func (c *cli) settingsService() *settings.Service {
	return settings.NewService(c.repo, settings.Defaults{
		BaseURL: c.cfg.LLM.BaseURL,
		Model:   c.cfg.LLM.Model,
	}, nil)
}

func (c *cli) client() *llm.Client {
	return llm.NewClient(llm.Config{
		BaseURL: c.cfg.LLM.BaseURL,
		Model:   c.cfg.LLM.Model,
		Timeout: c.cfg.LLM.Timeout,
	})
}
