package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashureev/pocketos/internal/chat"
	"github.com/ashureev/pocketos/internal/seed"
	"github.com/ashureev/pocketos/internal/state"
)

func devicesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List known devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devices, err := c.repo.ListDevices(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DEVICE\tLABEL\tLAST SEEN")
			for _, d := range devices {
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.DeviceID, d.Label, d.LastSeenAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func migrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade stored state to the current schema",
		Long: `Loads every device's stored state (or only --device), runs the
migration chain over it and writes it back at the current version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var ids []string
			if c.deviceID != "" {
				ids = []string{c.deviceID}
			} else {
				devices, err := c.repo.ListDevices(ctx)
				if err != nil {
					return err
				}
				for _, d := range devices {
					ids = append(ids, d.DeviceID)
				}
			}

			for _, id := range ids {
				container, err := state.Load(ctx, id, c.repo, nil)
				if err != nil {
					return fmt.Errorf("migrate %s: %w", id, err)
				}
				if err := container.Flush(ctx); err != nil {
					return fmt.Errorf("migrate %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %s (app v%d, os v%d)\n",
					id, state.AppChain.Version(), state.OSChain.Version())
			}
			return nil
		},
	}
}

func modelsCmd(c *cli) *cobra.Command {
	var apiKey, baseURL string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models an endpoint offers",
		Long: `Lists models using --api-key and --base-url. With --device, the
device's stored settings fill in whichever flag is omitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			key, base := apiKey, baseURL
			if c.deviceID != "" {
				id, err := c.device(ctx)
				if err != nil {
					return err
				}
				s, err := c.settingsService().Load(ctx, id)
				if err != nil {
					return err
				}
				if key == "" {
					key = s.APIKey
				}
				if base == "" {
					base = s.BaseURL
				}
			}
			if base == "" {
				base = c.cfg.LLM.BaseURL
			}

			models, err := c.client().ListModels(ctx, key, base)
			if err != nil {
				return err
			}
			for _, m := range models {
				fmt.Fprintln(cmd.OutOrStdout(), m.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "OpenAI-compatible base URL")
	return cmd
}

func contactsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage a device's contacts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := c.container(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tMEMORY\tRULES")
			for _, contact := range container.App().Contacts {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n",
					contact.ID, contact.DisplayName(), contact.EffectiveMemoryDepth(), len(contact.ChatRules))
			}
			return w.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Add every contact of a YAML roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			drafts, err := seed.Parse(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			container, err := c.container(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := seed.Import(cmd.Context(), container, state.NewReducer(), drafts)
			if err != nil {
				return err
			}
			for i, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, strings.TrimSpace(drafts[i].Name))
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Print contacts as a YAML roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := c.container(cmd.Context())
			if err != nil {
				return err
			}
			return seed.Export(cmd.OutOrStdout(), container.App())
		},
	})
	return cmd
}

func sendCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "send <contact-id> <text>",
		Short: "Send a chat message as a device and print the reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := c.container(ctx)
			if err != nil {
				return err
			}
			reducer := state.NewReducer()
			svc := chat.NewService(reducer, c.client(), c.settingsService(), nil, nil)

			sessionID, err := svc.Open(ctx, container, args[0])
			if err != nil {
				return err
			}
			res, err := svc.Send(ctx, container, sessionID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Reply.Content)
			if res.Error != "" {
				return fmt.Errorf("model call failed: %s", res.Error)
			}
			return nil
		},
	}
}
