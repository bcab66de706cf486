package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"livechat/backend/internal/api/handler"
	"livechat/backend/internal/chathub"
	"livechat/backend/internal/config"
	"livechat/backend/internal/storage"
	"livechat/backend/internal/worker"

	"github.com/spf13/cobra"
)

func newRootCmd(open func() (*app, error)) *cobra.Command {
	var a *app
	root := &cobra.Command{
		Use:          "admin",
		Short:        "Live chat operations: migrations, tokens, chat switch, availability, sessions",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a != nil {
				return nil
			}
			var err error
			a, err = open()
			return err
		},
	}
	get := func() *app { return a }

	root.AddCommand(
		newMigrateCmd(get),
		newTokenCmd(get),
		newChatCmd(get),
		newAvailabilityCmd(get),
		newSessionsCmd(get),
	)
	return root
}

func newMigrateCmd(get func() *app) *cobra.Command {
	var triggers bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the chat tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if a.db == nil {
				return errors.New("no database connection")
			}
			if err := storage.Migrate(a.db, triggers); err != nil {
				return err
			}
			cmd.Println("Migrations complete.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&triggers, "triggers", false, "also install the NOTIFY triggers used by FEED_DRIVER=postgres")
	return cmd
}

func newTokenCmd(get func() *app) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <attendant_id>",
		Short: "Issue an attendant console token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := handler.GenerateAttendantToken([]byte(get().cfg.JWTSecret), args[0], ttl)
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", config.AttendantTokenTTL, "token lifetime")
	return cmd
}

func newChatCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{Use: "chat", Short: "Turn the widget on or off"}
	toggle := func(use string, enabled bool) *cobra.Command {
		return &cobra.Command{
			Use:  use + " [tenant_id]",
			Args: cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				tenant := ""
				if len(args) == 1 {
					tenant = args[0]
				}
				if err := get().storage.SetChatEnabled(cmd.Context(), tenant, enabled); err != nil {
					return err
				}
				cmd.Printf("Chat %sd for %s.\n", use, tenantLabel(tenant))
				return nil
			},
		}
	}
	cmd.AddCommand(toggle("enable", true), toggle("disable", false))
	return cmd
}

func newAvailabilityCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{Use: "availability", Short: "Inspect or change attendant availability"}

	setMax := &cobra.Command{
		Use:   "set-max <user_id> <max_chats>",
		Short: "Set how many chats an attendant may hold at once",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxChats, err := strconv.Atoi(args[1])
			if err != nil || maxChats <= 0 {
				return fmt.Errorf("max_chats must be a positive integer, got %q", args[1])
			}
			a := get()
			avail, err := a.storage.GetAvailability(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if avail == nil {
				avail = chathub.WentOffline(nil, args[0], time.Now().UTC(), a.cfg.DefaultMaxChats)
			}
			avail.MaxConcurrentChats = maxChats
			if err := a.storage.UpsertAvailability(cmd.Context(), avail); err != nil {
				return err
			}
			cmd.Printf("%s may now hold %d chats.\n", args[0], maxChats)
			return nil
		},
	}

	offline := &cobra.Command{
		Use:   "offline <user_id>",
		Short: "Force an attendant offline and reset the chat counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			prev, err := a.storage.GetAvailability(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			next := chathub.WentOffline(prev, args[0], time.Now().UTC(), a.cfg.DefaultMaxChats)
			if err := a.storage.UpsertAvailability(cmd.Context(), next); err != nil {
				return err
			}
			cmd.Printf("%s is offline.\n", args[0])
			return nil
		},
	}

	show := &cobra.Command{
		Use:  "show <user_id>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			avail, err := get().storage.GetAvailability(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if avail == nil {
				cmd.Printf("%s has no availability record.\n", args[0])
				return nil
			}
			cmd.Printf("%s online=%t chats=%d/%d last_seen=%s\n", avail.UserID, avail.IsOnline,
				avail.CurrentChats, avail.MaxConcurrentChats, avail.LastSeen.Format(time.RFC3339))
			return nil
		},
	}

	cmd.AddCommand(setMax, offline, show)
	return cmd
}

func newSessionsCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Maintenance of chat sessions"}

	var olderThan time.Duration
	abandon := &cobra.Command{
		Use:   "abandon-stale",
		Short: "Mark waiting sessions nobody accepted as abandoned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			n, err := worker.SweepWaiting(cmd.Context(), get().storage, now.Add(-olderThan), now)
			if err != nil {
				return err
			}
			cmd.Printf("%d sessions abandoned.\n", n)
			return nil
		},
	}
	abandon.Flags().DurationVar(&olderThan, "older-than", config.DefaultWaitingAbandonAfter, "minimum time spent waiting")

	waiting := &cobra.Command{
		Use:   "waiting",
		Short: "Count sessions waiting for an attendant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := get().storage.CountWaitingSessions(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("%d sessions waiting.\n", n)
			return nil
		},
	}

	cmd.AddCommand(abandon, waiting)
	return cmd
}

func tenantLabel(tenant string) string {
	if tenant == "" {
		return "the default tenant"
	}
	return "tenant " + tenant
}
