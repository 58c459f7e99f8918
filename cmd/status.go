package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/opengovern/og-session/internal/auth"
	"github.com/opengovern/og-session/internal/claims"
	"github.com/opengovern/og-session/internal/session"
)

// Status-specific flags
var (
	statusWatch bool
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session status",
		Long: `Show the state of the stored session: whether a credential is
present, who it belongs to, and when it expires.

Examples:
  og-session status          # Print the session status once
  og-session status --watch  # Keep printing as the session changes`,
		RunE: runStatus,
	}

	cmd.Flags().BoolVar(&statusWatch, "watch", false, "Watch the session slot and reprint on changes")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := session.NewStore(session.StoreConfig{StorageDir: cfg.Storage.Dir, FileMode: true})
	if err != nil {
		return err
	}

	manager := auth.NewManager(auth.ManagerConfig{
		Store:    store,
		Provider: auth.NewProvider(cfg.Provider, nil),
	})

	printStatus(manager, store)

	if !statusWatch {
		if !manager.IsAuthenticated() {
			return auth.ErrAuthRequired
		}
		return nil
	}

	// Watch mode: reprint whenever another process rewrites the slot
	// (e.g. a login or logout in a different terminal), and flag expiry
	// as it happens.
	watchdog := auth.NewWatchdog()
	watchdog.Observe(store.Read())
	watchdog.Start()
	defer watchdog.Stop()

	unsubscribe := store.Subscribe(func(rec session.Record) {
		watchdog.Observe(rec)
		fmt.Println()
		printStatus(manager, store)
	})
	defer unsubscribe()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Println("\nWatching for session changes (Ctrl-C to stop)...")
	if err := store.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printStatus(manager *auth.Manager, store *session.Store) {
	rec := store.Read()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("FIELD"),
		text.FgHiCyan.Sprint("VALUE"),
	})

	t.AppendRow(table.Row{"State", stateCell(manager)})

	if c, err := claims.Decode(rec.Token); err == nil {
		if c.Email != "" {
			t.AppendRow(table.Row{"Email", c.Email})
		}
		if c.Name != "" {
			t.AppendRow(table.Row{"Name", c.Name})
		}
		t.AppendRow(table.Row{"Expires", expiryCell(c)})
	}

	if rec.Error != "" {
		t.AppendRow(table.Row{"Last error", text.FgRed.Sprint(rec.Error)})
	}

	t.AppendRow(table.Row{"Storage", store.Path()})

	t.Render()
}

func stateCell(manager *auth.Manager) string {
	state := manager.State()

	switch {
	case manager.IsAuthenticated():
		return text.FgGreen.Sprint("authenticated")
	case state == auth.StateAuthenticated:
		// A credential is stored but its expiry has passed.
		return text.FgYellow.Sprint("expired")
	case state == auth.StateFailed:
		return text.FgRed.Sprint("failed")
	default:
		return state.String()
	}
}

func expiryCell(c *claims.Claims) string {
	if c.Expiry == 0 {
		return "unknown"
	}

	at := c.ExpiresAt().Local().Format(time.RFC1123)
	remaining := time.Until(c.ExpiresAt())
	if remaining <= 0 {
		return text.FgYellow.Sprintf("%s (expired)", at)
	}
	return fmt.Sprintf("%s (in %s)", at, remaining.Round(time.Minute))
}
