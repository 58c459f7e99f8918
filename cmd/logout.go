package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opengovern/og-session/internal/auth"
	"github.com/opengovern/og-session/internal/session"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Long: `Clear the stored session credential.

The durable slot is overwritten with an empty record, so no process of
this user can resume the session afterwards. Logout is unconditional: it
succeeds whether or not a credential was present.`,
		RunE: runLogout,
	}
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := session.NewStore(session.StoreConfig{StorageDir: cfg.Storage.Dir, FileMode: true})
	if err != nil {
		return err
	}

	hadCredential := store.Read().HasCredential()

	manager := auth.NewManager(auth.ManagerConfig{
		Store:    store,
		Provider: auth.NewProvider(cfg.Provider, nil),
	})
	manager.Logout()

	if hadCredential {
		fmt.Println("Logged out")
	} else {
		fmt.Println("No active session")
	}
	return nil
}
