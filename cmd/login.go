package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/opengovern/og-session/internal/auth"
	"github.com/opengovern/og-session/internal/session"
)

// Login-specific flags
var (
	loginNoBrowser bool
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the identity provider",
		Long: `Authenticate with the configured identity provider using the
browser-based authorization code flow.

A temporary callback listener is started on the loopback interface, the
system browser is opened at the provider's authorization endpoint, and
the returned code is exchanged for a token. The resulting credential is
written to the durable session slot.

Examples:
  og-session login               # Open the browser and wait for the redirect
  og-session login --no-browser  # Print the authorization URL instead`,
		RunE: runLogin,
	}

	cmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")

	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), auth.CallbackTimeout)
	defer cancel()

	// The callback listener must be up before the browser opens so the
	// provider has somewhere to redirect back to.
	callback := auth.NewCallbackServer(cfg.CallbackPort)
	appRoot, err := callback.Start(ctx)
	if err != nil {
		return err
	}
	defer callback.Stop()

	store, err := session.NewStore(session.StoreConfig{StorageDir: cfg.Storage.Dir, FileMode: true})
	if err != nil {
		return err
	}
	returnURLs, err := session.NewReturnURLStore(session.StoreConfig{StorageDir: cfg.Storage.Dir, FileMode: true})
	if err != nil {
		return err
	}

	nav, err := auth.NewBrowserNavigator(appRoot)
	if err != nil {
		return err
	}

	provider := auth.NewProvider(cfg.Provider, nil)
	manager := auth.NewManager(auth.ManagerConfig{
		Store:     store,
		Provider:  provider,
		Navigator: nav,
		AppRoot:   appRoot,
	})
	bootstrapper := auth.NewBootstrapper(manager, store, returnURLs, nav)

	if manager.IsAuthenticated() {
		if user, ok := manager.User(); ok && user.Email != "" {
			fmt.Printf("Already logged in as %s\n", user.Email)
		} else {
			fmt.Println("Already logged in")
		}
		return nil
	}

	if loginNoBrowser {
		authURL, err := bootstrapper.AuthorizeURL(ctx)
		if err != nil {
			return err
		}
		fmt.Println("Open the following URL in your browser:")
		fmt.Println()
		fmt.Printf("  %s\n\n", authURL)
	} else {
		// First pass: unauthenticated off the callback path, so this
		// records the return slot and opens the browser at the provider.
		if err := bootstrapper.Bootstrap(ctx); err != nil {
			return err
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Waiting for browser login..."
	s.Start()

	result, err := callback.WaitForCallback(ctx)
	s.Stop()
	if err != nil {
		if ctx.Err() != nil {
			return &loginFailedError{reason: "timed out waiting for the browser login"}
		}
		return err
	}

	// Second pass: the provider redirected back, so the bootstrapper now
	// sees the callback URL and exchanges the code (or records a denial).
	nav.SetCurrentURL(result.RequestURL)
	if err := bootstrapper.Bootstrap(ctx); err != nil {
		return err
	}

	rec := store.Read()
	if !manager.IsAuthenticated() {
		reason := rec.Error
		if reason == "" {
			reason = "no credential was issued"
		}
		fmt.Println(text.FgRed.Sprint("Login failed: " + reason))
		return &loginFailedError{reason: reason}
	}

	if user, ok := manager.User(); ok && user.Email != "" {
		fmt.Println(text.FgGreen.Sprintf("Logged in as %s", user.Email))
	} else {
		fmt.Println(text.FgGreen.Sprint("Logged in"))
	}

	if claims, err := manager.GetIDTokenClaims(); err == nil && claims.Expiry != 0 {
		fmt.Printf("Session expires %s\n", claims.ExpiresAt().Local().Format(time.RFC1123))
	}

	return nil
}
