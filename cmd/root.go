package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/mailrules/internal/store"
)

// rootCmd represents the base command for the mailrules application
var rootCmd = &cobra.Command{
	Use:   "mailrules",
	Short: "Applies user-defined rules to incoming email",
	Long: `mailrules evaluates user-defined condition/action rules against incoming
Gmail messages: mark as read, mark as important, or move to a folder.

It can run as:
  - A JSON HTTP server (serve) for the surrounding system
  - A standalone CLI for rule management and one-shot processing`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mailrules version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newConnectCmd())
	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// openStore opens the SQLite store at dbPath, or an in-memory store when
// dbPath is empty.
func openStore(dbPath string) (*store.Store, error) {
	if dbPath == "" {
		return store.NewMemory(), nil
	}
	st, err := store.OpenSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// googleCredentials resolves the OAuth client credentials from flags with
// environment fallback.
func googleCredentials(clientID, clientSecret string) (string, string) {
	if clientID == "" {
		clientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	return clientID, clientSecret
}
