package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/mailrules/internal/auth"
	"github.com/teemow/mailrules/internal/logging"
)

func newConnectCmd() *cobra.Command {
	var (
		userKey      string
		email        string
		dbPath       string
		clientID     string
		clientSecret string
		redirectURL  string
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Link a Gmail account via OAuth",
		Long: `Link a Gmail account. Prints the Google consent URL, waits for the
authorization code on stdin and stores the resulting credential. Offline
access is requested so the credential can be refreshed without further
user interaction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, clientSecret = googleCredentials(clientID, clientSecret)
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("google client credentials are required (flags or GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET)")
			}

			st, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			logger := logging.Setup(false)
			exchanger := auth.NewGoogleExchanger(clientID, clientSecret, redirectURL)
			refresher := auth.NewRefresher(st.Credentials, exchanger, logger, nil)

			state := uuid.NewString()
			fmt.Println("Open the following URL in your browser and authorize access:")
			fmt.Println()
			fmt.Println("  " + exchanger.AuthURL(state))
			fmt.Println()
			fmt.Print("Paste the authorization code: ")

			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("authorization code must not be empty")
			}

			if err := refresher.Connect(cmd.Context(), userKey, email, code); err != nil {
				return err
			}

			fmt.Printf("Connected %s as %s\n", email, userKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&userKey, "user", "", "User identity key (required)")
	cmd.Flags().StringVar(&email, "email", "", "Gmail address being linked (required)")
	cmd.Flags().StringVar(&dbPath, "db", "mailrules.db", "SQLite database path")
	cmd.Flags().StringVar(&clientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&clientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&redirectURL, "redirect-url", "urn:ietf:wg:oauth:2.0:oob", "OAuth redirect URL")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
