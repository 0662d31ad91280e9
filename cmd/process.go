package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/mailrules/internal/auth"
	"github.com/teemow/mailrules/internal/engine"
	"github.com/teemow/mailrules/internal/logging"
	"github.com/teemow/mailrules/internal/mail"
	"github.com/teemow/mailrules/internal/rules"
)

func newProcessCmd() *cobra.Command {
	var (
		userKey      string
		dbPath       string
		clientID     string
		clientSecret string
		fromStdin    bool
		email        rules.Email
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Evaluate one email against the stored rules",
		Long: `Evaluate a single email against the user's rules and apply the actions
of every matching rule. The email is described via flags, or read as a
JSON object from stdin with --stdin. The run report is printed as JSON.`,
		Example: `  mailrules process --user alice \
    --message-id 18c2a... \
    --sender "Amazon" --sender-email orders@amazon.com \
    --subject "Your order has shipped"

  echo '{"messageId":"18c2a...","sender":"Amazon"}' | mailrules process --user alice --stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromStdin {
				if err := json.NewDecoder(os.Stdin).Decode(&email); err != nil {
					return fmt.Errorf("failed to decode email from stdin: %w", err)
				}
			}
			if email.MessageID == "" {
				return fmt.Errorf("message id must not be empty")
			}

			clientID, clientSecret = googleCredentials(clientID, clientSecret)

			st, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			logger := logging.Setup(false)
			exchanger := auth.NewGoogleExchanger(clientID, clientSecret, "")
			refresher := auth.NewRefresher(st.Credentials, exchanger, logger, nil)
			repository := rules.NewRepository(st.Rules, logger)
			gmailProvider := mail.NewGmailProvider(logger)
			resolver := mail.NewResolver(gmailProvider, st.Folders, logger)
			executor := engine.NewExecutor(gmailProvider, resolver, logger, nil)
			eng := engine.New(refresher, repository, executor, logger, nil)

			report, err := eng.ProcessIncomingEmail(cmd.Context(), userKey, email)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&userKey, "user", "", "User identity key (required)")
	cmd.Flags().StringVar(&dbPath, "db", "mailrules.db", "SQLite database path")
	cmd.Flags().StringVar(&clientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&clientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the email as JSON from stdin")
	cmd.Flags().StringVar(&email.MessageID, "message-id", "", "Provider message ID")
	cmd.Flags().StringVar(&email.Subject, "subject", "", "Email subject")
	cmd.Flags().StringVar(&email.Sender, "sender", "", "Sender display name")
	cmd.Flags().StringVar(&email.SenderEmail, "sender-email", "", "Sender address")
	cmd.Flags().BoolVar(&email.IsRead, "read", false, "Email is already read")
	cmd.Flags().BoolVar(&email.HasAttachments, "attachments", false, "Email has attachments")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
