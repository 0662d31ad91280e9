package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/mailrules/internal/logging"
	"github.com/teemow/mailrules/internal/rules"
)

func newRulesCmd() *cobra.Command {
	var (
		userKey string
		dbPath  string
	)

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage rules from the terminal",
		Long: `Manage the condition/action rules applied to incoming email.

Rules are evaluated in creation order; every matching rule's action is
applied. Conditions use a small expression language over the email's
attributes, for example:

  sender.contains("amazon") and not isRead
  subject.startsWith("invoice") or hasAttachments`,
	}

	cmd.PersistentFlags().StringVar(&userKey, "user", "", "User identity key (required)")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "mailrules.db", "SQLite database path")
	_ = cmd.MarkPersistentFlagRequired("user")

	cmd.AddCommand(newRulesListCmd(&userKey, &dbPath))
	cmd.AddCommand(newRulesAddCmd(&userKey, &dbPath))
	cmd.AddCommand(newRulesRmCmd(&userKey, &dbPath))
	cmd.AddCommand(newRulesToggleCmd(&userKey, &dbPath))

	return cmd
}

func newRepository(dbPath string) (*rules.Repository, func(), error) {
	st, err := openStore(dbPath)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.Setup(false)
	return rules.NewRepository(st.Rules, logger), func() { _ = st.Close() }, nil
}

func newRulesListCmd(userKey, dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rules, active and inactive",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeStore, err := newRepository(*dbPath)
			if err != nil {
				return err
			}
			defer closeStore()

			list, err := repo.List(cmd.Context(), *userKey)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No rules.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tACTION\tACTIVE\tCONDITION")
			for _, r := range list {
				action := string(r.Action)
				if r.Action == rules.ActionMoveToFolder {
					action = fmt.Sprintf("%s(%s)", r.Action, r.Parameters.FolderName)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", r.ID, r.Name, action, r.IsActive, r.Condition)
			}
			return w.Flush()
		},
	}
}

func newRulesAddCmd(userKey, dbPath *string) *cobra.Command {
	var (
		name       string
		cond       string
		action     string
		folderName string
		inactive   bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a rule",
		Example: `  mailrules rules add --user alice \
    --name "Archive Amazon" \
    --condition 'sender.contains("amazon")' \
    --action move_to_folder --folder Orders`,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeStore, err := newRepository(*dbPath)
			if err != nil {
				return err
			}
			defer closeStore()

			rule, err := repo.Create(cmd.Context(), *userKey, rules.Draft{
				Name:       name,
				Condition:  cond,
				Action:     rules.Action(action),
				Parameters: rules.Parameters{FolderName: folderName},
				IsActive:   !inactive,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created rule %s\n", rule.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Rule name (required)")
	cmd.Flags().StringVar(&cond, "condition", "", "Condition expression (required)")
	cmd.Flags().StringVar(&action, "action", "", "Action: mark_important, move_to_folder or mark_read (required)")
	cmd.Flags().StringVar(&folderName, "folder", "", "Target folder name (required for move_to_folder)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the rule disabled")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("condition")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}

func newRulesRmCmd(userKey, dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeStore, err := newRepository(*dbPath)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := repo.Delete(cmd.Context(), *userKey, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted rule %s\n", args[0])
			return nil
		},
	}
}

func newRulesToggleCmd(userKey, dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <rule-id>",
		Short: "Flip a rule's active flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeStore, err := newRepository(*dbPath)
			if err != nil {
				return err
			}
			defer closeStore()

			rule, err := repo.Toggle(cmd.Context(), *userKey, args[0])
			if err != nil {
				return err
			}
			state := "disabled"
			if rule.IsActive {
				state = "enabled"
			}
			fmt.Printf("Rule %s is now %s\n", rule.ID, state)
			return nil
		},
	}
}
