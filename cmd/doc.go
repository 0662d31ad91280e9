// Package cmd implements the command-line interface for mailrules.
//
// This package provides the following commands:
//   - serve: Start the JSON HTTP server for email processing and rule management
//   - rules: Manage rules from the terminal (list, add, rm, toggle)
//   - connect: Link a Gmail account via OAuth and store its credential
//   - process: Evaluate one email against the stored rules and print the report
//   - version: Display version information
package cmd
