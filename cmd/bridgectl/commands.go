package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Lllllllleong/issuebridge/internal/models"
	"github.com/spf13/cobra"
)

func newCreatePageCmd(c *cli) *cobra.Command {
	var (
		space string
		title string
	)
	cmd := &cobra.Command{
		Use:   "create-page [markdown-file]",
		Short: "Create a wiki page from markdown and upload its attachments",
		Long: `Renders the markdown file (or standard input) into a new wiki page.
Attachments the document links to are copied into the page, and the command
returns once the page body has been finalized.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			res, err := c.bridge.Creator.Create(c.userContext(cmd.Context()), &models.CreatePageRequest{
				PageBody:           body,
				PageTitle:          title,
				ConfluenceSpaceKey: space,
			})
			if err != nil {
				return fmt.Errorf("create page failed: %w", err)
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&space, "space", "", "destination space key")
	cmd.Flags().StringVar(&title, "title", "", "page title")
	return cmd
}

func newLinkCmd(c *cli) *cobra.Command {
	var (
		issue string
		appID string
	)
	cmd := &cobra.Command{
		Use:   "link [page-url]",
		Short: "Link a wiki page to an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.bridge.Linker.Link(c.userContext(cmd.Context()), &models.LinkPageRequest{
				ConfluenceLink:          args[0],
				IssueID:                 issue,
				ConfluenceApplicationID: appID,
			})
			if err != nil {
				return fmt.Errorf("link failed: %w", err)
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&issue, "issue", "", "issue key or id")
	cmd.Flags().StringVar(&appID, "app-id", "", "wiki application link id (defaults to the stored id)")
	return cmd
}

func newAppIDCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "app-id",
		Short: "Print the stored wiki application link id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := c.bridge.Linker.ApplicationID(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newIssueDetailsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "issue-details [issue]",
		Short: "Print an issue and its subtasks as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.bridge.Aggregator.Details(cmd.Context(), &models.IssueDetailsRequest{IssueID: args[0]})
			if err != nil {
				return fmt.Errorf("issue details failed: %w", err)
			}
			return printJSON(cmd, doc)
		},
	}
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(b), nil
}
