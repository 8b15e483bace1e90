// cmd/docgen/branches.go
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/julianshen/docgen/internal/server"
)

func branchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branches <repository-url>",
		Short: "List the branches of a GitHub or GitLab repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			return listBranches(cmd.Context(), cmd.OutOrStdout(), a.resolver, args[0])
		},
	}
}

func listBranches(ctx context.Context, out io.Writer, lister server.BranchLister, repoURL string) error {
	branches, err := lister.Branches(ctx, repoURL)
	if err != nil {
		return fmt.Errorf("listing branches: %w", err)
	}
	for _, b := range branches {
		fmt.Fprintln(out, b)
	}
	return nil
}
