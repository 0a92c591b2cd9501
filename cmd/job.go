package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawl-console/internal/command"
)

func newJobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Start and control crawl jobs",
	}
	cmd.AddCommand(newJobStartCmd())
	for _, action := range []command.Action{
		command.ActionPause,
		command.ActionResume,
		command.ActionStop,
		command.ActionDelete,
	} {
		cmd.AddCommand(newJobActionCmd(action))
	}
	return cmd
}

func newJobStartCmd() *cobra.Command {
	var (
		maxPages     int
		contentTypes []string
		keywords     string
	)
	cmd := &cobra.Command{
		Use:   "start URL",
		Short: "Start a crawl at URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := mustApp(cmd)
			if err != nil {
				return err
			}
			jobID, err := a.Commands().Start(cmd.Context(), command.StartRequest{
				URL:          args[0],
				MaxPages:     maxPages,
				ContentTypes: contentTypes,
				Keywords:     command.SplitKeywords(keywords),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), jobID)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxPages, "max-pages", command.DefaultMaxPages, "page budget for the crawl")
	cmd.Flags().StringSliceVar(&contentTypes, "content-type", []string{command.DefaultContentType}, "content types to collect (repeatable)")
	cmd.Flags().StringVar(&keywords, "keywords", "", "comma or space separated keywords")
	return cmd
}

func newJobActionCmd(action command.Action) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " JOB_ID",
		Short: fmt.Sprintf("Send %s to a job", action),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := mustApp(cmd)
			if err != nil {
				return err
			}
			if err := a.Commands().Do(cmd.Context(), action, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s sent to %s\n", action, args[0])
			return nil
		},
	}
}
