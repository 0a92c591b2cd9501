package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Work with crawl session reports",
	}
	cmd.AddCommand(newReportSessionsCmd(), newReportExportCmd())
	return cmd
}

func newReportSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List crawl sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := mustApp(cmd)
			if err != nil {
				return err
			}
			ctrl := a.Reports()
			ctrl.LoadSessions(cmd.Context())
			panels := ctrl.Panels()
			if _, summary := ctrl.Current(); summary == nil {
				return errors.New(panels.Meta)
			}
			out := cmd.OutOrStdout()
			for _, s := range panels.Sessions {
				marker := " "
				if s.Selected {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, s.Label)
			}
			return nil
		},
	}
}

func newReportExportCmd() *cobra.Command {
	var sessionID, instructions string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Generate a session report and export it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := mustApp(cmd)
			if err != nil {
				return err
			}
			exp := a.Exporter()
			if exp == nil {
				return errors.New("report export is disabled; set export.backend")
			}
			ctx := cmd.Context()
			ctrl := a.Reports()
			if strings.TrimSpace(sessionID) == "" {
				ctrl.LoadSessions(ctx)
			} else {
				ctrl.SelectSession(ctx, sessionID)
			}
			if _, summary := ctrl.Current(); summary == nil {
				return errors.New(ctrl.Panels().Meta)
			}
			ctrl.RunReport(ctx, instructions)

			res, err := ctrl.Export(ctx, exp)
			if err != nil {
				return fmt.Errorf("%w (%s)", err, ctrl.Panels().ReportOutput)
			}
			out := cmd.OutOrStdout()
			for _, uri := range res.URIs {
				fmt.Fprintln(out, uri)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (default: most recent)")
	cmd.Flags().StringVar(&instructions, "instructions", "", "guidance for the report")
	return cmd
}
