package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rpggio/sciflow/internal/domain/annualreport"
	"github.com/spf13/cobra"
)

func newAnnualReportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annual-report",
		Short: "Create and list annual research activity reports",
	}
	cmd.AddCommand(newAnnualReportCreateCommand(ctx))
	cmd.AddCommand(newAnnualReportListCommand(ctx))
	return cmd
}

func newAnnualReportCreateCommand(ctx *commandContext) *cobra.Command {
	var year int
	var as string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a report and request updates from every reporting project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if year == 0 {
				year = time.Now().Year()
			}
			return ctx.withRuntime(cmd.Context(), cmd.ErrOrStderr(), func(rt *runtime) error {
				actorID, err := rt.actor(cmd.Context(), as)
				if err != nil {
					return err
				}
				result, err := rt.app.Reports.Create(cmd.Context(), annualreport.CreateRequest{Year: year, ActorID: actorID})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Annual report %d created (%s)\n", result.Report.Year, result.Report.ID)
				if len(result.Outcomes) == 0 {
					fmt.Fprintln(out, "No projects due for an update")
					return nil
				}
				fmt.Fprintln(out, renderOutcomes(result.Outcomes))
				if failed := result.Failed(); failed > 0 {
					fmt.Fprintf(out, "%d of %d projects could not be updated\n", failed, len(result.Outcomes))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Report year (default current year)")
	cmd.Flags().StringVar(&as, "as", "", "Acting user (default auth.default_user)")
	return cmd
}

func renderOutcomes(outcomes []annualreport.Outcome) string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		result := o.Status
		if o.Error != "" {
			result = "failed: " + o.Error
		}
		rows = append(rows, []string{o.Code, o.Transition, result})
	}
	return renderTable([]string{"Project", "Transition", "Result"}, rows, nil)
}

func newAnnualReportListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List annual reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withRuntime(cmd.Context(), cmd.ErrOrStderr(), func(rt *runtime) error {
				reports, err := rt.app.Reports.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(reports) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No annual reports")
					return nil
				}
				rows := make([][]string, 0, len(reports))
				for _, r := range reports {
					rows = append(rows, []string{strconv.Itoa(r.Year), r.CreatedAt.Format(time.DateTime), r.ID})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Year", "Created", "ID"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	}
}
