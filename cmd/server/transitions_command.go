package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/workflow"
	"github.com/spf13/cobra"
)

func newTransitionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transitions <project|document> <kind>",
		Short: "Print the declared transitions of a lifecycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := workflow.ParseEntity(args[0])
			if err != nil {
				return err
			}
			return ctx.withRuntime(cmd.Context(), cmd.ErrOrStderr(), func(rt *runtime) error {
				var graph []workflow.TransitionInfo
				switch entity {
				case workflow.EntityProject:
					kind := project.Kind(args[1])
					if !kind.Valid() {
						return fmt.Errorf("%w: unknown kind %s", project.ErrInvalidInput, args[1])
					}
					graph = rt.app.Engine.ProjectGraph(kind)
				case workflow.EntityDocument:
					kind := document.Kind(args[1])
					if !kind.Valid() {
						return fmt.Errorf("%w: unknown kind %s", document.ErrInvalidInput, args[1])
					}
					graph = rt.app.Engine.DocumentGraph(kind)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderGraph(graph))
				return nil
			})
		},
	}
}

func renderGraph(graph []workflow.TransitionInfo) string {
	rows := make([][]string, 0, len(graph))
	for i, t := range graph {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			t.Name,
			strings.Join(t.Source, ", "),
			t.Target,
			strings.Join(t.Guards, ", "),
		})
	}
	return renderTable([]string{"#", "Transition", "From", "To", "Guards"}, rows, []columnAlignment{alignRight})
}
