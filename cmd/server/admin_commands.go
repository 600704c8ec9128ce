package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or verify the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withRuntime(cmd.Context(), cmd.ErrOrStderr(), func(rt *runtime) error {
				version, err := rt.app.DB.SchemaVersion(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d at %s\n", version, rt.cfg.DB.Path)
				return nil
			})
		},
	}
}

func newUserCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserAddCommand(ctx))
	cmd.AddCommand(newUserListCommand(ctx))
	return cmd
}

func newUserAddCommand(ctx *commandContext) *cobra.Command {
	var displayName, email string
	var roles []string

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), cmd.ErrOrStderr(), func(rt *runtime) error {
				u, err := rt.app.Users.Create(cmd.Context(), user.CreateRequest{
					Username:    args[0],
					DisplayName: displayName,
					Email:       email,
				})
				if err != nil {
					return err
				}
				for _, role := range roles {
					if err := rt.app.Users.GrantRole(cmd.Context(), u.ID, role); err != nil {
						return fmt.Errorf("grant %s: %w", role, err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", u.Username, u.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&displayName, "display-name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role to grant (repeatable)")
	return cmd
}

func newUserListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users and their roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withRuntime(cmd.Context(), cmd.ErrOrStderr(), func(rt *runtime) error {
				users, err := rt.app.Users.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(users) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No users")
					return nil
				}
				rows := make([][]string, 0, len(users))
				for _, u := range users {
					roles, err := rt.app.Users.Roles(cmd.Context(), u.ID)
					if err != nil {
						return err
					}
					rows = append(rows, []string{u.Username, u.DisplayName, strings.Join(roles, ", "), u.CreatedAt.Format(time.DateOnly), u.ID})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Username", "Name", "Roles", "Created", "ID"}, rows, nil))
				return nil
			})
		},
	}
}

func newRoleCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Grant or revoke role membership",
	}
	cmd.AddCommand(newRoleChangeCommand(ctx, "grant", "Granted", "Add a user to a role"))
	cmd.AddCommand(newRoleChangeCommand(ctx, "revoke", "Revoked", "Remove a user from a role"))
	return cmd
}

func newRoleChangeCommand(ctx *commandContext, verb, done, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <user> <role>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), cmd.ErrOrStderr(), func(rt *runtime) error {
				u, err := rt.app.Users.Lookup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				role := args[1]
				if verb == "grant" {
					err = rt.app.Users.GrantRole(cmd.Context(), u.ID, role)
				} else {
					err = rt.app.Users.RevokeRole(cmd.Context(), u.ID, role)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", done, role, u.Username)
				return nil
			})
		},
	}
}

func newAPIKeyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}

	var description string
	create := &cobra.Command{
		Use:   "create <user>",
		Short: "Issue a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), cmd.ErrOrStderr(), func(rt *runtime) error {
				u, err := rt.app.Users.Lookup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				token, err := rt.app.Users.IssueAPIKey(cmd.Context(), u.ID, description)
				if err != nil {
					return err
				}
				// The token is printed once; only its hash is stored.
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	create.Flags().StringVar(&description, "description", "", "Note stored with the key")
	cmd.AddCommand(create)
	return cmd
}
