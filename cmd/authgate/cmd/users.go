package cmd

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/spf13/cobra"

	"github.com/bastion-labs/authgate"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage gateway principals",
}

var (
	usersAddPassword string
	usersAddRoles    []string
	usersAddDisabled bool
)

var usersAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a principal",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersAdd,
}

var usersGrantCmd = &cobra.Command{
	Use:   "grant <username> <role>",
	Short: "Grant a role to a principal",
	Long: `Grant a role to a principal. The role is created if it does not
exist, and granting an already-held role is a no-op.`,
	Args: cobra.ExactArgs(2),
	RunE: runUsersGrant,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List principals and their roles",
	Args:  cobra.NoArgs,
	RunE:  runUsersList,
}

func init() {
	usersAddCmd.Flags().StringVarP(&usersAddPassword, "password", "p", "", "password for the new principal (required)")
	usersAddCmd.Flags().StringSliceVarP(&usersAddRoles, "role", "r", []string{authgate.RoleUser}, "roles to grant")
	usersAddCmd.Flags().BoolVar(&usersAddDisabled, "disabled", false, "create the principal disabled")
	usersAddCmd.MarkFlagRequired("password")

	usersCmd.AddCommand(usersAddCmd, usersGrantCmd, usersListCmd)
	rootCmd.AddCommand(usersCmd)
}

func runUsersAdd(cmd *cobra.Command, args []string) error {
	username := args[0]
	if err := validation.Validate(username,
		validation.Required,
		validation.Length(3, 64),
	); err != nil {
		return fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.Validate(usersAddPassword,
		validation.Required,
		validation.Length(8, 72),
	); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	ctx := context.Background()
	store, db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := authgate.HashPassword(usersAddPassword)
	if err != nil {
		return err
	}

	roles := make([]*authgate.Role, 0, len(usersAddRoles))
	for _, name := range usersAddRoles {
		role, err := store.GetOrCreateRole(ctx, strings.ToUpper(name))
		if err != nil {
			return err
		}
		roles = append(roles, role)
	}

	user, err := store.CreateUser(ctx, &authgate.User{
		Username:     username,
		PasswordHash: hash,
		Enabled:      !usersAddDisabled,
		Roles:        roles,
	})
	if err != nil {
		return err
	}

	fmt.Printf("created %s (%s) with roles %s\n",
		user.Username, user.ID, strings.Join(user.RoleNames(), ", "))
	return nil
}

func runUsersGrant(cmd *cobra.Command, args []string) error {
	username, roleName := args[0], strings.ToUpper(args[1])

	ctx := context.Background()
	store, db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := store.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	role, err := store.GetOrCreateRole(ctx, roleName)
	if err != nil {
		return err
	}
	if err := store.GrantRole(ctx, user.ID, role.ID); err != nil {
		return err
	}

	fmt.Printf("granted %s to %s\n", role.Name, user.Username)
	return nil
}

func runUsersList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	users, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}

	for _, u := range users {
		state := "enabled"
		if !u.Enabled {
			state = "disabled"
		}
		fmt.Printf("%-20s %-8s %s\n", u.Username, state, strings.Join(u.RoleNames(), ", "))
	}
	return nil
}
