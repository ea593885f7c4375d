package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chemifol/fieldops/pkg/core/model"
	"github.com/chemifol/fieldops/pkg/core/services"
)

// LoginCmd creates the login command
func LoginCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Switch the identity the following commands run as",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Login(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("✓ Logged in as %s (%s)\n", app.Actor.DisplayName, app.Actor.Role)
			if app.Actor.MustChangePassword {
				fmt.Println("You must run changePassword before anything else.")
			}
			return nil
		},
	}
}

// BootstrapCmd creates the bootstrap command
func BootstrapCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap <admin_username>",
		Short: "Create the first admin of an empty roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := services.BootstrapAdmin(app.Ctx, app.Database, app.Logger, app.Policy(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("✓ Admin %s created with the initial password; change it on first login\n", w.Username)
			return nil
		},
	}
}

// ChangePasswordCmd creates the changePassword command
func ChangePasswordCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "changePassword <new_password>",
		Short: "Change your password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := services.ChangePassword(app.Ctx, app.Database, app.Logger, app.Actor, app.Policy(), args[0])
			if err != nil {
				return err
			}
			app.Actor = actor
			fmt.Println("✓ Password changed")
			return nil
		},
	}
}

// ResetPasswordCmd creates the resetPassword command
func ResetPasswordCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resetPassword <username>",
		Short: "Put a worker back on the initial password (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.ResetPassword(app.Ctx, app.Database, app.Logger, app.Actor, app.Policy(), args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Password of %s reset\n", args[0])
			return nil
		},
	}
}

// AddWorkerCmd creates the addWorker command
func AddWorkerCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addWorker <username> [display name]",
		Short: "Add a worker to the roster (admin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			isAdmin, _ := cmd.Flags().GetBool("admin")
			role := model.RoleWorker
			if isAdmin {
				role = model.RoleAdmin
			}

			w, err := services.CreateWorker(app.Ctx, app.Database, app.Logger, app.Actor, app.Policy(),
				args[0], strings.Join(args[1:], " "), role)
			if err != nil {
				return err
			}
			fmt.Printf("✓ %s (%s) added as %s\n", w.DisplayName, w.Username, w.Role)
			return nil
		},
	}
	cmd.Flags().Bool("admin", false, "Give the new account the admin role")
	return cmd
}

// RemoveWorkerCmd creates the removeWorker command
func RemoveWorkerCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "removeWorker <username>",
		Short: "Remove a worker and their assignments (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.RemoveWorker(app.Ctx, app.Database, app.Logger, app.Actor, args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ %s removed\n", args[0])
			return nil
		},
	}
}

// WorkersCmd creates the workers command
func WorkersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "workers",
		Short: "List the roster with each worker's sites (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, err := services.ListWorkers(app.Ctx, app.Database, app.Logger, app.Actor)
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d workers:\n\n", len(workers))
			for _, w := range workers {
				sites, err := services.SitesFor(app.Ctx, app.Database, w.Username)
				if err != nil {
					return err
				}
				pending := ""
				if w.MustChangePassword {
					pending = " [password change pending]"
				}
				fmt.Printf("- %s (%s) - %s - %s%s\n", w.DisplayName, w.Username, w.Role, strings.Join(sites, ", "), pending)
			}
			fmt.Println()
			return nil
		},
	}
}

// AssignCmd creates the assign command
func AssignCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <username> [site,...]",
		Short: "Replace the set of sites a worker may clock in at (admin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sites := splitList(strings.Join(args[1:], ","))
			assigned, err := services.SetAssignments(app.Ctx, app.Database, app.Logger, app.Actor, args[0], sites)
			if err != nil {
				return err
			}
			if len(assigned) == 0 {
				fmt.Printf("✓ %s has no sites\n", args[0])
				return nil
			}
			fmt.Printf("✓ %s assigned to %s\n", args[0], strings.Join(assigned, ", "))
			return nil
		},
	}
}

// SitesCmd creates the sites command
func SitesCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List sites; workers see the ones assigned to them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.Actor.IsAdmin() {
				sites, err := services.SitesFor(app.Ctx, app.Database, app.Actor.Username)
				if err != nil {
					return err
				}
				fmt.Printf("\nYour sites: %s\n\n", strings.Join(sites, ", "))
				return nil
			}

			all, _ := cmd.Flags().GetBool("all")
			sites, err := services.ListSites(app.Ctx, app.Database, app.Logger, !all)
			if err != nil {
				return err
			}
			fmt.Println()
			for _, s := range sites {
				workers, err := services.WorkersFor(app.Ctx, app.Database, s.Name)
				if err != nil {
					return err
				}
				state := ""
				if !s.Active {
					state = " [inactive]"
				}
				fmt.Printf("- %s%s: %s\n", s.Name, state, strings.Join(workers, ", "))
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "Include inactive sites")
	return cmd
}

// AddSiteCmd creates the addSite command
func AddSiteCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "addSite <name>",
		Short: "Create or reactivate a site (admin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, err := services.CreateSite(app.Ctx, app.Database, app.Logger, app.Actor, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Printf("✓ Site %s is active\n", site.Name)
			return nil
		},
	}
}

// DeactivateSiteCmd creates the deactivateSite command
func DeactivateSiteCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivateSite <name>",
		Short: "Close a site and drop its assignments (admin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			unassigned, err := services.DeactivateSite(app.Ctx, app.Database, app.Logger, app.Actor, name)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Site %s deactivated\n", name)
			if len(unassigned) > 0 {
				fmt.Printf("Unassigned: %s\n", strings.Join(unassigned, ", "))
			}
			return nil
		},
	}
}
