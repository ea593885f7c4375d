package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chemifol/fieldops/pkg/core/services"
)

// RequestMaterialCmd creates the requestMaterial command
func RequestMaterialCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "requestMaterial <site> <items>",
		Short: "Ask for material to be delivered to one of your sites",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			items := strings.Join(args[1:], " ")
			req, err := services.SubmitMaterialRequest(app.Ctx, app.Database, app.Logger, app.Actor, args[0], items, app.Now())
			if err != nil {
				return err
			}
			fmt.Printf("✓ Request %s sent for %s\n", req.ID, req.SiteName)
			return nil
		},
	}
}

// MyRequestsCmd creates the myRequests command
func MyRequestsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "myRequests",
		Short: "Show your latest material requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := services.RecentMaterialRequests(app.Ctx, app.Database, app.Logger, app.Actor, app.Cfg.Roster.RecentRequestsLimit)
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				fmt.Println("No requests yet.")
				return nil
			}
			loc := app.Cfg.Location()
			fmt.Println()
			for _, r := range reqs {
				fmt.Printf("%s  %-9s %-20s %s\n", formatStamp(r.RequestDate, loc), r.Status, r.SiteName, r.ItemList)
			}
			fmt.Println()
			return nil
		},
	}
}

// MaterialsCmd creates the materials command
func MaterialsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materials",
		Short: "List material requests (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			site, _ := cmd.Flags().GetString("site")

			reqs, err := services.ListMaterialRequests(app.Ctx, app.Database, app.Logger, app.Actor,
				services.MaterialFilter{Status: strings.ToUpper(status), SiteName: site})
			if err != nil {
				return err
			}

			loc := app.Cfg.Location()
			fmt.Printf("\n%d requests (* = new)\n\n", len(reqs))
			for _, r := range reqs {
				fmt.Printf("%s %-6s %s  %-9s %-12s %-20s\n    %s\n",
					unseenMark(r.Unseen), r.ID, formatStamp(r.RequestDate, loc), r.Status, r.Username, r.SiteName,
					strings.ReplaceAll(r.ItemList, "\n", "\n    "))
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().String("status", "", "PENDING or ARCHIVED")
	cmd.Flags().String("site", "", "Only this site")
	return cmd
}

// FulfillMaterialCmd creates the fulfillMaterial command
func FulfillMaterialCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fulfillMaterial <request_id>",
		Short: "Mark a material request as delivered (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := services.FulfillMaterialRequest(app.Ctx, app.Database, app.Logger, app.Actor, args[0], app.Now())
			if err != nil {
				return err
			}
			fmt.Printf("✓ Request %s archived\n", req.ID)
			return nil
		},
	}
}

// DeleteMaterialCmd creates the deleteMaterial command
func DeleteMaterialCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteMaterial <request_id>",
		Short: "Delete an archived material request (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.DeleteMaterialRequest(app.Ctx, app.Database, app.Logger, app.Actor, args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Request %s deleted\n", args[0])
			return nil
		},
	}
}

// ReportIssueCmd creates the reportIssue command
func ReportIssueCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reportIssue [description] [--image <ref>]",
		Short: "Report a problem on the site you are clocked in at",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			image, _ := cmd.Flags().GetString("image")
			var imageRef *string
			if image != "" {
				imageRef = &image
			}

			issue, err := services.ReportIssue(app.Ctx, app.Database, app.Logger, app.Actor, strings.Join(args, " "), imageRef, app.Now())
			if err != nil {
				return err
			}
			fmt.Printf("✓ Issue %s reported for %s\n", issue.ID, issue.SiteName)
			return nil
		},
	}
	cmd.Flags().String("image", "", "Reference to a photo of the problem")
	return cmd
}

// IssuesCmd creates the issues command
func IssuesCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List reported issues (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			site, _ := cmd.Flags().GetString("site")

			issues, err := services.ListIssues(app.Ctx, app.Database, app.Logger, app.Actor,
				services.IssueFilter{Status: strings.ToUpper(status), SiteName: site})
			if err != nil {
				return err
			}

			loc := app.Cfg.Location()
			fmt.Printf("\n%d issues (* = new)\n\n", len(issues))
			for _, i := range issues {
				fmt.Printf("%s %-6s %s  %-8s %-12s %-20s %s\n",
					unseenMark(i.Unseen), i.ID, formatStamp(i.ReportedAt, loc), i.Status, i.Username, i.SiteName, i.Description)
				if i.ImageRef != nil {
					fmt.Printf("    image: %s\n", *i.ImageRef)
				}
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().String("status", "", "OPEN or RESOLVED")
	cmd.Flags().String("site", "", "Only this site")
	return cmd
}

// ResolveIssueCmd creates the resolveIssue command
func ResolveIssueCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolveIssue <issue_id>",
		Short: "Mark an issue as resolved (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issue, err := services.ResolveIssue(app.Ctx, app.Database, app.Logger, app.Actor, args[0], app.Now())
			if err != nil {
				return err
			}
			fmt.Printf("✓ Issue %s resolved\n", issue.ID)
			return nil
		},
	}
}

// DeleteIssueCmd creates the deleteIssue command
func DeleteIssueCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteIssue <issue_id>",
		Short: "Delete a resolved issue (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.DeleteIssue(app.Ctx, app.Database, app.Logger, app.Actor, args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Issue %s deleted\n", args[0])
			return nil
		},
	}
}

// BadgesCmd creates the badges command
func BadgesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "badges",
		Short: "Count what the admin has not looked at yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := services.Badges(app.Ctx, app.Database, app.Logger, app.Actor)
			if err != nil {
				return err
			}
			fmt.Printf("\nNew shifts:    %d\n", counts.Shifts)
			fmt.Printf("Open issues:   %d\n", counts.Issues)
			fmt.Printf("Pending asks:  %d\n\n", counts.Materials)
			return nil
		},
	}
}
