package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chemifol/fieldops/pkg/core/model"
	"github.com/chemifol/fieldops/pkg/core/services"
	"github.com/chemifol/fieldops/pkg/db"
)

// BoardCmd creates the board command
func BoardCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Read the announcements addressed to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := services.VisibleFor(app.Ctx, app.Database, app.Logger, app.Actor.Username, app.Now())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("Nothing on the board.")
				return nil
			}
			printAnnouncements(app, items)
			return nil
		},
	}
}

// PublishCmd creates the publish command
func PublishCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <title> <message>",
		Short: "Post an announcement (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetString("to")
			days, _ := cmd.Flags().GetInt("days")
			if days == 0 {
				days = app.Cfg.Board.DefaultDurationDays
			}

			a, err := services.Publish(app.Ctx, app.Database, app.Logger, app.Actor, services.AnnouncementInput{
				Title:        args[0],
				Message:      args[1],
				Recipients:   splitList(to),
				DurationDays: days,
			}, app.Cfg.Board.MaxDurationDays, app.Now())
			if err != nil {
				return err
			}
			fmt.Printf("✓ Announcement %s published until %s\n", a.ID, formatStamp(a.ExpiresAt, app.Cfg.Location()))
			return nil
		},
	}
	cmd.Flags().String("to", model.RecipientsAll, "ALL or a comma separated list of usernames")
	cmd.Flags().Int("days", 0, "Days the announcement stays up (default from config)")
	return cmd
}

// AnnouncementsCmd creates the announcements command
func AnnouncementsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "announcements",
		Short: "List every active announcement (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := services.ActiveAnnouncements(app.Ctx, app.Database, app.Logger, app.Actor, app.Now())
			if err != nil {
				return err
			}
			printAnnouncements(app, items)
			return nil
		},
	}
}

// DeleteAnnouncementCmd creates the deleteAnnouncement command
func DeleteAnnouncementCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteAnnouncement <announcement_id>",
		Short: "Take an announcement down (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.DeleteAnnouncement(app.Ctx, app.Database, app.Logger, app.Actor, args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Announcement %s deleted\n", args[0])
			return nil
		},
	}
}

func printAnnouncements(app *AppContext, items []db.Announcement) {
	loc := app.Cfg.Location()
	fmt.Println()
	for _, a := range items {
		fmt.Printf("[%s] %s  (to %s, until %s)\n", a.ID, a.Title, a.Recipients, formatStamp(a.ExpiresAt, loc))
		fmt.Printf("  %s\n", a.Message)
		fmt.Printf("  published %s\n\n", formatStamp(a.PublishedAt, loc))
	}
}
