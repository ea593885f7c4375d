package commands

import "github.com/spf13/cobra"

// All returns every command the CLI exposes, bound to app
func All(app *AppContext) []*cobra.Command {
	return []*cobra.Command{
		LoginCmd(app),
		BootstrapCmd(app),
		ChangePasswordCmd(app),
		ResetPasswordCmd(app),

		ClockInCmd(app),
		ClockOutCmd(app),
		ShiftCmd(app),
		LogsCmd(app),
		HoursCmd(app),
		CalendarCmd(app),
		DeleteShiftCmd(app),

		RequestMaterialCmd(app),
		MyRequestsCmd(app),
		MaterialsCmd(app),
		FulfillMaterialCmd(app),
		DeleteMaterialCmd(app),

		ReportIssueCmd(app),
		IssuesCmd(app),
		ResolveIssueCmd(app),
		DeleteIssueCmd(app),
		BadgesCmd(app),

		BoardCmd(app),
		PublishCmd(app),
		AnnouncementsCmd(app),
		DeleteAnnouncementCmd(app),

		AssignCmd(app),
		SitesCmd(app),
		AddSiteCmd(app),
		DeactivateSiteCmd(app),
		AddWorkerCmd(app),
		RemoveWorkerCmd(app),
		WorkersCmd(app),

		InteractiveCmd(app),
	}
}
