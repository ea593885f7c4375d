package commands

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemifol/fieldops/pkg/core/model"
)

// loginRoot mirrors the CLI root: persistent login flags resolved before the subcommand runs
func loginRoot(app *AppContext, cmds ...*cobra.Command) *cobra.Command {
	var user, password string
	root := &cobra.Command{
		Use:          "fieldops",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return nil
			}
			return app.Login(user, password)
		},
	}
	root.PersistentFlags().StringVarP(&user, "user", "u", "", "Username to act as")
	root.PersistentFlags().StringVarP(&password, "password", "p", "", "Password for --user")
	root.AddCommand(cmds...)
	return root
}

func seedWorkday(t *testing.T) *AppContext {
	t.Helper()
	app, root := newTestApp(t)
	script := strings.Join([]string{
		"bootstrap boss",
		"login boss 1234",
		"changePassword s3cret",
		"addSite Nord",
		"addWorker alice",
		"assign alice Nord",
		"login alice 1234",
		"changePassword pw-alice",
		"clockIn Nord --lat 45.46 --lon 9.19",
		"clockOut --lat 45.47 --lon 9.2",
	}, "\n")
	require.NoError(t, runSession(root, app, strings.NewReader(script)))
	app.Actor = model.Actor{}
	return app
}

func TestLogsCmd_LoginFlagsWithWorkerFilter(t *testing.T) {
	app := seedWorkday(t)
	root := loginRoot(app, LogsCmd(app))

	root.SetArgs([]string{"-u", "boss", "-p", "s3cret", "logs", "--worker", "alice"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "boss", app.Actor.Username)

	shifts, err := app.Database.GetShifts(app.Ctx)
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.False(t, shifts[0].Unseen, "reading the logs marks shifts seen")
}

func TestHoursCmd_LoginFlagsWithWorkerFilter(t *testing.T) {
	app := seedWorkday(t)
	root := loginRoot(app, HoursCmd(app))

	root.SetArgs([]string{"--user", "boss", "--password", "s3cret", "hours", "--worker", "alice"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "boss", app.Actor.Username)
}
