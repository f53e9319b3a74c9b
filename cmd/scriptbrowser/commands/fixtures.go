package commands

import (
	"scriptbrowser/internal/components/telemetry"
	"scriptbrowser/lib/util/serviceutil"
	"scriptbrowser/pkg/fixturedb"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	fixturesCmd.AddCommand(fixturesListCmd)
	rootCmd.AddCommand(fixturesCmd)
}

var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "Inspects fixture databases.",
	// fixture databases are read directly, no backend is needed.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {},
}

var fixturesListCmd = &cobra.Command{
	Use:   "list <db>",
	Short: "Lists the fixtures stored in a database.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, err := fixturedb.Open(cmd.Context(), fixturedb.Config{File: args[0]})
		if err != nil {
			serviceutil.Fatal("failed to open fixture db", err)
		}
		defer store.Close()

		rows, err := store.List(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list fixtures", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"#", "Session", "Method", "URL", "Data", "Status", "Redirect", "Roundtrip"})
		for _, r := range rows {
			t.AppendRow(table.Row{
				r.ID,
				r.Session,
				r.Entry.Key.Method,
				r.Entry.Key.URL,
				r.Entry.Key.Data.GoString(),
				r.Entry.Response.HTTPCode,
				r.Entry.Response.Redirect,
				r.Entry.Response.Roundtrip,
			})
		}
		t.Render()
	},
}
