package commands

import (
	"fmt"
	"log/slog"

	"scriptbrowser/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	visitSave           string
	visitSaveNormalized string
	visitSource         bool
)

func init() {
	visitCmd.Flags().StringVar(&visitSave, "save", "", "Save the page as it was received to this path.")
	visitCmd.Flags().StringVar(&visitSaveNormalized, "save-normalized", "", "Save the re-rendered page with absolute links to this path.")
	visitCmd.Flags().BoolVar(&visitSource, "source", false, "Print the page source.")
	rootCmd.AddCommand(visitCmd)
}

var visitCmd = &cobra.Command{
	Use:   "visit <url>",
	Short: "Visits a page and prints where it landed.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		b := visit(cmd.Context(), args[0])

		t := newTable()
		t.AppendHeader(table.Row{"Status", "URL", "Title", "Roundtrip"})
		t.AppendRow(table.Row{b.StatusCode(), b.URL(), b.Title(), b.Roundtrip()})
		t.Render()

		if visitSave != "" {
			err := b.Save(visitSave)
			if err != nil {
				serviceutil.Fatal("failed to save page", err)
			}
			slog.Info("saved page", "path", visitSave)
		}
		if visitSaveNormalized != "" {
			err := b.SaveNormalized(visitSaveNormalized)
			if err != nil {
				serviceutil.Fatal("failed to save normalized page", err)
			}
			slog.Info("saved normalized page", "path", visitSaveNormalized)
		}
		if visitSource {
			fmt.Println(b.Src())
		}
	},
}
