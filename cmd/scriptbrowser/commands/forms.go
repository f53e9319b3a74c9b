package commands

import (
	"slices"
	"strconv"

	"scriptbrowser/lib/util/serviceutil"
	"scriptbrowser/pkg/browser"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var formsSelect string

func init() {
	formsCmd.Flags().StringVar(&formsSelect, "form", "", "Also list the fields of the form with this index, name or id.")
	rootCmd.AddCommand(formsCmd)
}

// selectForm takes an index or a name/id.
func selectForm(b *browser.Browser, form string) error {
	idx, err := strconv.Atoi(form)
	if err == nil {
		return b.FormSelect(idx)
	}
	return b.FormSelectNamed(form)
}

var formsCmd = &cobra.Command{
	Use:   "forms <url> [--form <index|name>]",
	Short: "Lists the forms of a page.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		b := visit(cmd.Context(), args[0])

		forms, err := b.Forms()
		if err != nil {
			serviceutil.Fatal("failed to list forms", err)
		}
		t := newTable()
		t.AppendHeader(table.Row{"#", "Name", "ID", "Class"})
		for _, f := range forms {
			t.AppendRow(table.Row{f.Number, f.Name, f.ID, f.Class})
		}
		t.Render()

		if formsSelect == "" {
			return
		}
		err = selectForm(b, formsSelect)
		if err != nil {
			serviceutil.Fatal("failed to select form", err)
		}

		fields, err := b.FormFields()
		if err != nil {
			serviceutil.Fatal("failed to read form fields", err)
		}
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		slices.Sort(names)

		t = newTable()
		t.AppendHeader(table.Row{"Field", "Value"})
		for _, name := range names {
			t.AppendRow(table.Row{name, fields[name]})
		}
		t.Render()

		submits, err := b.FormSubmits()
		if err != nil {
			return
		}
		t = newTable()
		t.AppendHeader(table.Row{"#", "Submit", "Value"})
		for _, s := range submits {
			t.AppendRow(table.Row{s.Number, s.Name, s.Value})
		}
		t.Render()
	},
}
