package commands

import (
	"context"
	"fmt"
	"strconv"

	"scriptbrowser/lib/util/serviceutil"
	"scriptbrowser/pkg/browser"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	submitForm     string
	submitValues   map[string]string
	submitDropdown map[string]string
	submitButton   string
	submitNoButton bool
	submitSource   bool
)

func init() {
	flags := submitCmd.Flags()
	flags.StringVar(&submitForm, "form", "0", "The index, name or id of the form to submit.")
	flags.StringToStringVar(&submitValues, "set", nil, "Field values to set, as name=value.")
	flags.StringToStringVar(&submitDropdown, "choose", nil, "Dropdown options to choose by their title, as name=title.")
	flags.StringVar(&submitButton, "button", "", "The index, name or value of the submit button to use.")
	flags.BoolVar(&submitNoButton, "no-button", false, "Submit without any submit button.")
	flags.BoolVar(&submitSource, "source", false, "Print the source of the resulting page.")
	rootCmd.AddCommand(submitCmd)
}

func submit(ctx context.Context, b *browser.Browser) (int, error) {
	if submitNoButton {
		return b.FormSubmitNoButton(ctx)
	}
	if submitButton == "" {
		return b.FormSubmit(ctx)
	}
	idx, err := strconv.Atoi(submitButton)
	if err == nil {
		return b.FormSubmitButton(ctx, idx)
	}
	return b.FormSubmitButtonNamed(ctx, submitButton)
}

var submitCmd = &cobra.Command{
	Use:   "submit <url> [--form <index|name>] [--set name=value] [--button <index|name>]",
	Short: "Fills in and submits a form.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		b := visit(cmd.Context(), args[0])

		err := selectForm(b, submitForm)
		if err != nil {
			serviceutil.Fatal("failed to select form", err)
		}
		for name, title := range submitDropdown {
			err = b.FormFillDropdown(name, title)
			if err != nil {
				serviceutil.Fatal("failed to choose dropdown option", err)
			}
		}
		err = b.FormDataUpdate(submitValues)
		if err != nil {
			serviceutil.Fatal("failed to set form values", err)
		}

		_, err = submit(cmd.Context(), b)
		if err != nil {
			serviceutil.Fatal("failed to submit form", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Status", "URL", "Title", "Roundtrip"})
		t.AppendRow(table.Row{b.StatusCode(), b.URL(), b.Title(), b.Roundtrip()})
		t.Render()
		if submitSource {
			fmt.Println(b.Src())
		}
	},
}
