package commands

import (
	"scriptbrowser/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var linksFollow string

func init() {
	linksCmd.Flags().StringVar(&linksFollow, "follow", "", "Follow the link with this text (or xpath, when starting with /) and list the links of the page it leads to.")
	rootCmd.AddCommand(linksCmd)
}

var linksCmd = &cobra.Command{
	Use:   "links <url> [--follow <text|xpath>]",
	Short: "Lists the links of a page.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		b := visit(cmd.Context(), args[0])
		if linksFollow != "" {
			_, err := b.FollowLink(cmd.Context(), linksFollow)
			if err != nil {
				serviceutil.Fatal("failed to follow link", err)
			}
		}

		links, err := b.Links(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list links", err)
		}
		t := newTable()
		t.AppendHeader(table.Row{"Text", "Href"})
		for _, l := range links {
			t.AppendRow(table.Row{l.Name, l.Href})
		}
		t.Render()
	},
}
