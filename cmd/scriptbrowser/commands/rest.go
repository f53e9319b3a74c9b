package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"scriptbrowser/lib/util/serviceutil"
	"scriptbrowser/pkg/fixture"
	"scriptbrowser/pkg/restclient"

	"github.com/spf13/cobra"
)

var restData string

func init() {
	restCmd.Flags().StringVar(&restData, "data", "", "The request body for create and update.")
	rootCmd.AddCommand(restCmd)
}

func rest(ctx context.Context, client *restclient.Client, method, obj, uid string) (string, error) {
	data := fixture.Opaque(restData)
	switch strings.ToLower(method) {
	case "create", "post":
		return client.Create(ctx, obj, data)
	case "read", "get":
		return client.Read(ctx, obj, uid)
	case "head":
		headers, err := client.Head(ctx, obj, uid)
		if err != nil {
			return "", err
		}
		names := make([]string, 0, len(headers))
		for k := range headers {
			names = append(names, k)
		}
		sort.Strings(names)

		var out strings.Builder
		for _, k := range names {
			fmt.Fprintf(&out, "%s: %s\n", k, headers[k])
		}
		return out.String(), nil
	case "update", "put":
		return client.Update(ctx, obj, uid, data)
	case "destroy", "delete":
		return client.Destroy(ctx, obj, uid)
	}
	return "", fmt.Errorf("unknown method %q", method)
}

var restCmd = &cobra.Command{
	Use:   "rest <create|read|head|update|destroy> <base> <object> [uid] [--data <body>]",
	Short: "Performs a REST operation and prints the response body.",
	Args:  cobra.RangeArgs(3, 4),
	Run: func(cmd *cobra.Command, args []string) {
		uid := ""
		if len(args) == 4 {
			uid = args[3]
		}
		client := restclient.New(
			args[1],
			current,
			restclient.WithRetries(config.Retries),
			restclient.WithAuth(auth),
		)

		body, err := rest(cmd.Context(), client, args[0], args[2], uid)
		if err != nil {
			serviceutil.Fatal("rest request failed", err)
		}
		fmt.Println(body)
	},
}
