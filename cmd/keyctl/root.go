package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/claudiator/server-go/internal/config"
	"github.com/claudiator/server-go/internal/model"
)

type rootOptions struct {
	server    string
	masterKey string
}

func (o *rootOptions) client() (*adminClient, error) {
	if o.masterKey == "" {
		return nil, fmt.Errorf("master key required: pass --master-key or set %sAPI_KEY", config.EnvPrefix)
	}
	return newAdminClient(o.server, o.masterKey), nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "keyctl",
		Short:         "Manage scoped API keys on a local claudiator server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", "http://127.0.0.1:3000", "server base URL (admin routes only answer on loopback)")
	cmd.PersistentFlags().StringVar(&opts.masterKey, "master-key", os.Getenv(config.EnvPrefix+"API_KEY"), "master API key")

	cmd.AddCommand(newCreateCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))

	return cmd
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		name      string
		scopes    []string
		rateLimit int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}

			req := model.CreateAPIKeyRequest{Name: name, Scopes: scopes}
			if cmd.Flags().Changed("rate-limit") {
				req.RateLimit = &rateLimit
			}

			created, err := client.CreateKey(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:      %s\n", created.ID)
			fmt.Fprintf(out, "name:    %s\n", created.Name)
			fmt.Fprintf(out, "scopes:  %s\n", created.Scopes)
			if created.RateLimit != nil {
				fmt.Fprintf(out, "limit:   %d/min\n", *created.RateLimit)
			}
			fmt.Fprintf(out, "key:     %s\n", created.Key)
			fmt.Fprintln(out, "Store the key now; it cannot be shown again.")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "key name")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{"read"}, "scopes to grant (read, write)")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute for this key")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}

			keys, err := client.ListKeys(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPREFIX\tSCOPES\tLIMIT\tLAST USED")
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					k.ID, k.Name, k.KeyPrefix, k.Scopes, limitColumn(k.RateLimit), orDash(k.LastUsed))
			}
			return tw.Flush()
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}

			id := strings.TrimSpace(args[0])
			if err := client.DeleteKey(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		},
	}
}

func limitColumn(limit *int) string {
	if limit == nil {
		return "default"
	}
	return fmt.Sprintf("%d/min", *limit)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
