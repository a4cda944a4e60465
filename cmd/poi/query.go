package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/torosent/poi/internal/output"
	"github.com/torosent/poi/internal/override"
	"github.com/torosent/poi/internal/request"
)

const extraUsage = "Override as key=value (query), %key=value (header) or @key=value (body); repeatable"

func newQueryCmd() *cobra.Command {
	var (
		name    string
		extras  []string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "query -p PROFILE [-e OVERRIDE]...",
		Short: "Send one request and print the extracted record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			profile, err := e.profile(name)
			if err != nil {
				return err
			}
			set, err := override.FromTokens(extras)
			if err != nil {
				return err
			}

			resp, err := profile.Request.Send(cmd.Context(), e.client, set)
			if err != nil {
				return err
			}
			if verbose {
				if err := printResponseHead(cmd.ErrOrStderr(), resp); err != nil {
					resp.Body.Close()
					return err
				}
			}
			rec, err := profile.Extract(resp)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			return output.PrintRecord(stdout, rec, colorEnabled(e.settings.Color, stdout))
		},
	}

	cmd.Flags().StringVarP(&name, "profile", "p", "", "Profile name")
	cmd.Flags().StringArrayVarP(&extras, "extra", "e", nil, extraUsage)
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print the response status and headers to stderr")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

// printResponseHead writes the status line and headers, sorted by name.
func printResponseHead(w io.Writer, resp *request.Response) error {
	if _, err := fmt.Fprintf(w, "< %s\n", resp.StatusText()); err != nil {
		return err
	}
	for _, key := range resp.HeaderKeys() {
		if _, err := fmt.Fprintf(w, "< %s: %s\n", key, strings.Join(resp.Header.Values(key), ", ")); err != nil {
			return err
		}
	}
	return nil
}
