package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/torosent/poi/internal/override"
	"github.com/torosent/poi/internal/request"
)

func newURLCmd() *cobra.Command {
	var (
		name    string
		extras  []string
		urlOnly bool
	)

	cmd := &cobra.Command{
		Use:   "url -p PROFILE [-e OVERRIDE]...",
		Short: "Show the request a profile would send, without sending it",
		Long: "url prints the method, final URL, headers and encoded body of a profile\n" +
			"request with the overrides applied. GET and HEAD requests whose body is\n" +
			"empty are sent with no body at all, so nothing is printed after the headers.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			profile, err := e.registry.Get(name)
			if err != nil {
				return err
			}
			set, err := override.FromTokens(extras)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if urlOnly {
				final, err := profile.Request.FinalURL(set)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(stdout, final)
				return err
			}

			prepared, err := profile.Request.Prepare(set)
			if err != nil {
				return err
			}
			return printPrepared(stdout, prepared)
		},
	}

	cmd.Flags().StringVarP(&name, "profile", "p", "", "Profile name")
	cmd.Flags().StringArrayVarP(&extras, "extra", "e", nil, extraUsage)
	cmd.Flags().BoolVar(&urlOnly, "url-only", false, "Print only the final URL")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

// printPrepared writes a prepared request in HTTP/1.1 message layout.
func printPrepared(w io.Writer, r *request.Prepared) error {
	if _, err := fmt.Fprintf(w, "%s %s\n", r.Method, r.URL.Redacted()); err != nil {
		return err
	}

	keys := make([]string, 0, len(r.Header))
	for key := range r.Header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, value := range r.Header[key] {
			if _, err := fmt.Fprintf(w, "%s: %s\n", key, value); err != nil {
				return err
			}
		}
	}

	if len(r.Body) > 0 {
		if _, err := fmt.Fprintf(w, "\n%s\n", r.Body); err != nil {
			return err
		}
	}
	return nil
}
