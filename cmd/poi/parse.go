package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/torosent/poi/internal/config"
	"github.com/torosent/poi/internal/extractor"
	"github.com/torosent/poi/internal/har"
	"github.com/torosent/poi/internal/request"
)

type parseOptions struct {
	name    string
	harFile string
	convert har.ConvertOptions
	anyType bool
}

func newParseCmd() *cobra.Command {
	opts := parseOptions{convert: har.DefaultOptions()}

	cmd := &cobra.Command{
		Use:   "parse (URL | --har FILE)",
		Short: "Print profile skeletons built from a URL or a HAR capture",
		Long: "parse turns a URL into a YAML profile: the query string becomes req.params\n" +
			"and the rest of the URL req.url. With --har every matching request recorded\n" +
			"in an HTTP Archive becomes a profile. Append the output to your profile file.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case opts.harFile != "" && len(args) > 0:
				return errors.New("pass either a URL or --har, not both")
			case opts.harFile != "":
				opts.convert.JSONOnly = !opts.anyType
				return parseHAR(cmd, opts)
			case len(args) == 0:
				return errors.New("a URL or --har file is required")
			}

			req, err := request.FromURL(args[0])
			if err != nil {
				return err
			}
			return config.Encode(cmd.OutOrStdout(), opts.name, req, extractor.Profile{})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.name, "name", "default", "Name of the generated profile")
	flags.StringVar(&opts.harFile, "har", "", "HAR file to convert")
	flags.StringSliceVar(&opts.convert.IncludeHosts, "include-host", nil, "Only convert requests to these hosts (--har)")
	flags.StringSliceVar(&opts.convert.ExcludeHosts, "exclude-host", nil, "Skip requests to these hosts (--har)")
	flags.StringSliceVar(&opts.convert.IncludeMethods, "method", nil, "Only convert these HTTP methods (--har)")
	flags.BoolVar(&opts.anyType, "any-response", false, "Also convert requests whose response was not JSON (--har)")
	return cmd
}

func parseHAR(cmd *cobra.Command, opts parseOptions) error {
	archive, err := har.ParseFile(opts.harFile)
	if err != nil {
		return err
	}
	result, err := har.Convert(archive, opts.convert)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	for _, reason := range result.Skipped {
		fmt.Fprintf(stderr, "skipped %s\n", reason)
	}
	if len(result.Profiles) == 0 {
		return fmt.Errorf("no requests in %s matched", opts.harFile)
	}

	stdout := cmd.OutOrStdout()
	for _, p := range result.Profiles {
		if err := config.Encode(stdout, p.Name, p.Request, extractor.Profile{}); err != nil {
			return err
		}
	}
	return nil
}
