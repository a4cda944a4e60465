package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/torosent/poi/internal/config"
)

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles [NAME]",
		Short: "List profile names, or print one profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings(cmd.Flags())
			if err != nil {
				return err
			}
			registry, err := config.Load(settings.ConfigFile)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(args) == 1 {
				profile, err := registry.Get(args[0])
				if err != nil {
					return err
				}
				return config.EncodeProfile(stdout, profile)
			}

			for _, name := range registry.Names() {
				if _, err := fmt.Fprintln(stdout, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
