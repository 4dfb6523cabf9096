package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rad-link/corestore/internal/storage"
	"github.com/rad-link/corestore/internal/unwinder"
)

func openCmd(s *setup) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "open",
		Short:  "open the store at --path and print its peer id",
		Args:   cobra.NoArgs,
		PreRun: s.logSetupHook(),
		RunE: func(cc *cobra.Command, args []string) error {
			return unwinder.Run(func(unwind *unwinder.U) {
				h, err := storage.Open(s.path)
				unwind.Check(err)
				fmt.Fprintln(cc.OutOrStdout(), h.PeerId().String())
			})
		},
	}
	return cmd
}
