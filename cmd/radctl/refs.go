package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/storage"
	"github.com/rad-link/corestore/internal/unwinder"
)

func refsCmd(s *setup) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "refs <urn>",
		Short:  "print the locally-computed rad/refs snapshot for urn as JSON",
		Args:   cobra.ExactArgs(1),
		PreRun: s.logSetupHook(),
		RunE: func(cc *cobra.Command, args []string) error {
			return unwinder.Run(func(unwind *unwinder.U) {
				h, err := storage.Open(s.path)
				unwind.Check(err)

				urn, err := identity.ParseURN(args[0])
				unwind.Check(err)

				refs, err := h.RadRefs(urn)
				unwind.Check(err)

				out, err := json.MarshalIndent(refs, "", "  ")
				unwind.Check(err)

				fmt.Fprintln(cc.OutOrStdout(), string(out))
			})
		},
	}
	return cmd
}
