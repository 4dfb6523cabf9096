package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/storage"
	"github.com/rad-link/corestore/internal/unwinder"
)

func trackCmd(s *setup) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "track <urn> <peer-id>",
		Short:  "add peer to the first-degree tracking set of urn",
		Args:   cobra.ExactArgs(2),
		PreRun: s.logSetupHook(),
		RunE: func(cc *cobra.Command, args []string) error {
			return unwinder.Run(func(unwind *unwinder.U) {
				signer, err := loadSigner(s.key)
				unwind.Check(err)

				h, err := storage.OpenOrInit(s.path, signer)
				unwind.Check(err)

				urn, err := identity.ParseURN(args[0])
				unwind.Check(err)

				peer, err := identity.ParsePeerId(args[1])
				unwind.Check(err)

				unwind.Check(h.Track(urn, peer))
				fmt.Fprintln(cc.OutOrStdout(), "ok")
			})
		},
	}
	return cmd
}
