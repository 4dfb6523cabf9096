package main

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/rad-link/corestore/internal/storage"
	"github.com/rad-link/corestore/internal/unwinder"
)

func initCmd(s *setup) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "initialize a bare object store at --path",
		Args:    cobra.NoArgs,
		PreRun:  s.logSetupHook(),
		RunE: func(cc *cobra.Command, args []string) error {
			return unwinder.Run(func(unwind *unwinder.U) {
				signer, err := loadSigner(s.key)
				unwind.Check(err)

				h, err := storage.Init(s.path, signer)
				unwind.Check(err)

				if s.debug {
					spew.Fprintf(cc.ErrOrStderr(), "initialized store:\n%#+v\n", h)
				}
				fmt.Fprintln(cc.OutOrStdout(), h.PeerId().String())
			})
		},
	}
	return cmd
}
