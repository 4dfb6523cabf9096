package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/storage"
	"github.com/rad-link/corestore/internal/unwinder"
)

func createCmd(s *setup) *cobra.Command {
	var payloadFile string

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "create a new identity from a JSON payload file, self-signed and stored",
		Args:    cobra.NoArgs,
		PreRun:  s.logSetupHook(),
		RunE: func(cc *cobra.Command, args []string) error {
			return unwinder.Run(func(unwind *unwinder.U) {
				signer, err := loadSigner(s.key)
				unwind.Check(err)

				raw, err := ioutil.ReadFile(payloadFile)
				unwind.Check(err)

				var payload json.RawMessage
				unwind.Check(json.Unmarshal(raw, &payload))

				e, err := identity.NewEntity[json.RawMessage](payload, nil)
				unwind.Check(err)
				unwind.Check(identity.SignSelf(e, signer))

				h, err := storage.OpenOrInit(s.path, signer)
				unwind.Check(err)

				urn, err := storage.CreateRepo(h, e)
				unwind.Check(err)

				if s.debug {
					spew.Fprintf(cc.ErrOrStderr(), "created entity:\n%#+v\n", e)
				}
				fmt.Fprintln(cc.OutOrStdout(), urn.String())
			})
		},
	}

	cmd.Flags().StringVar(&payloadFile, "payload", "", "path to a JSON payload file")
	_ = cmd.MarkFlagRequired("payload")

	return cmd
}
