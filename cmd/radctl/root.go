// Command radctl is a small operator CLI over the storage core, useful for
// poking at a local object store by hand. It is ambient tooling, not a
// routing layer: every subcommand maps directly onto one Storage operation.
package main

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rad-link/corestore/internal/common"
)

type setup struct {
	debug bool
	trace bool
	path  string
	key   string
	env   []string
}

var _ common.LogConfig = (*setup)(nil)

func (s *setup) IsDebug() bool   { return s.debug }
func (s *setup) IsTrace() bool   { return s.trace }
func (s *setup) Output() io.Writer { return os.Stderr }

// EnvVisitor exposes the process environment the way cmdsetup.go does for
// its own subcommands, via the common.KeyValueVisitor seam rather than a
// direct os.Environ() call at every use site.
func (s *setup) EnvVisitor() common.KeyValueVisitor {
	return common.NewEnvVisitor(s.env)
}

// lookupEnv finds key among s.env, falling back to def if absent. Used to
// seed --key's default from RADCTL_KEY so scripted callers need not repeat
// the flag on every invocation.
func (s *setup) lookupEnv(key, def string) string {
	found := def
	_ = s.EnvVisitor()(func(k, v string) error {
		if k == key {
			found = v
		}
		return nil
	})
	return found
}

func logSetup(lc common.LogConfig) {
	log.SetFormatter(&log.TextFormatter{
		PadLevelText:           true,
		DisableLevelTruncation: true,
		FullTimestamp:          true,
	})
	log.SetOutput(lc.Output())

	switch {
	case lc.IsTrace():
		log.SetLevel(log.TraceLevel)
	case lc.IsDebug():
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
}

func (s *setup) logSetupHook() func(cc *cobra.Command, args []string) {
	return func(cc *cobra.Command, args []string) { logSetup(s) }
}

func RootCmd() *cobra.Command {
	s := &setup{env: os.Environ()}

	root := &cobra.Command{
		Use:   "radctl",
		Short: "inspect and drive a local identity store",
	}

	root.PersistentFlags().BoolVarP(&s.debug, "debug", "D", false, "increase verboseness")
	root.PersistentFlags().BoolVar(&s.trace, "trace", false, "highest level of verbosity")
	root.PersistentFlags().StringVar(&s.path, "path", ".", "path to the bare object store")
	root.PersistentFlags().StringVar(&s.key, "key", s.lookupEnv("RADCTL_KEY", ""), "path to a hex-encoded ed25519 seed file (default: $RADCTL_KEY)")

	root.AddCommand(
		initCmd(s),
		openCmd(s),
		createCmd(s),
		trackCmd(s),
		untrackCmd(s),
		refsCmd(s),
	)

	return root
}
