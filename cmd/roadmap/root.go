package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/roadmap/internal/claims"
	"github.com/mesh-intelligence/roadmap/internal/consistency"
	"github.com/mesh-intelligence/roadmap/internal/guidance"
	"github.com/mesh-intelligence/roadmap/internal/logging"
	"github.com/mesh-intelligence/roadmap/internal/paths"
	"github.com/mesh-intelligence/roadmap/internal/service"
	"github.com/mesh-intelligence/roadmap/internal/storage"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app carries the resolved configuration and the components a command
// needs. Components are opened on first use and closed after the command.
type app struct {
	flags rootFlags
	out   io.Writer

	v      *viper.Viper
	cfg    types.Config
	root   string
	logger *logging.Logger

	store   *storage.Store
	claims  *claims.Store
	svc     *service.Service
	checker *consistency.Checker
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "roadmap",
		Short: "Edit the development roadmap and keep its replicas in step",
		Long: `roadmap edits the task and bug tables of the development roadmap.
Every change is propagated to dependent tasks and pushed into the feature
documents and source files that embed the same rows.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			if cmd.Name() == "version" {
				return nil
			}
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/roadmap)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "journal directory (default: $(CWD)/.roadmap-db)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newEditCmd(a),
		newClaimCmd(a),
		newUnclaimCmd(a),
		newCleanupCmd(a),
		newAddCmd(a),
		newRemoveCmd(a),
		newSplitCmd(a),
		newRefreshCmd(a),
		newDocChangeCmd(a),
		newCheckCmd(a),
		newSyncCmd(a),
		newWatchCmd(a),
	)
	return root, a
}

// load reads the configuration and builds the logger.
func (a *app) load() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError{err}
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysError{err}
	}
	cfg, root, err := storeConfig(v, a.flags.dataDir)
	if err != nil {
		return sysError{err}
	}
	logger, err := logging.New(logging.Options{
		Level:  v.GetString(cfgKeyLogLevel),
		Format: v.GetString(cfgKeyLogFormat),
		File:   paths.Resolve(root, v.GetString(cfgKeyLogFile)),
		Prefix: "roadmap",
	})
	if err != nil {
		return err
	}
	a.v, a.cfg, a.root, a.logger = v, cfg, root, logger
	return nil
}

// open opens the store, the claims file and the services.
func (a *app) open() error {
	if a.svc != nil {
		return nil
	}
	st, err := storage.Open(a.cfg, a.logger.Logger)
	if err != nil {
		return err
	}
	cs, err := claims.New(claims.Options{
		Path:   a.cfg.ClaimsPath,
		Expiry: a.cfg.GetClaimExpiry(),
		Logger: a.logger.Logger,
	})
	if err != nil {
		st.Close()
		return sysError{err}
	}
	g, err := guidance.Load(a.cfg.GuidancePath)
	if err != nil {
		st.Close()
		return err
	}
	svc, err := service.New(service.Options{
		Store:    st,
		Claims:   cs,
		Guidance: g,
		Logger:   a.logger.Logger,
	})
	if err != nil {
		st.Close()
		return sysError{err}
	}
	a.store, a.claims, a.svc = st, cs, svc
	a.checker = consistency.New(st, a.logger.Logger)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.logger != nil {
			a.logger.Error("closing store", "err", err)
		}
		a.store = nil
	}
	if a.logger != nil {
		a.logger.Close()
	}
}

// sysError marks failures of the environment rather than of the request.
type sysError struct{ err error }

func (e sysError) Error() string { return e.err.Error() }
func (e sysError) Unwrap() error { return e.err }

// partialError reports a batch command in which some ids failed.
type partialError struct{ failed int }

func (e partialError) Error() string {
	if e.failed == 1 {
		return "1 item failed"
	}
	return fmt.Sprintf("%d items failed", e.failed)
}

// exitCode maps an error to the process exit code. I/O failures are
// system errors; everything else is the caller's.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var se sysError
	if errors.As(err, &se) {
		return exitSysError
	}
	switch types.KindOf(err) {
	case types.KindReadFailed, types.KindWriteFailed:
		return exitSysError
	}
	return exitUserError
}
