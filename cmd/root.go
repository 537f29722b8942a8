/*
 * Copyright (c) 2020 Siemens AG
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 * Author(s): Jonas Plum
 */

package cmd

import (
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/forensicanalysis/cryptocase"
	"github.com/forensicanalysis/cryptocase/config"
	"github.com/forensicanalysis/cryptocase/index"
	"github.com/forensicanalysis/cryptocase/logging"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// app holds the state shared by all subcommands of one invocation.
type app struct {
	v   *viper.Viper
	fs  afero.Fs
	cfg *config.Config
	log *zap.SugaredLogger
}

// Root returns the cryptocase command with all subcommands.
func Root() *cobra.Command {
	a := &app{v: viper.New(), fs: afero.NewOsFs(), log: zap.NewNop().Sugar()}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "cryptocase",
		Short:         "Detect encrypted containers and document the examination",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v, configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log, err = logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "configuration file (yaml, toml or json)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.String("examiner", "", "name of the examiner")
	bind(a.v, "log.level", flags.Lookup("log-level"))
	bind(a.v, "log.format", flags.Lookup("log-format"))
	bind(a.v, "examiner", flags.Lookup("examiner"))

	rootCmd.AddCommand(
		caseCommand(a), scanCommand(a), memoryCommand(a), collectCommand(a),
		searchCommand(a), reportCommand(a), unlockCommand(a), crackCommand(a),
		versionCommand(),
	)
	return rootCmd
}

// requireCase checks that the first of n arguments is a case folder.
func (a *app) requireCase(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return errors.Errorf("requires exactly %d arguments", n)
		}
		exists, err := afero.Exists(a.fs, filepath.Join(args[0], cryptocase.CaseFile))
		if err != nil {
			return err
		}
		if !exists {
			return errors.Wrap(cryptocase.ErrCaseNotExists, args[0])
		}
		return nil
	}
}

// open loads the case in root. Unless disabled, all appended entities are
// mirrored into the case index. The returned func closes the index.
func (a *app) open(root string) (*cryptocase.Ledger, func(), error) {
	opts := []cryptocase.Option{cryptocase.WithLogger(a.log)}
	done := func() {}
	if !a.cfg.Index.Disabled {
		idx, err := index.OpenOrCreate(a.indexPath(root))
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, cryptocase.WithIndex(idx))
		done = func() {
			if err := idx.Close(); err != nil {
				a.log.Warnw("could not close index", "error", err)
			}
		}
	}

	ledger, err := cryptocase.Open(a.fs, root, opts...)
	if err != nil {
		done()
		return nil, nil, err
	}
	return ledger, done, nil
}

func (a *app) indexPath(root string) string {
	return filepath.Join(root, a.cfg.Index.File)
}

func bind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// Exit prints err and terminates the process.
func Exit(err error) {
	errorColor.Fprintln(os.Stderr, "Error:", err) // nolint:errcheck
	os.Exit(1)
}
