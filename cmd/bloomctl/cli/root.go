// Package cli implements the bloomctl commands.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/jcalabro/bloomset"
	"github.com/jcalabro/bloomset/internal/config"
	"github.com/jcalabro/bloomset/internal/logging"
	"github.com/jcalabro/bloomset/keyhash"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app carries state shared by every command of one invocation.
type app struct {
	envFile   string
	logLevel  string
	logFormat string
	raw       bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd builds the bloomctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "bloomctl",
		Short:         "Create, inspect and combine bloom filters",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", ".env", "Optional file of BLOOMSET_* environment variables")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: json or console")
	flags.BoolVar(&a.raw, "raw", false, "Treat keys as signed decimal 128-bit hashes instead of hashing them")

	root.AddCommand(
		newCreateCmd(a),
		newAddCmd(a),
		newCheckCmd(a),
		newInfoCmd(a),
		newUnionCmd(a),
		newIntersectCmd(a),
		newCompareCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs bloomctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Config{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
		Output: zapcore.AddSync(cmd.ErrOrStderr()),
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// parseHash turns a command-line key into a hash.
func (a *app) parseHash(key string) (bloomset.Hash, error) {
	if !a.raw {
		return keyhash.String(key), nil
	}
	v, ok := new(big.Int).SetString(key, 10)
	if !ok {
		return bloomset.Hash{}, fmt.Errorf("invalid raw hash %q: not a decimal integer", key)
	}
	return bloomset.HashFromBig(v)
}

// keys returns args, or the non-empty lines of stdin when args is empty.
func keys(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	var out []string
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading keys: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("no keys given")
	}
	return out, nil
}

func (a *app) hashes(keys []string) (bloomset.Hashes, error) {
	hs := make(bloomset.Hashes, len(keys))
	for i, k := range keys {
		h, err := a.parseHash(k)
		if err != nil {
			return nil, err
		}
		hs[i] = h
	}
	return hs, nil
}

func (a *app) load(path string) (*bloomset.Filter, error) {
	f, err := bloomset.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	a.logger.Debug("Loaded filter", zap.String("path", path), zap.Stringer("filter", f))
	return f, nil
}

func (a *app) save(f *bloomset.Filter, path string) error {
	if err := f.SaveFile(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	a.logger.Debug("Saved filter", zap.String("path", path), zap.Stringer("filter", f))
	return nil
}
