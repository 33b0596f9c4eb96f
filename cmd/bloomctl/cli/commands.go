package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/jcalabro/bloomset"
	"github.com/jcalabro/bloomset/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCreateCmd(a *app) *cobra.Command {
	var (
		items      uint64
		fpRate     float64
		sizeInBits uint64
		k          uint64
	)

	cmd := &cobra.Command{
		Use:   "create <path>",
		Short: "Create an empty filter file",
		Long: `Create an empty filter sized for --items and --fp-rate, or with an
explicit --size-bits and --k. Sizing defaults come from
BLOOMSET_EXPECTED_ITEMS and BLOOMSET_FALSE_POSITIVE_RATE.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				f   *bloomset.Filter
				err error
			)
			switch {
			case cmd.Flags().Changed("size-bits") || cmd.Flags().Changed("k"):
				f, err = bloomset.NewWithParams(sizeInBits, k)
			default:
				if !cmd.Flags().Changed("items") {
					items = a.cfg.ExpectedItems
				}
				if !cmd.Flags().Changed("fp-rate") {
					fpRate = a.cfg.FalsePositiveRate
				}
				f, err = bloomset.New(items, fpRate)
			}
			if err != nil {
				return err
			}
			if err := a.save(f, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), f)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&items, "items", 0, "Expected number of distinct items")
	cmd.Flags().Float64Var(&fpRate, "fp-rate", 0, "Target false positive rate in (0, 1)")
	cmd.Flags().Uint64Var(&sizeInBits, "size-bits", 0, "Explicit bit-array size, a positive multiple of 8")
	cmd.Flags().Uint64Var(&k, "k", 0, "Explicit number of hash applications")
	cmd.MarkFlagsMutuallyExclusive("items", "size-bits")
	cmd.MarkFlagsMutuallyExclusive("fp-rate", "k")
	cmd.MarkFlagsRequiredTogether("size-bits", "k")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path> [key...]",
		Short: "Add keys to a filter file",
		Long:  "Add keys to a filter file. Keys are read one per line from stdin when none are given.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := keys(cmd, args[1:])
			if err != nil {
				return err
			}
			hs, err := a.hashes(ks)
			if err != nil {
				return err
			}
			f, err := a.load(args[0])
			if err != nil {
				return err
			}
			if err := f.Update(hs); err != nil {
				return err
			}
			if err := a.save(f, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d\n", len(hs))
			return nil
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <path> [key...]",
		Short: "Test keys against a filter file",
		Long:  "Print each key with whether it may be present. Keys are read from stdin when none are given.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := keys(cmd, args[1:])
			if err != nil {
				return err
			}
			hs, err := a.hashes(ks)
			if err != nil {
				return err
			}
			f, err := a.load(args[0])
			if err != nil {
				return err
			}
			for i, h := range hs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%t\n", ks[i], f.Contains(h))
			}
			return nil
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <path>",
		Short: "Describe a filter file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "size_in_bits:  %d\n", f.SizeInBits())
			fmt.Fprintf(out, "k:             %d\n", f.K())
			fmt.Fprintf(out, "popcount:      %d\n", f.Popcount())
			fmt.Fprintf(out, "fill_ratio:    %.4f\n", f.FillRatio())
			fmt.Fprintf(out, "approx_items:  %.1f\n", f.ApproxItems())
			fmt.Fprintf(out, "estimated_fpr: %.6f\n", f.EstimatedFalsePositiveRate())
			return nil
		},
	}
}

func newUnionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "union <out> <in> [in...]",
		Short: "Write the union of compatible filter files",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.combine(cmd, args[0], args[1:], (*bloomset.Filter).Union)
		},
	}
}

func newIntersectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "intersect <out> <in> [in...]",
		Short: "Write the intersection of compatible filter files",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.combine(cmd, args[0], args[1:], (*bloomset.Filter).Intersection)
		},
	}
}

type combineFunc func(f *bloomset.Filter, others ...bloomset.Source) (*bloomset.Filter, error)

func (a *app) combine(cmd *cobra.Command, out string, inputs []string, op combineFunc) error {
	first, err := a.load(inputs[0])
	if err != nil {
		return err
	}
	rest := make([]bloomset.Source, 0, len(inputs)-1)
	for _, path := range inputs[1:] {
		f, err := a.load(path)
		if err != nil {
			return err
		}
		rest = append(rest, f)
	}

	result, err := op(first, rest...)
	if err != nil {
		return err
	}
	if err := a.save(result, out); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

func newCompareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <a> <b>",
		Short: "Compare two compatible filter files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fa, err := a.load(args[0])
			if err != nil {
				return err
			}
			fb, err := a.load(args[1])
			if err != nil {
				return err
			}
			subset, err := fa.IsSubset(fb)
			if err != nil {
				return err
			}
			superset, err := fa.IsSuperset(fb)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "equal:    %t\n", fa.Equal(fb))
			fmt.Fprintf(out, "subset:   %t\n", subset)
			fmt.Fprintf(out, "superset: %t\n", superset)
			return nil
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP membership service",
		Long: `Serve the filter at BLOOMSET_FILTER_PATH over HTTP, creating it from
BLOOMSET_EXPECTED_ITEMS and BLOOMSET_FALSE_POSITIVE_RATE when the file does
not exist. The filter is snapshotted every BLOOMSET_SNAPSHOT_INTERVAL and on
shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.ListenAddr = listen
			}

			f, err := a.openOrCreate(a.cfg.FilterPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Config{
				Addr:             a.cfg.ListenAddr,
				FilterPath:       a.cfg.FilterPath,
				SnapshotInterval: a.cfg.SnapshotInterval,
			}, f, a.logger)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, overrides BLOOMSET_LISTEN_ADDR")
	return cmd
}

func (a *app) openOrCreate(path string) (*bloomset.Filter, error) {
	f, err := bloomset.LoadFile(path)
	if err == nil {
		a.logger.Info("Loaded filter", zap.String("path", path), zap.Stringer("filter", f))
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	f, err = bloomset.New(a.cfg.ExpectedItems, a.cfg.FalsePositiveRate)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Created filter",
		zap.String("path", path),
		zap.Uint64("expected_items", a.cfg.ExpectedItems),
		zap.Float64("fp_rate", a.cfg.FalsePositiveRate),
		zap.Stringer("filter", f))
	return f, nil
}
