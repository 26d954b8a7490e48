package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/dxcluster-spot-etl/internal/domain"
)

const (
	formatAuto  = "auto"
	formatJSON  = "json"
	formatTable = "table"
)

// errSilentExit fails the command after its output already explained why.
var errSilentExit = errors.New("exit 1")

type options struct {
	format    string
	spotsOnly bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "dxparse",
		Short:         "Classify DX cluster lines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.format {
			case formatAuto, formatJSON, formatTable:
				return nil
			}
			return fmt.Errorf("invalid --format %q: want auto, json or table", opts.format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.format, "format", "f", formatAuto, "Output format: auto, json or table")

	rootCmd.AddCommand(newLineCommand(opts))
	rootCmd.AddCommand(newFileCommand(opts))
	return rootCmd
}

func newLineCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "line <text>",
		Short: "Parse one line; quote it to keep its column spacing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := classify(domain.DefaultRegistry, 0, strings.Join(args, " "))
			if err := render(cmd.OutOrStdout(), opts.resolve(cmd.OutOrStdout()), []result{r}); err != nil {
				return err
			}
			if r.Outcome != outcomeSpot {
				return errSilentExit
			}
			return nil
		},
	}
}

func newFileCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Parse every line of a capture file, or stdin for -",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			results, err := classifyAll(domain.DefaultRegistry, in)
			if err != nil {
				return err
			}
			if opts.spotsOnly {
				results = onlySpots(results)
			}
			return render(cmd.OutOrStdout(), opts.resolve(cmd.OutOrStdout()), results)
		},
	}
	cmd.Flags().BoolVar(&opts.spotsOnly, "spots-only", false, "Omit lines that produced no spot")
	return cmd
}

// resolve picks table output for terminals and JSON otherwise.
func (o *options) resolve(w io.Writer) string {
	if o.format != formatAuto {
		return o.format
	}
	if isTerminal(w) {
		return formatTable
	}
	return formatJSON
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
