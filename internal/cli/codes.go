package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vulfram/vulfram-core/internal/result"
)

// CodeInfo describes one result code.
type CodeInfo struct {
	Value uint32 `json:"value"`
	Name  string `json:"name"`
	Band  string `json:"band"`
}

// NewCodesCommand creates the codes command.
func NewCodesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes [name-or-value]",
		Short: "List the result codes returned across the host boundary",
		Long: `List every result code with its numeric value and failure band,
or look up a single code by name or value.

Examples:
  vulfram codes
  vulfram codes WrongThread
  vulfram codes 3000`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCodes(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runCodes(opts *RootOptions, args []string, cmd *cobra.Command) error {
	codes := result.All()
	if len(args) == 1 {
		code, ok := lookupCode(args[0])
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown result code: %s", args[0]))
		}
		codes = []result.Code{code}
	}

	infos := make([]CodeInfo, len(codes))
	for i, c := range codes {
		infos[i] = CodeInfo{Value: uint32(c), Name: c.String(), Band: c.Band()}
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(infos)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, info := range infos {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", info.Value, info.Name, info.Band)
	}
	return tw.Flush()
}

func lookupCode(arg string) (result.Code, bool) {
	if code, ok := result.Parse(arg); ok {
		return code, true
	}
	v, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, false
	}
	code := result.Code(v)
	return code, code.Known()
}
