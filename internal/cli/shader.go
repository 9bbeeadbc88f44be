package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vulfram/vulfram-core/internal/shader"
)

// ShaderResult is the outcome of shader validate or compile.
type ShaderResult struct {
	File    string `json:"file"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Output  string `json:"output,omitempty"` // compile only
	Bytes   int    `json:"bytes,omitempty"`  // compile only
}

// NewShaderCommand creates the shader command and its subcommands.
func NewShaderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shader",
		Short: "Validate or compile WGSL with the engine's shader translator",
		Long: `Run WGSL through the same translator cmd-shader-compile and
cmd-shader-validate use inside the engine.

Exit codes:
  0 - The shader is valid
  1 - The shader was rejected
  2 - Command error (unreadable input, unwritable output)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newShaderValidateCommand(rootOpts))
	cmd.AddCommand(newShaderCompileCommand(rootOpts))
	return cmd
}

func newShaderValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.wgsl|->",
		Short: "Check that a WGSL source translates",
		Example: `  vulfram shader validate fill.wgsl
  cat fill.wgsl | vulfram shader validate -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			res := ShaderResult{File: args[0], Valid: true}
			if err := shader.Check(shader.Naga{}, string(src)); err != nil {
				res.Valid = false
				res.Message = err.Error()
			}
			return outputShader(rootOpts, cmd, res)
		},
	}
}

func newShaderCompileCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:           "compile <file.wgsl|->",
		Short:         "Translate WGSL to a SPIR-V binary",
		Example:       `  vulfram shader compile fill.wgsl -o fill.spv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			res := ShaderResult{File: args[0], Valid: true}
			spirv, err := shader.Naga{}.Compile(string(src))
			if err != nil {
				res.Valid = false
				res.Message = err.Error()
				return outputShader(rootOpts, cmd, res)
			}
			if err := os.WriteFile(output, spirv, 0o644); err != nil {
				return WrapExitError(ExitCommandError, "failed to write output", err)
			}
			res.Output = output
			res.Bytes = len(spirv)
			return outputShader(rootOpts, cmd, res)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write SPIR-V to this file (required)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func outputShader(opts *RootOptions, cmd *cobra.Command, res ShaderResult) error {
	if opts.Format == "json" {
		if err := opts.formatter(cmd).Success(res); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		switch {
		case !res.Valid:
			fmt.Fprintf(out, "✗ %s\n  %s\n", res.File, res.Message)
		case res.Output != "":
			fmt.Fprintf(out, "✓ %s -> %s (%d bytes)\n", res.File, res.Output, res.Bytes)
		default:
			fmt.Fprintf(out, "✓ %s\n", res.File)
		}
	}
	if !res.Valid {
		return NewExitError(ExitFailure, "shader rejected")
	}
	return nil
}
