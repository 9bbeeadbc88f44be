package cli

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vulfram/vulfram-core/internal/harness"
	"github.com/vulfram/vulfram-core/internal/protocol"
)

// EncodeResult is the JSON output of the encode command.
type EncodeResult struct {
	Hex      string `json:"hex"`
	Bytes    int    `json:"bytes"`
	Commands int    `json:"commands"`
}

// DecodeResult is the JSON output of the decode command.
type DecodeResult struct {
	Value    string `json:"value"` // canonical JSON
	Commands int    `json:"commands,omitempty"`
}

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	File  string
	Check bool
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode <envelopes.yaml|->",
		Short: "Encode command envelopes as a CBOR batch",
		Long: `Encode a YAML (or JSON) list of command envelopes as the CBOR
batch a host passes to send. The batch is printed as lowercase hex.

Each envelope has an id, a type and a content map:

  - { id: 1, type: cmd-window-create, content: { title: demo, size: [800, 600] } }
  - { id: 2, type: cmd-window-close, content: { window_id: 1 } }

Examples:
  vulfram encode batch.yaml
  cat batch.yaml | vulfram encode -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runEncode(opts *RootOptions, path string, cmd *cobra.Command) error {
	data, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	var envs []harness.Envelope
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&envs); err != nil && err != io.EOF {
		return WrapExitError(ExitCommandError, "failed to parse envelopes", err)
	}

	batch, err := harness.EncodeBatch(envs)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode batch", err)
	}

	encoded := hex.EncodeToString(batch)
	if opts.Format == "json" {
		return opts.formatter(cmd).Success(EncodeResult{
			Hex:      encoded,
			Bytes:    len(batch),
			Commands: len(envs),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), encoded)
	return nil
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode [hex]",
		Short: "Decode a CBOR batch to canonical JSON",
		Long: `Decode CBOR bytes (a command batch, an event batch or anything
else) and print them as canonical JSON.

Input is a hex argument or a binary file given with --file. With --check,
the bytes are also validated as a command batch the way send does and the
command exits 1 if the engine would reject it.

Examples:
  vulfram decode 81a3626964016474797065...
  vulfram decode --file events.cbor
  vulfram decode --check 81a3626964016474797065...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "read binary CBOR from this file")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "validate as a command batch")

	return cmd
}

func runDecode(opts *DecodeOptions, args []string, cmd *cobra.Command) error {
	data, err := decodeInput(opts, args)
	if err != nil {
		return err
	}

	value, err := protocol.Generic(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode CBOR", err)
	}
	canonical, err := protocol.MarshalCanonical(value)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render JSON", err)
	}

	res := DecodeResult{Value: string(canonical)}
	var checkErr error
	if opts.Check {
		envs, err := protocol.DecodeBatch(data, 0)
		if err != nil {
			checkErr = WrapExitError(ExitFailure, "batch rejected", err)
		}
		res.Commands = len(envs)
	}

	if opts.Format == "json" {
		if err := opts.formatter(cmd).Success(res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), res.Value)
	}
	return checkErr
}

func decodeInput(opts *DecodeOptions, args []string) ([]byte, error) {
	switch {
	case opts.File != "" && len(args) > 0:
		return nil, NewExitError(ExitCommandError, "hex argument and --file are exclusive")
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read input", err)
		}
		return data, nil
	case len(args) == 1:
		data, err := hex.DecodeString(strings.TrimSpace(args[0]))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid hex", err)
		}
		return data, nil
	default:
		return nil, NewExitError(ExitCommandError, "hex argument or --file is required")
	}
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read input", err)
	}
	return data, nil
}
