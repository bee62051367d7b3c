// Command malisc drives internal/driver's GP/PP compilation pipeline from
// the command line: it reads already-lowered IR (as produced by
// internal/gpir's or internal/pplir's binary serializers — this module has
// no GLSL front end of its own, spec.md's Non-goals place that upstream),
// compiles it, and writes out the resulting MBS1 container, or inspects an
// existing one.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/limashader/malisc/internal/driver"
	"github.com/limashader/malisc/internal/gpir"
	"github.com/limashader/malisc/internal/mbs"
	"github.com/limashader/malisc/internal/pplir"
	"github.com/limashader/malisc/internal/symbols"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "malisc",
		Short: "Mali-200/400 shader mid/back-end: compile IR to an MBS1 binary, or inspect one",
	}
	root.AddCommand(newCompileCmd())
	root.AddCommand(newInspectCmd())
	return root
}

func newCompileCmd() *cobra.Command {
	var stageFlag, coreFlag, irPath, outPath string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Run optimization, allocation and scheduling over a serialized IR program and export an MBS1 container",
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := parseStage(stageFlag)
			if err != nil {
				return err
			}
			core, err := parseCore(coreFlag)
			if err != nil {
				return err
			}

			irData, err := os.ReadFile(irPath)
			if err != nil {
				return errors.Wrap(err, "reading IR file")
			}

			syms := &symbols.ShaderSymbols{}
			sh := driver.Create(stage, driver.Config{Core: core})

			fmt.Printf("malisc compile\n")
			fmt.Printf("  stage: %s\n", stageFlag)
			fmt.Printf("  core:  %s\n", coreFlag)

			switch stage {
			case symbols.StageVertex:
				prog := gpir.ImportProgram(irData)
				if !sh.Parse(prog, nil, syms) {
					return errors.New(sh.InfoLog())
				}
			case symbols.StageFragment:
				prog := pplir.ImportProgram(irData)
				if !sh.Parse(nil, prog, syms) {
					return errors.New(sh.InfoLog())
				}
			}

			if !sh.Compile() {
				return errors.Errorf("compile failed: %s", sh.InfoLog())
			}

			chunk := sh.ExportOffline()
			if chunk == nil {
				return errors.New("compile reported success but produced no MBS1 container")
			}

			out := chunk.Export()
			if err := os.WriteFile(outPath, out, 0o644); err != nil {
				return errors.Wrap(err, "writing MBS1 container")
			}
			fmt.Printf("wrote %d bytes to %s\n", len(out), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&stageFlag, "stage", "vertex", "shader stage: vertex or fragment")
	cmd.Flags().StringVar(&coreFlag, "core", "mali400", "target core: mali200 or mali400")
	cmd.Flags().StringVar(&irPath, "ir", "", "path to a serialized gpir/pplir program (required)")
	cmd.Flags().StringVar(&outPath, "out", "out.mbs", "output MBS1 container path")
	cmd.MarkFlagRequired("ir")
	return cmd
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file.mbs>",
		Short: "Parse an MBS1 container's root chunk and print its tag and size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "reading MBS container")
			}
			chunk, consumed, ok := mbs.Parse(data)
			if !ok {
				return errors.New("not a valid MBS chunk: truncated or corrupt header")
			}
			fmt.Printf("tag:      %s\n", chunk.Tag)
			fmt.Printf("size:     %d bytes\n", chunk.Size())
			fmt.Printf("consumed: %d of %d input bytes\n", consumed, len(data))
			if consumed != len(data) {
				fmt.Printf("note: %d trailing bytes after the root chunk\n", len(data)-consumed)
			}
			return nil
		},
	}
	return cmd
}

func parseStage(s string) (symbols.Stage, error) {
	switch s {
	case "vertex":
		return symbols.StageVertex, nil
	case "fragment":
		return symbols.StageFragment, nil
	default:
		return 0, errors.Errorf("unknown stage %q: must be vertex or fragment", s)
	}
}

func parseCore(s string) (mbs.CoreVariant, error) {
	switch s {
	case "mali200":
		return mbs.CoreMali200, nil
	case "mali400":
		return mbs.CoreMali400, nil
	default:
		return 0, errors.Errorf("unknown core %q: must be mali200 or mali400", s)
	}
}
