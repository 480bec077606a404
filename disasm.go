package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kapitanov/chip8vm/internal/vm"
)

func newDisasmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm PATH_TO_ROM_FILE",
		Short: "Print a listing of a ROM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bs, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("unable to load file %q: %w", args[0], err)
			}
			return disassemble(cmd.OutOrStdout(), bs)
		},
	}
}

// disassemble decodes rom as if loaded at vm.ProgramStart, one line per
// word. Data shows up as whatever instruction it happens to decode to.
func disassemble(w io.Writer, rom []byte) error {
	if len(rom) > vm.MemorySize-int(vm.ProgramStart) {
		return fmt.Errorf("%w: rom is %d bytes", vm.ErrMemoryOverflow, len(rom))
	}

	addr := int(vm.ProgramStart)
	for i := 0; i+1 < len(rom); i += vm.InstructionSize {
		word := uint16(rom[i])<<8 | uint16(rom[i+1])
		if _, err := fmt.Fprintf(w, "%04x  %04x  %s\n", addr+i, word, vm.Decode(word)); err != nil {
			return err
		}
	}

	if len(rom)%2 != 0 {
		last := len(rom) - 1
		if _, err := fmt.Fprintf(w, "%04x  %02x    db 0x%02x\n", addr+last, rom[last], rom[last]); err != nil {
			return err
		}
	}

	return nil
}
