// Command sfplayinfo performs static inspection of a SoundFont2 bank: with
// no extra flags it lists every preset, and given --bank/--program it
// dumps the zones (and their instrument references) a note-on against that
// preset would stack, mirroring the teacher's moddump pattern of
// dispatching a single positional filename into a format-specific static
// dump rather than playing anything.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/gosoundfont/sfsynth/soundfont"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("sfplayinfo: ")

	bank := pflag.Int("bank", -1, "bank number to inspect (requires --program)")
	program := pflag.Int("program", -1, "program number to inspect (requires --bank)")
	listInstruments := pflag.Bool("instruments", false, "list every instrument in the bank instead of presets")
	pflag.Parse()

	if pflag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: sfplayinfo [--bank=N --program=N | --instruments] FILE.sf2")
		os.Exit(1)
	}

	data, err := os.ReadFile(pflag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	sf, err := soundfont.Load(bytes.NewReader(data), nil)
	if err != nil {
		log.Fatal(err)
	}
	if sf.LoadError() {
		log.Fatal("soundfont loaded with structural errors")
	}

	cyan := color.New(color.FgCyan).SprintfFunc()
	yellow := color.New(color.FgYellow).SprintfFunc()

	switch {
	case *listInstruments:
		for i, inst := range sf.Instruments {
			fmt.Printf("%s %s (%d zones)\n", cyan("%3d", i), inst.Name, len(inst.Zones))
		}
	case *bank >= 0 && *program >= 0:
		p := sf.FindPreset(uint16(*bank), uint16(*program))
		if p == nil {
			log.Fatalf("no preset matches bank=%d program=%d and no fallback applies", *bank, *program)
		}
		fmt.Printf("%s %s\n", yellow("bank=%d program=%d", p.Bank, p.Program), p.Name)
		for zi, z := range p.Zones {
			instIdx := z.Generators.GetOrDefault(soundfont.GenInstrument)
			name := "?"
			if int(instIdx) >= 0 && int(instIdx) < len(sf.Instruments) {
				name = sf.Instruments[instIdx].Name
			}
			fmt.Printf("  zone %2d key=[%d,%d] vel=[%d,%d] -> instrument %d %q\n",
				zi, z.KeyRange.Lo(), z.KeyRange.Hi(), z.VelRange.Lo(), z.VelRange.Hi(), instIdx, name)
		}
	default:
		for i, p := range sf.Presets {
			fmt.Printf("%s bank=%-3d program=%-3d %s\n", cyan("%3d", i), p.Bank, p.Program, p.Name)
		}
	}
}
