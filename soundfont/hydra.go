package soundfont

import (
	"encoding/binary"
	"fmt"
	"io"
)

// hydra holds the raw, still-cross-referenced contents of the pdta LIST
// chunk: the nine parallel arrays the RIFF format uses to describe every
// preset, instrument and sample. Each array carries one extra terminal
// record past its last real entry (required by the format so that bag and
// generator/modulator spans can always be computed as "index[i+1] -
// index[i]" without a special case for the last element); readHydra
// enforces the >=2-records rule that guarantees the terminator exists.
type hydra struct {
	presets      []presetHeaderRecord
	pbag         []bagRecord
	pmod         []modListRecord
	pgen         []genListRecord
	instruments  []instRecord
	ibag         []bagRecord
	imod         []modListRecord
	igen         []genListRecord
	samples      []sampleHeaderRecord
}

type presetHeaderRecord struct {
	Name           [20]byte
	Preset         uint16
	Bank           uint16
	PresetBagNdx   uint16
	Library        uint32
	Genre          uint32
	Morphology     uint32
}

type instRecord struct {
	Name       [20]byte
	InstBagNdx uint16
}

type bagRecord struct {
	GenNdx uint16
	ModNdx uint16
}

type modListRecord struct {
	SrcOper   uint16
	DestOper  uint16
	Amount    int16
	AmtSrcOper uint16
	TransOper uint16
}

type genListRecord struct {
	Oper   uint16
	Amount genAmount
}

// genAmount overlays the three interpretations the spec gives a generator
// amount: a signed word, an unsigned word, or a lo/hi byte pair for the
// range generators. Reading it as the raw 2 bytes and reinterpreting at
// the point of use avoids three separate record shapes.
type genAmount struct {
	raw [2]byte
}

func (g genAmount) asInt16() int16 {
	return int16(uint16(g.raw[0]) | uint16(g.raw[1])<<8)
}

func (g genAmount) asUint16() uint16 {
	return uint16(g.raw[0]) | uint16(g.raw[1])<<8
}

func (g genAmount) asRange() (lo, hi uint8) {
	return g.raw[0], g.raw[1]
}

type sampleHeaderRecord struct {
	Name            [20]byte
	Start           uint32
	End             uint32
	StartLoop       uint32
	EndLoop         uint32
	SampleRate      uint32
	OriginalPitch   uint8
	PitchCorrection int8
	SampleLink      uint16
	SampleType      uint16
}

// readHydra decodes every required pdta sub-chunk present in r into a
// hydra. Unknown sub-chunks are skipped; any of the nine required chunks
// being absent, or an array failing its stride or minimum-length check,
// is reported via ErrIncomplete/ErrMalformed rather than a panic, since a
// malformed bank is routine input for this loader (see Synthesizer.LoadSoundFont).
func readHydra(r io.Reader) (*hydra, error) {
	h := &hydra{}
	seen := map[string]bool{}

	for {
		var ck chunk
		if err := ck.parse(r); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		id := string(ck.id[:])
		seen[id] = true
		cr := ck.reader()

		switch id {
		case "phdr":
			n, err := stride(ck.size, 38, id)
			if err != nil {
				return nil, err
			}
			h.presets = make([]presetHeaderRecord, n)
			for i := range h.presets {
				if err := binary.Read(cr, binary.LittleEndian, &h.presets[i]); err != nil {
					return nil, err
				}
			}
		case "pbag":
			if err := readBags(cr, ck.size, &h.pbag); err != nil {
				return nil, err
			}
		case "pmod":
			if err := readMods(cr, ck.size, &h.pmod); err != nil {
				return nil, err
			}
		case "pgen":
			if err := readGens(cr, ck.size, &h.pgen); err != nil {
				return nil, err
			}
		case "inst":
			n, err := stride(ck.size, 22, id)
			if err != nil {
				return nil, err
			}
			h.instruments = make([]instRecord, n)
			for i := range h.instruments {
				if err := binary.Read(cr, binary.LittleEndian, &h.instruments[i]); err != nil {
					return nil, err
				}
			}
		case "ibag":
			if err := readBags(cr, ck.size, &h.ibag); err != nil {
				return nil, err
			}
		case "imod":
			if err := readMods(cr, ck.size, &h.imod); err != nil {
				return nil, err
			}
		case "igen":
			if err := readGens(cr, ck.size, &h.igen); err != nil {
				return nil, err
			}
		case "shdr":
			n, err := stride(ck.size, 46, id)
			if err != nil {
				return nil, err
			}
			h.samples = make([]sampleHeaderRecord, n)
			for i := range h.samples {
				if err := binary.Read(cr, binary.LittleEndian, &h.samples[i]); err != nil {
					return nil, err
				}
			}
		default:
			// Vendor/future extensions inside pdta are legal to ignore.
		}
	}

	for _, want := range [...]string{"phdr", "pbag", "pmod", "pgen", "inst", "ibag", "imod", "igen", "shdr"} {
		if !seen[want] {
			return nil, fmt.Errorf("%w: pdta missing required %q chunk", ErrIncomplete, want)
		}
	}
	if len(h.presets) < 2 || len(h.instruments) < 2 || len(h.samples) < 2 {
		return nil, fmt.Errorf("%w: phdr/inst/shdr must carry a terminal record", ErrIncomplete)
	}
	return h, nil
}

func stride(size uint32, rec int, name string) (int, error) {
	if size%uint32(rec) != 0 {
		return 0, fmt.Errorf("%w: %q chunk size %d is not a multiple of %d", ErrMalformed, name, size, rec)
	}
	return int(size) / rec, nil
}

func readBags(r io.Reader, size uint32, out *[]bagRecord) error {
	n, err := stride(size, 4, "bag")
	if err != nil {
		return err
	}
	*out = make([]bagRecord, n)
	for i := range *out {
		if err := binary.Read(r, binary.LittleEndian, &(*out)[i]); err != nil {
			return err
		}
	}
	return nil
}

func readMods(r io.Reader, size uint32, out *[]modListRecord) error {
	n, err := stride(size, 10, "mod")
	if err != nil {
		return err
	}
	*out = make([]modListRecord, n)
	for i := range *out {
		if err := binary.Read(r, binary.LittleEndian, &(*out)[i]); err != nil {
			return err
		}
	}
	return nil
}

func readGens(r io.Reader, size uint32, out *[]genListRecord) error {
	n, err := stride(size, 4, "gen")
	if err != nil {
		return err
	}
	*out = make([]genListRecord, n)
	for i := range *out {
		if err := binary.Read(r, binary.LittleEndian, &(*out)[i].Oper); err != nil {
			return err
		}
		if err := binary.Read(r, binary.LittleEndian, &(*out)[i].Amount.raw); err != nil {
			return err
		}
	}
	return nil
}
