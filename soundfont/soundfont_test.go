package soundfont

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// writeChunk appends one RIFF tagged chunk (id + little-endian size +
// payload, even-padded) to buf.
func writeChunk(buf *bytes.Buffer, id string, payload []byte) {
	buf.WriteString(id)
	binary.Write(buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)
	if len(payload)%2 != 0 {
		buf.WriteByte(0)
	}
}

func name20(s string) [20]byte {
	var b [20]byte
	copy(b[:], s)
	return b
}

// buildMinimalSF2 assembles, byte by byte, the smallest bank that is
// structurally complete under the spec: one preset pointing at one
// instrument zone pointing at one sample, each array carrying its
// mandatory terminator record.
func buildMinimalSF2(t *testing.T) []byte {
	t.Helper()

	// sdta: 8 sample points of a simple ramp.
	var smpl bytes.Buffer
	samplePoints := []int16{0, 1000, 2000, 3000, 4000, 3000, 2000, 1000}
	for _, v := range samplePoints {
		binary.Write(&smpl, binary.LittleEndian, v)
	}
	var sdtaBody bytes.Buffer
	sdtaBody.WriteString("sdta")
	writeChunk(&sdtaBody, "smpl", smpl.Bytes())

	// pdta arrays.
	var phdr bytes.Buffer
	binary.Write(&phdr, binary.LittleEndian, presetHeaderRecord{Name: name20("TestPreset"), Preset: 0, Bank: 0, PresetBagNdx: 0})
	binary.Write(&phdr, binary.LittleEndian, presetHeaderRecord{Name: name20("EOP"), PresetBagNdx: 1})

	var pbag bytes.Buffer
	binary.Write(&pbag, binary.LittleEndian, bagRecord{GenNdx: 0, ModNdx: 0})
	binary.Write(&pbag, binary.LittleEndian, bagRecord{GenNdx: 1, ModNdx: 0})

	var pmod bytes.Buffer // empty: no preset-level modulators in this fixture

	var pgen bytes.Buffer
	binary.Write(&pgen, binary.LittleEndian, uint16(GenInstrument))
	binary.Write(&pgen, binary.LittleEndian, [2]byte{0, 0})

	var inst bytes.Buffer
	binary.Write(&inst, binary.LittleEndian, instRecord{Name: name20("TestInstrument"), InstBagNdx: 0})
	binary.Write(&inst, binary.LittleEndian, instRecord{Name: name20("EOI"), InstBagNdx: 1})

	var ibag bytes.Buffer
	binary.Write(&ibag, binary.LittleEndian, bagRecord{GenNdx: 0, ModNdx: 0})
	binary.Write(&ibag, binary.LittleEndian, bagRecord{GenNdx: 1, ModNdx: 0})

	var imod bytes.Buffer // empty

	var igen bytes.Buffer
	binary.Write(&igen, binary.LittleEndian, uint16(GenSampleID))
	binary.Write(&igen, binary.LittleEndian, [2]byte{0, 0})

	var shdr bytes.Buffer
	binary.Write(&shdr, binary.LittleEndian, sampleHeaderRecord{
		Name: name20("TestSample"), Start: 0, End: uint32(len(samplePoints)),
		StartLoop: 1, EndLoop: uint32(len(samplePoints) - 1),
		SampleRate: 44100, OriginalPitch: 60, SampleType: 1,
	})
	binary.Write(&shdr, binary.LittleEndian, sampleHeaderRecord{Name: name20("EOS")})

	var pdtaBody bytes.Buffer
	pdtaBody.WriteString("pdta")
	writeChunk(&pdtaBody, "phdr", phdr.Bytes())
	writeChunk(&pdtaBody, "pbag", pbag.Bytes())
	writeChunk(&pdtaBody, "pmod", pmod.Bytes())
	writeChunk(&pdtaBody, "pgen", pgen.Bytes())
	writeChunk(&pdtaBody, "inst", inst.Bytes())
	writeChunk(&pdtaBody, "ibag", ibag.Bytes())
	writeChunk(&pdtaBody, "imod", imod.Bytes())
	writeChunk(&pdtaBody, "igen", igen.Bytes())
	writeChunk(&pdtaBody, "shdr", shdr.Bytes())

	var infoBody bytes.Buffer
	infoBody.WriteString("INFO")
	var ifil bytes.Buffer
	binary.Write(&ifil, binary.LittleEndian, uint16(2))
	binary.Write(&ifil, binary.LittleEndian, uint16(1))
	writeChunk(&infoBody, "ifil", ifil.Bytes())
	writeChunk(&infoBody, "INAM", []byte("unit test bank"))

	var sfbk bytes.Buffer
	sfbk.WriteString("sfbk")
	writeChunk(&sfbk, "LIST", infoBody.Bytes())
	writeChunk(&sfbk, "LIST", sdtaBody.Bytes())
	writeChunk(&sfbk, "LIST", pdtaBody.Bytes())

	var riff bytes.Buffer
	writeChunk(&riff, "RIFF", sfbk.Bytes())
	return riff.Bytes()
}

func TestLoadMinimalBank(t *testing.T) {
	sf, err := Load(bytes.NewReader(buildMinimalSF2(t)), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sf.LoadError() {
		t.Fatalf("Load reported a sticky load error for a well-formed bank")
	}
	if sf.Info.Name != "unit test bank" {
		t.Errorf("Info.Name = %q", sf.Info.Name)
	}
	if len(sf.Presets) != 1 {
		t.Fatalf("expected 1 preset, got %d", len(sf.Presets))
	}
	if len(sf.Instruments) != 1 {
		t.Fatalf("expected 1 instrument, got %d", len(sf.Instruments))
	}
	if len(sf.Samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(sf.Samples))
	}

	preset := sf.Presets[0]
	if preset.Name != "TestPreset" || len(preset.Zones) != 1 {
		t.Fatalf("preset decoded wrong: %+v", preset)
	}
	instIdx := preset.Zones[0].Generators.getOrDefault(GenInstrument)
	if instIdx != 0 {
		t.Errorf("preset zone should reference instrument 0, got %d", instIdx)
	}

	inst := sf.Instruments[0]
	if len(inst.Zones) != 1 {
		t.Fatalf("instrument decoded wrong: %+v", inst)
	}
	sampleIdx := inst.Zones[0].Generators.getOrDefault(GenSampleID)
	if sampleIdx != 0 {
		t.Errorf("instrument zone should reference sample 0, got %d", sampleIdx)
	}
}

func TestFindPresetFallbackChain(t *testing.T) {
	sf := &SoundFont{Presets: []Preset{
		{Bank: 0, Program: 0, Name: "fallback"},
		{Bank: 128, Program: 0, Name: "percussion"},
		{Bank: 3, Program: 7, Name: "exact"},
	}}

	if p := sf.FindPreset(3, 7); p == nil || p.Name != "exact" {
		t.Errorf("exact match failed: %+v", p)
	}
	if p := sf.FindPreset(9, 0); p == nil || p.Name != "percussion" {
		t.Errorf("percussion fallback failed: %+v", p)
	}
	if p := sf.FindPreset(9, 99); p == nil || p.Name != "percussion" {
		t.Errorf("percussion fallback should precede the bank-0 fallbacks: %+v", p)
	}

	empty := &SoundFont{}
	if p := empty.FindPreset(1, 1); p != nil {
		t.Errorf("expected nil preset on a bank with no presets at all, got %+v", p)
	}
}

func TestSampleDisabledOnInvertedRange(t *testing.T) {
	data := buildMinimalSF2(t)
	// Flip the sample's start/end in-place so the loader sees an inverted
	// range and must disable it rather than error out.
	idx := bytes.Index(data, []byte("TestSample"))
	if idx < 0 {
		t.Fatal("fixture sample name not found")
	}
	startOff := idx + 20
	binary.LittleEndian.PutUint32(data[startOff:], 7)
	binary.LittleEndian.PutUint32(data[startOff+4:], 0)

	sf, err := Load(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := sf.Samples[0]
	if s.Start != 0 || s.End != 0 {
		t.Errorf("inverted-range sample should be disabled (start=end=0), got start=%d end=%d", s.Start, s.End)
	}
}
