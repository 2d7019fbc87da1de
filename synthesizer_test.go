package sfsynth

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// writeChunk appends one RIFF tagged chunk to buf, matching the soundfont
// package's own test fixture builder byte for byte.
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

// buildMinimalSF2 assembles the smallest structurally complete bank: one
// preset mapping program 0 to one instrument zone covering the full
// key/velocity range, pointing at one looped sample.
func buildMinimalSF2(t *testing.T) []byte {
	t.Helper()

	samplePoints := make([]int16, 256)
	for i := range samplePoints {
		v := (i % 64) * 500
		if i%128 >= 64 {
			v = -v
		}
		samplePoints[i] = int16(v)
	}
	var smpl bytes.Buffer
	for _, v := range samplePoints {
		binary.Write(&smpl, binary.LittleEndian, v)
	}
	var sdtaBody bytes.Buffer
	sdtaBody.WriteString("sdta")
	writeChunk(&sdtaBody, "smpl", smpl.Bytes())

	// phdr: presetHeaderRecord{Name[20], Preset u16, Bank u16, PresetBagNdx u16, Library/Genre/Morphology u32 x3}
	writePresetHeader := func(buf *bytes.Buffer, name string, preset, bank, bagNdx uint16) {
		n := name20(name)
		buf.Write(n[:])
		binary.Write(buf, binary.LittleEndian, preset)
		binary.Write(buf, binary.LittleEndian, bank)
		binary.Write(buf, binary.LittleEndian, bagNdx)
		binary.Write(buf, binary.LittleEndian, uint32(0))
		binary.Write(buf, binary.LittleEndian, uint32(0))
		binary.Write(buf, binary.LittleEndian, uint32(0))
	}
	var phdr bytes.Buffer
	writePresetHeader(&phdr, "TestPreset", 0, 0, 0)
	writePresetHeader(&phdr, "EOP", 0, 0, 1)

	writeBag := func(buf *bytes.Buffer, genNdx, modNdx uint16) {
		binary.Write(buf, binary.LittleEndian, genNdx)
		binary.Write(buf, binary.LittleEndian, modNdx)
	}
	var pbag bytes.Buffer
	writeBag(&pbag, 0, 0)
	writeBag(&pbag, 1, 0)

	var pmod bytes.Buffer // no preset-level modulators

	writeGen := func(buf *bytes.Buffer, oper uint16, raw [2]byte) {
		binary.Write(buf, binary.LittleEndian, oper)
		buf.Write(raw[:])
	}
	var pgen bytes.Buffer
	const genInstrument = 41
	writeGen(&pgen, genInstrument, [2]byte{0, 0}) // instrument 0

	var inst bytes.Buffer
	writeInstRecord := func(buf *bytes.Buffer, name string, bagNdx uint16) {
		n := name20(name)
		buf.Write(n[:])
		binary.Write(buf, binary.LittleEndian, bagNdx)
	}
	writeInstRecord(&inst, "TestInstrument", 0)
	writeInstRecord(&inst, "EOI", 1)

	var ibag bytes.Buffer
	writeBag(&ibag, 0, 0)
	writeBag(&ibag, 1, 0)

	var imod bytes.Buffer // no instrument-level modulators

	var igen bytes.Buffer
	const genSampleID = 53
	writeGen(&igen, genSampleID, [2]byte{0, 0}) // sample 0

	var shdr bytes.Buffer
	writeSampleHeader := func(buf *bytes.Buffer, name string, start, end, startLoop, endLoop, sampleRate uint32, originalPitch uint8) {
		n := name20(name)
		buf.Write(n[:])
		binary.Write(buf, binary.LittleEndian, start)
		binary.Write(buf, binary.LittleEndian, end)
		binary.Write(buf, binary.LittleEndian, startLoop)
		binary.Write(buf, binary.LittleEndian, endLoop)
		binary.Write(buf, binary.LittleEndian, sampleRate)
		buf.WriteByte(originalPitch)
		buf.WriteByte(0) // pitch correction
		binary.Write(buf, binary.LittleEndian, uint16(0))
		binary.Write(buf, binary.LittleEndian, uint16(1)) // SampleType mono
	}
	writeSampleHeader(&shdr, "TestSample", 0, uint32(len(samplePoints)), 1, uint32(len(samplePoints)-1), 44100, 60)
	writeSampleHeader(&shdr, "EOS", 0, 0, 0, 0, 0, 0)

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

// appendU16/appendU32 write big-endian multi-byte fields, matching SMF's
// own wire byte order.
func appendU16(b []byte, v uint16) []byte { return append(b, byte(v>>8), byte(v)) }
func appendU32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// buildMinimalSMF assembles a single-track format-0 SMF with one note-on at
// tick 0 and a matching note-off one beat later.
func buildMinimalSMF(t *testing.T) []byte {
	t.Helper()

	var track []byte
	track = append(track, 0x00, 0x90, 60, 100) // delta 0, note-on ch0 key60 vel100
	track = append(track, 0x60, 0x80, 60, 0)   // delta 96 (one beat at 96 ticks/beat), note-off
	track = append(track, 0x00, 0xff, 0x2f, 0x00)

	var buf []byte
	buf = append(buf, 'M', 'T', 'h', 'd')
	buf = appendU32(buf, 6)
	buf = appendU16(buf, 0) // format 0
	buf = appendU16(buf, 1) // 1 track
	buf = appendU16(buf, 96)

	buf = append(buf, 'M', 'T', 'r', 'k')
	buf = appendU32(buf, uint32(len(track)))
	buf = append(buf, track...)
	return buf
}

func TestSynthesizerSilenceWithNoSongLoaded(t *testing.T) {
	synth := New(44100, 16)
	if !synth.LoadSoundFontBytes(buildMinimalSF2(t)) {
		t.Fatalf("failed to load minimal soundfont: GetLoadError=%v", synth.GetLoadError())
	}

	out := make([]byte, 44100*frameSize)
	n := synth.PlayStream(out)
	if n != len(out) {
		t.Fatalf("PlayStream returned %d bytes, want %d", n, len(out))
	}
	for i, b := range out {
		if b != 0 {
			t.Fatalf("expected silence with no song loaded, got nonzero byte at offset %d", i)
		}
	}
}

func TestSynthesizerLoadSoundFontErrorLeavesPreviousBankIntact(t *testing.T) {
	synth := New(44100, 8)
	if !synth.LoadSoundFontBytes(buildMinimalSF2(t)) {
		t.Fatalf("failed to load valid soundfont")
	}
	if synth.LoadSoundFontBytes([]byte("not a soundfont")) {
		t.Fatalf("expected malformed soundfont bytes to fail to load")
	}
	if !synth.GetLoadError() {
		t.Errorf("expected sticky load error to be set after a failed load")
	}
	if synth.soundFont == nil {
		t.Errorf("a failed reload should leave the previously loaded bank in place")
	}
}

func TestSynthesizerRendersNonSilentAudioForALoadedSong(t *testing.T) {
	synth := New(44100, 16)
	if !synth.LoadSoundFontBytes(buildMinimalSF2(t)) {
		t.Fatalf("failed to load soundfont")
	}
	if !synth.LoadSongBytes(buildMinimalSMF(t)) {
		t.Fatalf("failed to load song: GetLoadError=%v", synth.GetLoadError())
	}

	out := make([]byte, 4096*frameSize)
	synth.PlayStream(out)

	nonZero := false
	for _, b := range out {
		if b != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Errorf("expected a non-silent render once a note-on has fired")
	}
}

func TestSynthesizerRewindRestartsPlayback(t *testing.T) {
	synth := New(44100, 16)
	if !synth.LoadSoundFontBytes(buildMinimalSF2(t)) {
		t.Fatalf("failed to load soundfont")
	}
	if !synth.LoadSongBytes(buildMinimalSMF(t)) {
		t.Fatalf("failed to load song")
	}

	big := make([]byte, 44100*frameSize)
	synth.PlayStream(big)
	if !synth.AtEnd() {
		t.Fatalf("expected the short test song to finish well within one second of rendering")
	}

	synth.Rewind()
	if synth.AtEnd() {
		t.Errorf("Rewind should return the sequencer to a playable, non-finished state")
	}
}
