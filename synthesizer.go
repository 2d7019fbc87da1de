// Package sfsynth is a self-contained SoundFont2 MIDI synthesizer: given a
// SF2 bank and a score in any of SMF/RMI/GMF/MUS/RSXX, it renders a
// continuous interleaved stereo float32 audio stream a host consumes in
// fixed-size chunks, mirroring the pull-based GenerateAudio contract the
// teacher's tracker Player exposes to its own audio callback.
package sfsynth

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/gosoundfont/sfsynth/sequencer"
	"github.com/gosoundfont/sfsynth/soundfont"
)

// frameSize is the byte length of one interleaved stereo float32 frame:
// two channels, four bytes each.
const frameSize = 2 * 4

// DecodeFunc optionally pre-decodes a compressed container (FLAC) before
// RIFF parsing; see soundfont.Load. It is a type alias (not a defined
// type) so a DecodeFunc value is directly assignable to soundfont.Load's
// own decode parameter without a conversion at the call site.
type DecodeFunc = func(r io.Reader) ([]byte, error)

// Synthesizer is the top-level facade: it owns the voice pool, the 16
// channels, the currently bound SoundFont, and the sequencer driving
// playback. A host typically constructs one per audio device and calls
// PlayStream from its render callback.
type Synthesizer struct {
	sampleRate float64
	voices     []Voice
	voicePtrs  []*Voice
	channels   [16]*Channel

	soundFont *soundfont.SoundFont
	seq       *sequencer.Sequencer

	volume float64

	flacDecoder DecodeFunc
	loadError   bool
}

// New constructs a synthesizer with a pre-allocated pool of voiceCount
// voices (never grown or freed afterward) at sampleRate, matching the
// teacher's NewPlayer(song, samplingFrequency) shape.
func New(sampleRate float64, voiceCount int) *Synthesizer {
	s := &Synthesizer{
		sampleRate: sampleRate,
		voices:     make([]Voice, voiceCount),
		volume:     1,
	}
	s.voicePtrs = make([]*Voice, voiceCount)
	for i := range s.voices {
		s.voices[i].status = VoiceUnused
		s.voicePtrs[i] = &s.voices[i]
	}
	for i := range s.channels {
		c := NewChannel(i, s.voicePtrs)
		c.SetOutputRate(sampleRate)
		s.channels[i] = c
	}
	s.seq = sequencer.NewSequencer(s)
	return s
}

// SetFLACDecoder installs the external collaborator used to pre-decode a
// FLAC-wrapped SoundFont before RIFF parsing; nil (the default) means such
// banks are rejected with soundfont.ErrUnsupportedVersion.
func (s *Synthesizer) SetFLACDecoder(d DecodeFunc) { s.flacDecoder = d }

// Channel implements sequencer.Sink, letting the sequencer dispatch score
// events straight to this synthesizer's channels without either package
// importing the other's concrete types.
func (s *Synthesizer) Channel(index int) sequencer.ChannelSink {
	if index < 0 || index >= len(s.channels) {
		return nil
	}
	return s.channels[index]
}

// LoadSoundFont parses path (or, via LoadSoundFontBytes, an in-memory
// bank) and rebinds every channel to it. A parse failure sets the sticky
// LoadError flag and leaves any previously loaded bank in place, per §7.
func (s *Synthesizer) LoadSoundFont(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		s.loadError = true
		return false
	}
	return s.LoadSoundFontBytes(data)
}

// LoadSoundFontBytes is LoadSoundFont's in-memory counterpart.
func (s *Synthesizer) LoadSoundFontBytes(data []byte) bool {
	sf, err := soundfont.Load(bytes.NewReader(data), s.flacDecoder)
	if err != nil || sf.LoadError() {
		s.loadError = true
		return false
	}

	// Draining every voice before the old pool (if any) goes away is the
	// resource-policy rule from §5: a SoundFont swap invalidates every
	// voice referencing its sample pool.
	for i := range s.voices {
		s.voices[i].SetStatus(VoiceFinished)
	}

	s.soundFont = sf
	for _, c := range s.channels {
		c.SetSoundFont(sf)
		c.ProgramChange(0)
	}
	s.loadError = false
	return true
}

// LoadSong parses path (or, via LoadSongBytes, in-memory score data) and
// resets the sequencer to its start.
func (s *Synthesizer) LoadSong(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		s.loadError = true
		return false
	}
	return s.LoadSongBytes(data)
}

// LoadSongBytes is LoadSong's in-memory counterpart.
func (s *Synthesizer) LoadSongBytes(data []byte) bool {
	if err := s.seq.LoadSong(data); err != nil {
		s.loadError = true
		return false
	}
	return true
}

// SetVolume sets the master gain applied to the mixed output; negative
// values are clamped to 0 per §6.
func (s *Synthesizer) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	s.volume = v
}

// SetBankSelectMode propagates the active bank-select convention (GM/GS/
// XG) to every channel; channel 10 ignores it (always percussion).
func (s *Synthesizer) SetBankSelectMode(mode BankSelectMode) {
	for _, c := range s.channels {
		c.SetBankMode(mode)
	}
}

// AtEnd reports whether the loaded song (including any configured loop
// repetitions) has finished dispatching every event.
func (s *Synthesizer) AtEnd() bool { return s.seq.AtEnd() }

// SetLoopCount configures how many times the song's loop region repeats
// (-1 forever, 0 disabled).
func (s *Synthesizer) SetLoopCount(n int) { s.seq.SetLoopCount(n) }

// Rewind returns the sequencer to the start of the track without
// resetting channel/voice state, per §8's round-trip property.
func (s *Synthesizer) Rewind() { s.seq.Rewind() }

// Pause sends CC123 (all notes off, honoring sustain) to every channel.
func (s *Synthesizer) Pause() {
	for _, c := range s.channels {
		c.ControlChange(uint8(ccAllNotesOff), 0)
	}
}

// Stop sends CC120 (all sound off) to every channel, hard-killing every
// voice regardless of envelope or sustain state.
func (s *Synthesizer) Stop() {
	for _, c := range s.channels {
		c.ControlChange(uint8(ccAllSoundOff), 0)
	}
}

// Reset is Stop plus a sustain-pedal release, a full controller reset on
// every channel, and a full sequencer reset back to the start of the
// track with loop state rediscovered.
func (s *Synthesizer) Reset() {
	s.Stop()
	for _, c := range s.channels {
		c.ControlChange(uint8(ccSustain), 0)
		c.ControlChange(uint8(ccResetAllControllers), 0)
	}
	s.seq.FullReset()
}

// GetLoadError reports the sticky load-error flag; SetLoadError lets a
// caller acknowledge/clear it explicitly (e.g. after surfacing it to a
// user), matching the trivially-delegating API surface of §4.6.
func (s *Synthesizer) GetLoadError() bool    { return s.loadError }
func (s *Synthesizer) SetLoadError(v bool)   { s.loadError = v }

// PlayStream renders len(out)/frameSize stereo frames into out as
// interleaved little-endian float32 PCM, advancing the sequencer's
// wall-clock and mixing every non-finished voice into each frame. It
// returns the number of bytes written, always a multiple of frameSize.
func (s *Synthesizer) PlayStream(out []byte) int {
	frames := len(out) / frameSize
	frameSeconds := 1.0 / s.sampleRate

	for f := 0; f < frames; f++ {
		s.seq.Advance(frameSeconds)

		var left, right float64
		for i := range s.voices {
			v := &s.voices[i]
			switch v.Status() {
			case VoiceUnused, VoiceFinished:
				continue
			}
			l, r := v.Render()
			left += l
			right += r
			v.Update()
		}

		left *= s.volume
		right *= s.volume

		off := f * frameSize
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(float32(left)))
		binary.LittleEndian.PutUint32(out[off+4:], math.Float32bits(float32(right)))
	}

	return frames * frameSize
}
