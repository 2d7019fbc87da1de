package soundfont

import (
	"bytes"
	"fmt"
	"io"
)

// Sample is a slice into the bank's shared 16-bit PCM pool, with looping
// and pitch metadata plus a precomputed attenuation floor used to bound a
// voice's worst-case loudness before it is even rendered once.
type Sample struct {
	Start, End           uint32
	StartLoop, EndLoop   uint32
	SampleRate           uint32
	OriginalKey          uint8
	Correction           int8
	MinAtten             float64
	data                 *sampleData
}

// disabled reports whether this sample's range is inverted, the loader's
// signal (shared with FluidSynth/TinySoundFont) for "do not play this".
func (s *Sample) disabled() bool { return s.Start >= s.End }

// Disabled exports disabled for the voice layer (a disabled sample still
// produces a Voice, silent rather than refused, matching the reference
// behavior of never erroring out of a note-on).
func (s *Sample) Disabled() bool { return s.disabled() }

// At16 returns one 16-bit sample point relative to the pool this sample
// was cut from.
func (s *Sample) At16(idx uint32) int16 {
	return s.data.at16(int(idx))
}

// PoolLen returns the size of the shared sample-point pool this sample was
// cut from, the bound a voice clamps its loop/end addresses against.
func (s *Sample) PoolLen() int {
	return len(s.data.smpl)
}

// Pool returns the entire shared 16-bit PCM pool this sample was cut
// from. A Voice renders directly out of this slice rather than a
// per-sample copy, since its generator-offset start/end/loop points may
// legally reach outside this sample's own declared range and into a
// neighboring one, exactly as the reference implementation's shared
// sample_buffer pointer allows.
func (s *Sample) Pool() []int16 {
	return s.data.smpl
}

// SoundFont is a fully parsed, cross-referenced SF2 bank: metadata,
// presets, instruments and the shared sample pool they reference.
type SoundFont struct {
	Info        *Info
	Presets     []Preset
	Instruments []Instrument
	Samples     []Sample

	loadError bool
}

// LoadError reports whether any step of parsing this bank encountered a
// fatal structural problem. The loader never panics on malformed input:
// it sets this flag when it returns a partial result alongside its error
// (an unsupported version, or a failure building samples, instruments or
// presets); problems found before that return no SoundFont at all.
func (sf *SoundFont) LoadError() bool { return sf.loadError }

// decodeFunc optionally pre-decodes a compressed container (FLAC) into
// raw bytes before RIFF parsing begins. See IsFLAC.
type decodeFunc func(r io.Reader) ([]byte, error)

// Load parses a complete SoundFont 2 bank from src. If the stream begins
// with the FLAC magic "fLaC", decode is invoked first and its output is
// parsed instead of the raw bytes; decode may be nil if FLAC-wrapped
// banks are not in use, in which case such a stream is reported through
// ErrUnsupportedVersion rather than silently misparsed as RIFF.
func Load(src io.Reader, decode decodeFunc) (*SoundFont, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	if IsFLAC(data) {
		if decode == nil {
			return nil, fmt.Errorf("%w: FLAC-wrapped bank with no decoder configured", ErrUnsupportedVersion)
		}
		data, err = decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
	}
	return parse(bytes.NewReader(data))
}

func parse(r io.Reader) (*SoundFont, error) {
	var riff chunk
	if err := riff.expect(r, [4]byte{'R', 'I', 'F', 'F'}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	body := riff.reader()
	if ok, err := readTag(body, "sfbk"); err != nil || !ok {
		return nil, fmt.Errorf("%w: not a SoundFont RIFF container", ErrMalformed)
	}

	sf := &SoundFont{}
	var sdta *sampleData
	var h *hydra

	for {
		var list chunk
		if err := list.parse(body); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if string(list.id[:]) != "LIST" {
			continue
		}
		lr := list.reader()
		var tag [4]byte
		if _, err := io.ReadFull(lr, tag[:]); err != nil {
			return nil, err
		}
		switch string(tag[:]) {
		case "INFO":
			info, err := readInfo(lr)
			if err != nil {
				return nil, err
			}
			sf.Info = info
		case "sdta":
			sd, err := readSampleData(lr)
			if err != nil {
				return nil, err
			}
			sdta = sd
		case "pdta":
			hy, err := readHydra(lr)
			if err != nil {
				return nil, err
			}
			h = hy
		}
	}

	if sf.Info == nil {
		return nil, fmt.Errorf("%w: missing INFO list", ErrIncomplete)
	}
	if sf.Info.VersionMajor > 2 || (sf.Info.VersionMajor == 2 && sf.Info.VersionMinor > 4) {
		sf.loadError = true
		return sf, fmt.Errorf("%w: SF2 v%d.%02d", ErrUnsupportedVersion, sf.Info.VersionMajor, sf.Info.VersionMinor)
	}
	if sdta == nil {
		return nil, fmt.Errorf("%w: missing sdta list", ErrIncomplete)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: missing pdta list", ErrIncomplete)
	}

	samples, err := readSamples(h, sdta)
	if err != nil {
		sf.loadError = true
		return sf, err
	}
	sf.Samples = samples

	instruments, err := readInstruments(h)
	if err != nil {
		sf.loadError = true
		return sf, err
	}
	sf.Instruments = instruments

	presets, err := readPresets(h)
	if err != nil {
		sf.loadError = true
		return sf, err
	}
	sf.Presets = presets

	return sf, nil
}

// readSamples builds the Sample pool, scanning each one for peak
// amplitude to derive MinAtten and disabling any whose declared range is
// inverted. A start at or past the end of the PCM pool, or an (exclusive)
// end past it, is reported as ErrMalformed.
func readSamples(h *hydra, sd *sampleData) ([]Sample, error) {
	out := make([]Sample, 0, len(h.samples)-1)
	for i := 0; i < len(h.samples)-1; i++ {
		rec := h.samples[i]
		s := Sample{
			Start:           rec.Start,
			End:             rec.End,
			StartLoop:       rec.StartLoop,
			EndLoop:         rec.EndLoop,
			SampleRate:      rec.SampleRate,
			OriginalKey:     rec.OriginalPitch,
			Correction:      rec.PitchCorrection,
			data:            sd,
		}
		if s.OriginalKey > 127 {
			s.OriginalKey = 60
		}
		if int(s.Start) >= len(sd.smpl) || int(s.End) > len(sd.smpl) {
			return nil, fmt.Errorf("%w: sample %q range extends beyond sample pool", ErrMalformed, cstring(rec.Name[:]))
		}
		if s.Start < s.End {
			peak := 0
			for j := s.Start; j < s.End; j++ {
				v := int(sd.at16(int(j)))
				if v < 0 {
					v = -v
				}
				if v > peak {
					peak = v
				}
			}
			s.MinAtten = amplitudeToAttenuation(float64(peak) / 32767.0)
		} else {
			s.Start, s.End, s.StartLoop, s.EndLoop = 0, 0, 0, 0
		}
		out = append(out, s)
	}
	return out, nil
}
