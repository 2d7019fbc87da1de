package soundfont

import "errors"

// ErrMalformed covers any structurally invalid RIFF/SF2 container: a bad
// magic, an array whose byte size is not a multiple of its record stride,
// or non-monotonic bag indices. ErrUnsupportedVersion flags a bank whose
// ifil version exceeds what this loader understands (SF2 > 2.04).
// ErrIncomplete covers a required chunk (phdr/inst/shdr, or fewer than the
// mandatory two terminator-inclusive records) being missing or too short.
//
// All three are fatal to a load: the loader stops and returns the error
// (sometimes alongside a partial *SoundFont whose LoadError flag is set),
// never a panic. Synthesizer.LoadSoundFont turns any of them into its own
// sticky load-error flag.
var (
	ErrMalformed         = errors.New("soundfont: malformed RIFF container")
	ErrUnsupportedVersion = errors.New("soundfont: unsupported SoundFont version")
	ErrIncomplete        = errors.New("soundfont: missing or truncated required chunk")
)
