package soundfont

// IsFLAC reports whether data begins with the FLAC stream magic. Some
// SoundFont distributions ship their sample data FLAC-compressed to save
// space; Load detects this and, if a decoder is supplied, hands it the
// whole compressed stream before RIFF parsing begins. This package does
// not link a FLAC decoder itself (that pulls in a real codec dependency
// a host may not want); a host supplies one through Load's decode
// parameter (Synthesizer.SetFLACDecoder at the facade level).
func IsFLAC(data []byte) bool {
	return len(data) >= 4 && data[0] == 'f' && data[1] == 'L' && data[2] == 'a' && data[3] == 'C'
}
