package sequencer

import "fmt"

// sourceFormat is the score container format detected from the leading
// bytes of the input, per spec §4.5/§6.
type sourceFormat uint8

const (
	formatUnknown sourceFormat = iota
	formatSMF
	formatRMI
	formatGMF
	formatMUS
	formatRSXX
)

// detectFormat inspects the leading bytes of a score file and reports
// which container it is, without otherwise touching the buffer.
func detectFormat(data []byte) sourceFormat {
	switch {
	case len(data) >= 4 && string(data[0:4]) == "MThd":
		return formatSMF
	case len(data) >= 4 && string(data[0:4]) == "RIFF":
		return formatRMI
	case len(data) >= 4 && string(data[0:4]) == "GMF\x01":
		return formatGMF
	case len(data) >= 4 && string(data[0:4]) == "MUS\x1a":
		return formatMUS
	case len(data) >= 1 && data[0] >= 0x5d && rsxxMagicAt(data, int(data[0])-0x10):
		return formatRSXX
	default:
		return formatUnknown
	}
}

func rsxxMagicAt(data []byte, offset int) bool {
	return offset >= 0 && offset+6 <= len(data) && string(data[offset:offset+6]) == "rsxx}u"
}

// loadScore normalizes any recognized container into a single-tempo-scale
// SMF-equivalent: a header (division, and in GMF's case a tempo
// multiplier) plus one absolute-tick event list per track.
func loadScore(data []byte) (smfHeader, [][]Event, float64, error) {
	switch detectFormat(data) {
	case formatSMF:
		hdr, tracks, err := parseSMF(data)
		return hdr, tracks, 1, err
	case formatRMI:
		if len(data) < 20 {
			return smfHeader{}, nil, 1, fmt.Errorf("%w: RMI container too short", ErrMalformed)
		}
		hdr, tracks, err := parseSMF(data[20:])
		return hdr, tracks, 1, err
	case formatGMF:
		evs, err := parseSMFTrack(data[4:])
		if err != nil {
			return smfHeader{}, nil, 1, err
		}
		hdr := smfHeader{Format: 0, TrackCount: 1, TicksPerBeat: 192}
		return hdr, [][]Event{evs}, 2, nil
	case formatMUS:
		smfBytes, err := convertMUSToSMF(data)
		if err != nil {
			return smfHeader{}, nil, 1, err
		}
		hdr, tracks, err := parseSMF(smfBytes)
		return hdr, tracks, 1, err
	case formatRSXX:
		headerLen := int(data[0])
		if headerLen > len(data) {
			return smfHeader{}, nil, 1, fmt.Errorf("%w: RSXX header runs past end of file", ErrMalformed)
		}
		evs, err := parseSMFTrack(data[headerLen:])
		if err != nil {
			return smfHeader{}, nil, 1, err
		}
		hdr := smfHeader{Format: 0, TrackCount: 1, TicksPerBeat: 60}
		return hdr, [][]Event{evs}, 1, nil
	default:
		return smfHeader{}, nil, 1, ErrUnknownFormat
	}
}
