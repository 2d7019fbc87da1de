package sequencer

import "fmt"

// musControllerMap is DMX's MUS_CONTROLLER_MAP, translating a MUS
// controller number (0-15) directly to the MIDI CC number it implies.
// Slots 0 and 15 are -1: no CC corresponds to them. A control-change
// event with controller 0 is a program change, handled specially before
// this table is consulted.
var musControllerMap = [16]int16{
	0:  -1,
	1:  0,   // bank select MSB
	2:  1,   // modulation
	3:  7,   // volume
	4:  10,  // pan
	5:  11,  // expression
	6:  91,  // reverb
	7:  93,  // chorus
	8:  64,  // sustain pedal
	9:  67,  // soft pedal
	10: 120, // all sound off
	11: 123, // all notes off
	12: 126, // mono mode
	13: 127, // poly mode
	14: 121, // reset all controllers
	15: -1,
}

const (
	musEventReleaseNote  = 0x00
	musEventPlayNote     = 0x01
	musEventPitchBend    = 0x02
	musEventSystemEvent  = 0x03
	musEventControlChg   = 0x04
	musEventEndOfMeasure = 0x05
	musEventFinish       = 0x06
	musEventUnused       = 0x07
)

// convertMUSToSMF turns a DMX-style MUS byte stream into an equivalent
// format-0 SMF, so the rest of this package only ever has to understand
// one event encoding. It holds all per-channel state locally (last
// velocity, per the spec's note that a clean redesign must not carry this
// as global/package state) so two calls on the same input are guaranteed
// to produce byte-identical output.
func convertMUSToSMF(data []byte) ([]byte, error) {
	if len(data) < 18 || string(data[0:4]) != "MUS\x1a" {
		return nil, fmt.Errorf("%w: missing MUS magic", ErrMalformed)
	}
	scoreLen := int(data[4]) | int(data[5])<<8
	scoreStart := int(data[6]) | int(data[7])<<8
	if scoreStart+scoreLen > len(data) {
		return nil, fmt.Errorf("%w: MUS score runs past end of file", ErrMalformed)
	}
	score := data[scoreStart : scoreStart+scoreLen]

	var lastVelocity [16]uint8
	for i := range lastVelocity {
		lastVelocity[i] = 64
	}
	mapChannel := func(ch uint8) uint8 {
		switch ch {
		case 15:
			return 9
		case 9:
			return 15
		default:
			return ch
		}
	}

	var body []byte
	var tick uint64
	var lastEmitTick uint64
	i := 0
	for i < len(score) {
		eventByte := score[i]
		i++
		last := eventByte&0x80 != 0
		eventType := (eventByte >> 4) & 0x07
		channel := mapChannel(eventByte & 0x0f)

		appendEvent := func(status byte, d1, d2 byte, nData int) error {
			delta := tick - lastEmitTick
			lastEmitTick = tick
			body = appendVLQ(body, delta)
			body = append(body, status)
			body = append(body, d1)
			if nData == 2 {
				body = append(body, d2)
			}
			return nil
		}

		switch eventType {
		case musEventReleaseNote:
			if i >= len(score) {
				return nil, fmt.Errorf("%w: truncated release-note event", ErrMalformed)
			}
			key := score[i] & 0x7f
			i++
			if err := appendEvent(0x80|channel, key, lastVelocity[channel], 2); err != nil {
				return nil, err
			}
		case musEventPlayNote:
			if i >= len(score) {
				return nil, fmt.Errorf("%w: truncated play-note event", ErrMalformed)
			}
			noteByte := score[i]
			i++
			key := noteByte & 0x7f
			if noteByte&0x80 != 0 {
				if i >= len(score) {
					return nil, fmt.Errorf("%w: truncated play-note velocity", ErrMalformed)
				}
				lastVelocity[channel] = score[i] & 0x7f
				i++
			}
			if err := appendEvent(0x90|channel, key, lastVelocity[channel], 2); err != nil {
				return nil, err
			}
		case musEventPitchBend:
			if i >= len(score) {
				return nil, fmt.Errorf("%w: truncated pitch-bend event", ErrMalformed)
			}
			value14 := uint16(score[i]) * 64
			i++
			if err := appendEvent(0xe0|channel, byte(value14&0x7f), byte((value14>>7)&0x7f), 2); err != nil {
				return nil, err
			}
		case musEventSystemEvent:
			if i >= len(score) {
				return nil, fmt.Errorf("%w: truncated system event", ErrMalformed)
			}
			controller := score[i] & 0x0f
			i++
			cc := musControllerMap[controller]
			if cc >= 0 {
				if err := appendEvent(0xb0|channel, byte(cc), 0x7f, 2); err != nil {
					return nil, err
				}
			}
		case musEventControlChg:
			if i+1 >= len(score) {
				return nil, fmt.Errorf("%w: truncated controller-change event", ErrMalformed)
			}
			controller := score[i] & 0x0f
			value := score[i+1]
			i += 2
			if controller == 0 {
				if err := appendEvent(0xc0|channel, value&0x7f, 0, 1); err != nil {
					return nil, err
				}
			} else if cc := musControllerMap[controller]; cc >= 0 {
				if err := appendEvent(0xb0|channel, byte(cc), value&0x7f, 2); err != nil {
					return nil, err
				}
			}
		case musEventEndOfMeasure:
			// No MIDI equivalent; carried only for MUS's own measure bookkeeping.
		case musEventFinish:
			body = append(body, appendVLQ(nil, tick-lastEmitTick)...)
			body = append(body, 0xff, MetaEndOfTrack, 0x00)
			return buildSMFBytes(70, body), nil
		case musEventUnused:
			// One data byte with no MIDI equivalent; skip it.
			if i >= len(score) {
				return nil, fmt.Errorf("%w: truncated unused event", ErrMalformed)
			}
			i++
		default:
			return nil, fmt.Errorf("%w: unrecognized MUS event type %d", ErrMalformed, eventType)
		}

		if last {
			if i >= len(score) {
				return nil, fmt.Errorf("%w: truncated inter-event delay", ErrMalformed)
			}
			delay, n, ok := readVLQ(score[i:])
			if !ok {
				return nil, fmt.Errorf("%w: unterminated MUS delay VLQ", ErrMalformed)
			}
			i += n
			tick += delay
		}
	}

	body = append(body, 0x00, 0xff, MetaEndOfTrack, 0x00)
	return buildSMFBytes(70, body), nil
}
