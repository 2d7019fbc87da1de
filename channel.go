package sfsynth

import "github.com/gosoundfont/sfsynth/soundfont"

// controlChange names the MIDI CC numbers this channel special-cases; any
// CC not named here still reaches UpdateMIDIController on every voice, so
// new bindings (volume, pan, expression, modulation) need no entry at all.
type controlChange uint8

const (
	ccBankSelectMSB       controlChange = 0
	ccModulation          controlChange = 1
	ccDataEntryMSB        controlChange = 6
	ccVolume              controlChange = 7
	ccPan                 controlChange = 10
	ccExpression          controlChange = 11
	ccBankSelectLSB       controlChange = 32
	ccDataEntryLSB        controlChange = 38
	ccSustain             controlChange = 64
	ccDataIncrement       controlChange = 96
	ccDataDecrement       controlChange = 97
	ccNRPNLSB             controlChange = 98
	ccNRPNMSB             controlChange = 99
	ccRPNLSB              controlChange = 100
	ccRPNMSB              controlChange = 101
	ccAllSoundOff         controlChange = 120
	ccResetAllControllers controlChange = 121
	ccAllNotesOff         controlChange = 123
)

// dataEntryMode selects what CC6/38 (data entry) and CC96/97 (data
// increment/decrement) act on: the three RPN parameters this channel
// understands, or an NRPN index it deliberately does not interpret.
type dataEntryMode int

const (
	dataEntryRPN dataEntryMode = iota
	dataEntryNRPN
)

// rpnParameter is one of the three registered parameters this channel
// tracks; data entry and increment/decrement against any other
// (RPN_MSB<<7)|RPN_LSB value are ignored.
type rpnParameter uint16

const (
	rpnPitchBendSensitivity rpnParameter = 0
	rpnFineTuning           rpnParameter = 1
	rpnCoarseTuning         rpnParameter = 2
	rpnLast                 rpnParameter = 3
)

// BankSelectMode picks how a channel turns its BANK_SELECT_MSB/LSB
// controllers into a SoundFont bank number at program-change time, since
// the three common conventions disagree on which byte (or both) carries
// the bank.
type BankSelectMode int

const (
	BankModeGM BankSelectMode = iota
	BankModeGS
	BankModeXG
)

// Channel is one of the synthesizer's 16 MIDI channels: controller state,
// the preset it is currently bound to, and note on/off/voice-stealing
// against a shared voice pool owned by the Synthesizer.
type Channel struct {
	index      int
	percussion bool
	bankMode   BankSelectMode
	outputRate float64

	soundFont *soundfont.SoundFont
	preset    *soundfont.Preset
	program   uint8

	voices []*Voice // shared pool; every channel sees the same backing array

	controllers     [numControllers]uint8
	keyPressures    [maxKey + 1]uint8
	channelPressure uint8
	pitchBend       uint16

	dataMode dataEntryMode
	rpns     [rpnLast]uint16

	fineTuning, coarseTuning float64

	nextNoteID uint64
}

// NewChannel constructs a channel bound to the synthesizer's shared voice
// pool, with the controller defaults a freshly reset MIDI device carries:
// volume 100, centered pan, full expression, and RPN select parked at the
// "null" value (127, 127) so a stray data-entry before an RPN is chosen
// does nothing.
func NewChannel(index int, voices []*Voice) *Channel {
	c := &Channel{
		index:      index,
		voices:     voices,
		percussion: index == percussionChannel,
		pitchBend:  1 << 13,
	}
	c.controllers[ccVolume] = 100
	c.controllers[ccPan] = 64
	c.controllers[ccExpression] = 127
	c.controllers[ccRPNLSB] = 127
	c.controllers[ccRPNMSB] = 127
	return c
}

func (c *Channel) Index() int                     { return c.index }
func (c *Channel) Preset() *soundfont.Preset       { return c.preset }
func (c *Channel) SetOutputRate(rate float64)      { c.outputRate = rate }
func (c *Channel) SetBankMode(mode BankSelectMode) { c.bankMode = mode }

// SetSoundFont rebinds the channel to a freshly loaded bank, dropping its
// current preset: the owning Synthesizer is responsible for following
// this with a ProgramChange once it knows what program belongs here.
func (c *Channel) SetSoundFont(sf *soundfont.SoundFont) {
	c.soundFont = sf
	c.preset = nil
}

// resolvedBank turns the channel's bank-select controllers into a bank
// number per the active convention: GM ignores them (bank 0 always), GS
// uses only the MSB, XG uses the MSB to flag the percussion bank (127)
// and otherwise defers to the LSB. Channel 10 is hardwired to the
// percussion bank regardless of convention, matching every one of the
// three in practice.
func (c *Channel) resolvedBank() uint16 {
	if c.percussion {
		return percussionBank
	}
	switch c.bankMode {
	case BankModeGS:
		return uint16(c.controllers[ccBankSelectMSB])
	case BankModeXG:
		if c.controllers[ccBankSelectMSB] == 127 {
			return percussionBank
		}
		return uint16(c.controllers[ccBankSelectLSB])
	default:
		return 0
	}
}

// ProgramChange rebinds the channel's preset by (resolved bank, program),
// falling back per SoundFont.FindPreset's chain. A bank with no matching
// preset at all leaves the channel silent, not erroring.
func (c *Channel) ProgramChange(program uint8) {
	c.program = program
	if c.soundFont == nil {
		c.preset = nil
		return
	}
	c.preset = c.soundFont.FindPreset(c.resolvedBank(), uint16(program))
}

// NoteOn triggers every instrument zone of every preset zone matching
// (key, velocity): each such pair gets its own voice, generators stacked
// instrument-then-preset-additive, modulators stacked
// instrument-then-preset-then-defaults, per §4.4's zone-iteration rule.
func (c *Channel) NoteOn(key, velocity uint8) {
	if velocity == 0 {
		c.NoteOff(key)
		return
	}
	if c.preset == nil || c.soundFont == nil {
		return
	}

	for i := range c.preset.Zones {
		pz := &c.preset.Zones[i]
		if !pz.InRange(key, velocity) {
			continue
		}
		instIdx := pz.Generators.GetOrDefault(soundfont.GenInstrument)
		if instIdx < 0 || int(instIdx) >= len(c.soundFont.Instruments) {
			continue
		}
		inst := &c.soundFont.Instruments[instIdx]

		for j := range inst.Zones {
			iz := &inst.Zones[j]
			if !iz.InRange(key, velocity) {
				continue
			}
			sampleIdx := iz.Generators.GetOrDefault(soundfont.GenSampleID)
			if sampleIdx < 0 || int(sampleIdx) >= len(c.soundFont.Samples) {
				continue
			}
			sample := &c.soundFont.Samples[sampleIdx]

			generators := iz.Generators
			generators.Add(&pz.Generators)

			modulators := iz.Modulators.Clone()
			modulators.MergeAndAdd(&pz.Modulators)
			defaults := soundfont.DefaultModulatorSet()
			modulators.Merge(&defaults)

			exclusiveClass := generators.GetOrDefault(soundfont.GenExclusiveClass)
			c.nextNoteID++
			noteID := c.nextNoteID

			voice := c.getVoice(exclusiveClass, noteID)
			if voice == nil {
				continue
			}
			voice.Init(c.index, noteID, c.outputRate, sample, generators, modulators, key, velocity, c.percussion)
			c.pushControllerState(voice)
		}
	}
}

// pushControllerState feeds every controller this channel currently holds
// into a freshly initialized voice, so a note struck after the pedal, mod
// wheel or pitch bend has already moved sounds as if it had been held the
// whole time rather than starting from the modulator's power-on default.
func (c *Channel) pushControllerState(v *Voice) {
	v.UpdateSF2Controller(soundfont.CtrlPolyPressure, float64(c.keyPressures[v.ActualKey()]))
	v.UpdateSF2Controller(soundfont.CtrlChannelPressure, float64(c.channelPressure))
	v.UpdateSF2Controller(soundfont.CtrlPitchWheel, float64(c.pitchBend))
	v.UpdateSF2Controller(soundfont.CtrlPitchWheelSensitivity, float64(c.rpns[rpnPitchBendSensitivity])/128.0)
	v.UpdateFineTuning(c.fineTuning)
	v.UpdateCoarseTuning(c.coarseTuning)
	for cc := 0; cc < numControllers; cc++ {
		v.UpdateMIDIController(uint8(cc), c.controllers[cc])
	}
}

// NoteOff releases every still-playing voice on this channel at key,
// honoring the sustain pedal: held voices go SUSTAINED and keep ringing
// until the pedal lifts. A voice already SUSTAINED or RELEASED from an
// earlier event on the same key is left alone, since it has already been
// dispositioned by a prior note-off.
func (c *Channel) NoteOff(key uint8) {
	sustainHeld := c.controllers[ccSustain] >= 64
	for _, v := range c.voices {
		if v.Channel() == c.index && v.ActualKey() == key && v.Status() == VoicePlaying {
			v.Release(sustainHeld)
		}
	}
}

func (c *Channel) KeyPressure(key, value uint8) {
	c.keyPressures[key] = value
	for _, v := range c.voices {
		if v.Channel() == c.index && v.ActualKey() == key {
			v.UpdateSF2Controller(soundfont.CtrlPolyPressure, float64(value))
		}
	}
}

func (c *Channel) ChannelPressure(value uint8) {
	c.channelPressure = value
	for _, v := range c.voices {
		if v.Channel() == c.index {
			v.UpdateSF2Controller(soundfont.CtrlChannelPressure, float64(value))
		}
	}
}

// PitchBend takes the full 14-bit wheel position (0..16383, center 8192).
func (c *Channel) PitchBend(value uint16) {
	c.pitchBend = value
	for _, v := range c.voices {
		if v.Channel() == c.index {
			v.UpdateSF2Controller(soundfont.CtrlPitchWheel, float64(value))
		}
	}
}

// selectedRPN reads the 14-bit RPN select from CC101 (MSB) / CC100 (LSB),
// independent of whether data-entry is currently bound to RPN or NRPN.
func (c *Channel) selectedRPN() uint16 {
	return uint16(c.controllers[ccRPNMSB])<<7 | uint16(c.controllers[ccRPNLSB])
}

// ControlChange updates the raw controller array and then runs the
// specialized handlers §4.4 calls out; any CC not named below still
// reaches every voice on the channel as a plain modulator input.
func (c *Channel) ControlChange(controller, value uint8) {
	c.controllers[controller] = value

	switch controlChange(controller) {
	case ccDataEntryMSB, ccDataEntryLSB:
		selected := c.selectedRPN()
		if selected >= uint16(rpnLast) {
			return
		}
		cur := c.rpns[selected]
		if controlChange(controller) == ccDataEntryMSB {
			cur = (cur &^ (0x7f << 7)) | (uint16(value) << 7)
		} else {
			cur = (cur &^ 0x7f) | uint16(value)
		}
		c.rpns[selected] = cur
		if c.dataMode == dataEntryRPN {
			c.updateRPN(rpnParameter(selected))
		}
	case ccSustain:
		if value < 64 {
			c.releaseSustained()
		}
	case ccDataIncrement, ccDataDecrement:
		selected := c.selectedRPN()
		if selected >= uint16(rpnLast) {
			return
		}
		delta := int32(128)
		if controlChange(controller) == ccDataDecrement {
			delta = -128
		}
		v := int32(c.rpns[selected]) + delta
		switch {
		case v < 0:
			v = 0
		case v > 0x3fff:
			v = 0x3fff
		}
		c.rpns[selected] = uint16(v)
		if c.dataMode == dataEntryRPN {
			c.updateRPN(rpnParameter(selected))
		}
	case ccNRPNMSB, ccNRPNLSB:
		c.dataMode = dataEntryNRPN
	case ccRPNMSB, ccRPNLSB:
		c.dataMode = dataEntryRPN
	case ccAllSoundOff:
		for _, v := range c.voices {
			if v.Channel() == c.index {
				v.SetStatus(VoiceFinished)
			}
		}
	case ccResetAllControllers:
		c.resetAllControllers()
	case ccAllNotesOff:
		c.releaseAll()
	default:
		for _, v := range c.voices {
			if v.Channel() == c.index {
				v.UpdateMIDIController(controller, value)
			}
		}
	}
}

func (c *Channel) releaseSustained() {
	for _, v := range c.voices {
		if v.Channel() == c.index && v.Status() == VoiceSustained {
			v.Release(false)
		}
	}
}

// releaseAll is CC123 (all notes off): every playing voice releases,
// honoring the sustain pedal exactly like a note-off would.
func (c *Channel) releaseAll() {
	sustainHeld := c.controllers[ccSustain] >= 64
	for _, v := range c.voices {
		if v.Channel() == c.index && v.Status() == VoicePlaying {
			v.Release(sustainHeld)
		}
	}
}

// resetAllControllers is CC121: per-key and channel pressure zero, pitch
// bend recenters, and CCs 1..121 reset to their defaults except volume,
// pan, bank-select LSB and all-sound-off (left as-is), the reverb/chorus
// and sound-controller ranges 70-79/91-95 (left as-is), and expression
// plus the RPN select pair (forced to 127, the "null" RPN).
func (c *Channel) resetAllControllers() {
	for i := range c.keyPressures {
		c.keyPressures[i] = 0
	}
	c.channelPressure = 0
	c.pitchBend = 1 << 13

	for cc := 1; cc <= 121; cc++ {
		switch {
		case cc >= 70 && cc <= 79:
		case cc >= 91 && cc <= 95:
		case controlChange(cc) == ccVolume, controlChange(cc) == ccPan,
			controlChange(cc) == ccBankSelectLSB, controlChange(cc) == ccAllSoundOff:
		case controlChange(cc) == ccExpression, controlChange(cc) == ccRPNLSB, controlChange(cc) == ccRPNMSB:
			c.controllers[cc] = 127
		default:
			c.controllers[cc] = 0
		}
	}
}

// updateRPN propagates a just-written registered parameter to every voice
// on the channel: pitch-bend sensitivity in semitones, fine tuning in
// cents/100, coarse tuning in semitones.
func (c *Channel) updateRPN(p rpnParameter) {
	data := float64(c.rpns[p])
	switch p {
	case rpnPitchBendSensitivity:
		for _, v := range c.voices {
			if v.Channel() == c.index {
				v.UpdateSF2Controller(soundfont.CtrlPitchWheelSensitivity, data/128.0)
			}
		}
	case rpnFineTuning:
		c.fineTuning = (data - 8192) / 81.92
		for _, v := range c.voices {
			if v.Channel() == c.index {
				v.UpdateFineTuning(c.fineTuning)
			}
		}
	case rpnCoarseTuning:
		c.coarseTuning = (data - 8192) / 128.0
		for _, v := range c.voices {
			if v.Channel() == c.index {
				v.UpdateCoarseTuning(c.coarseTuning)
			}
		}
	}
}

// getVoice implements the stealing policy: an exclusive-class pre-release
// pass against every other voice on this channel sharing that class, then
// a scan of the entire shared pool (any other channel's voices can be
// stolen too) that returns an UNUSED/FINISHED voice immediately, or
// otherwise the lowest-scoring candidate (lower = easier to kill), ties
// broken by scan order.
func (c *Channel) getVoice(exclusiveClass int16, noteID uint64) *Voice {
	if exclusiveClass != 0 {
		for _, v := range c.voices {
			if v.Channel() == c.index && v.NoteID() != noteID && v.ExclusiveClass() == exclusiveClass {
				v.Release(false)
			}
		}
	}

	var best *Voice
	var bestScore int
	for _, v := range c.voices {
		switch v.Status() {
		case VoiceUnused, VoiceFinished:
			return v
		}

		score := 0
		if v.Status() == VoiceReleased && v.Channel() != percussionChannel {
			score -= 300
		}
		if v.Status() == VoiceSustained {
			score -= 200
		}
		if best != nil {
			if v.Steps() > best.Steps() {
				score -= 100
			}
			if v.Amp() < best.Amp() {
				score -= 50
			}
		}
		if best == nil || score < bestScore {
			best, bestScore = v, score
		}
	}
	if best != nil {
		best.Release(false)
	}
	return best
}
