package soundfont

import "math"

// controllerPalette distinguishes the two namespaces a modulator source
// index can come from: the handful of synthesizer-level controllers the
// spec calls "general" (velocity, key number, pitch wheel, ...) versus
// ordinary 7-bit MIDI continuous controllers.
type controllerPalette uint8

const (
	paletteGeneral controllerPalette = 0
	paletteMIDI    controllerPalette = 1
)

// General controller indices, valid only when palette is paletteGeneral.
const (
	ctrlNoController          = 0
	ctrlNoteOnVelocity        = 2
	ctrlNoteOnKeyNumber       = 3
	ctrlPolyPressure          = 10
	ctrlChannelPressure       = 13
	ctrlPitchWheel            = 14
	ctrlPitchWheelSensitivity = 16
)

// Exported general controller indices, for the voice/channel layer's
// calls to UpdateGeneralController.
const (
	CtrlNoteOnVelocity        uint8 = ctrlNoteOnVelocity
	CtrlNoteOnKeyNumber       uint8 = ctrlNoteOnKeyNumber
	CtrlPolyPressure          uint8 = ctrlPolyPressure
	CtrlChannelPressure       uint8 = ctrlChannelPressure
	CtrlPitchWheel            uint8 = ctrlPitchWheel
	CtrlPitchWheelSensitivity uint8 = ctrlPitchWheelSensitivity
)

type sourceDirection uint8

const (
	dirPositive sourceDirection = 0
	dirNegative sourceDirection = 1
)

type sourcePolarity uint8

const (
	polarUnipolar sourcePolarity = 0
	polarBipolar  sourcePolarity = 1
)

type sourceCurve uint8

const (
	curveLinear  sourceCurve = 0
	curveConcave sourceCurve = 1
	curveConvex  sourceCurve = 2
	curveSwitch  sourceCurve = 3
)

// transform names the post-multiply shape applied to a modulator's output.
type transform uint16

const (
	transformLinear        transform = 0
	transformAbsoluteValue transform = 2
)

// modSource is the decoded form of one 16-bit SFModulator bitfield: bits
// 0-6 the controller index, bit 7 the controller palette, bit 8 the
// direction, bit 9 the polarity, bits 10-15 the mapping curve.
type modSource struct {
	index     uint8
	palette   controllerPalette
	direction sourceDirection
	polarity  sourcePolarity
	curve     sourceCurve
}

func decodeModSource(raw uint16) modSource {
	return modSource{
		index:     uint8(raw & 0x7f),
		palette:   controllerPalette((raw >> 7) & 0x1),
		direction: sourceDirection((raw >> 8) & 0x1),
		polarity:  sourcePolarity((raw >> 9) & 0x1),
		curve:     sourceCurve((raw >> 10) & 0x3f),
	}
}

func (m modSource) isNoController() bool {
	return m.palette == paletteGeneral && m.index == ctrlNoController
}

// modEntry is one decoded pmod/imod modulator description: a 5-tuple
// of source, destination, amount, amount-source and transform, exactly as
// the spec's ModList record carries it.
type modEntry struct {
	src       modSource
	dest      Generator
	amount    int16
	amountSrc modSource
	trans     transform
}

func decodeModEntry(r modListRecord) modEntry {
	return modEntry{
		src:       decodeModSource(r.SrcOper),
		dest:      Generator(r.DestOper),
		amount:    r.Amount,
		amountSrc: decodeModSource(r.AmtSrcOper),
		trans:     transform(r.TransOper),
	}
}

// identical reports whether a and b describe the same modulator
// connection for the purposes of zone stacking: same source, same
// destination, same amount-source, same transform. The amount itself is
// deliberately excluded, since add_or_append/merge_and_add use identity to
// decide whether to sum two amounts together.
func (a modEntry) identical(b modEntry) bool {
	return a.src == b.src && a.dest == b.dest && a.amountSrc == b.amountSrc && a.trans == b.trans
}

// ModulatorSet is a zone's (or voice's) list of modulator connections,
// built up with the same four stacking operations the spec defines for
// generator sets, but keyed on modulator identity rather than array index
// since more than one modulator may legally target the same generator.
type ModulatorSet struct {
	entries []modEntry
}

// append adds param unless an identical modulator is already present
// (duplicates are simply dropped, per spec).
func (s *ModulatorSet) append(param modEntry) {
	for _, p := range s.entries {
		if p.identical(param) {
			return
		}
	}
	s.entries = append(s.entries, param)
}

// addOrAppend sums param's amount into an identical existing modulator, or
// appends it as new if none matches.
func (s *ModulatorSet) addOrAppend(param modEntry) {
	for i, p := range s.entries {
		if p.identical(param) {
			s.entries[i].amount += param.amount
			return
		}
	}
	s.entries = append(s.entries, param)
}

func (s *ModulatorSet) merge(b *ModulatorSet) {
	for _, p := range b.entries {
		s.append(p)
	}
}

func (s *ModulatorSet) mergeAndAdd(b *ModulatorSet) {
	for _, p := range b.entries {
		s.addOrAppend(p)
	}
}

// Clone returns an independent copy, so stacking a preset zone's
// modulators onto an instrument zone's at voice birth never mutates the
// bank's own parsed Zone.
func (s *ModulatorSet) Clone() ModulatorSet {
	return ModulatorSet{entries: append([]modEntry(nil), s.entries...)}
}

// Merge exports merge for the voice/channel layer.
func (s *ModulatorSet) Merge(b *ModulatorSet) { s.merge(b) }

// MergeAndAdd exports mergeAndAdd for the voice/channel layer.
func (s *ModulatorSet) MergeAndAdd(b *ModulatorSet) { s.mergeAndAdd(b) }

// DefaultModulatorSet returns a fresh copy of the ten built-in modulator
// connections every preset and instrument carries (SoundFont Technical
// Specification 2.04 §8.4), for merging into a voice's stacked modulators.
func DefaultModulatorSet() ModulatorSet {
	return ModulatorSet{entries: append([]modEntry(nil), defaultModulators()...)}
}

// BuildModulators instantiates one live, running Modulator per entry in
// this set, in order. Called once at voice birth.
func (s *ModulatorSet) BuildModulators() []*Modulator {
	out := make([]*Modulator, len(s.entries))
	for i, e := range s.entries {
		out[i] = newModulator(e)
	}
	return out
}

// defaultModulators returns the ten built-in modulator connections every
// preset and instrument carries even when the bank itself defines none,
// per SoundFont Technical Specification 2.04 §8.4.
func defaultModulators() []modEntry {
	general := func(idx uint8, dir sourceDirection, pol sourcePolarity, curve sourceCurve) modSource {
		return modSource{index: idx, palette: paletteGeneral, direction: dir, polarity: pol, curve: curve}
	}
	midi := func(cc uint8, dir sourceDirection, pol sourcePolarity, curve sourceCurve) modSource {
		return modSource{index: cc, palette: paletteMIDI, direction: dir, polarity: pol, curve: curve}
	}
	noSrc := general(ctrlNoController, dirPositive, polarUnipolar, curveLinear)

	return []modEntry{
		// 8.4.1 Note-on velocity to initial attenuation.
		{src: general(ctrlNoteOnVelocity, dirNegative, polarUnipolar, curveConcave), dest: GenInitialAttenuation, amount: 960, amountSrc: noSrc, trans: transformLinear},
		// 8.4.2 Note-on velocity to filter cutoff.
		{src: general(ctrlNoteOnVelocity, dirNegative, polarUnipolar, curveLinear), dest: GenInitialFilterFc, amount: -2400, amountSrc: noSrc, trans: transformLinear},
		// 8.4.3 Channel pressure to vibrato LFO pitch depth.
		{src: general(ctrlChannelPressure, dirPositive, polarUnipolar, curveLinear), dest: GenVibLFOToPitch, amount: 50, amountSrc: noSrc, trans: transformLinear},
		// 8.4.4 CC1 (mod wheel) to vibrato LFO pitch depth.
		{src: midi(1, dirPositive, polarUnipolar, curveLinear), dest: GenVibLFOToPitch, amount: 50, amountSrc: noSrc, trans: transformLinear},
		// 8.4.5 CC7 (volume) to initial attenuation.
		{src: midi(7, dirNegative, polarUnipolar, curveConcave), dest: GenInitialAttenuation, amount: 960, amountSrc: noSrc, trans: transformLinear},
		// 8.4.6 CC10 (pan) to pan position.
		{src: midi(10, dirPositive, polarBipolar, curveLinear), dest: GenPan, amount: 500, amountSrc: noSrc, trans: transformLinear},
		// 8.4.7 CC11 (expression) to initial attenuation.
		{src: midi(11, dirNegative, polarUnipolar, curveConcave), dest: GenInitialAttenuation, amount: 960, amountSrc: noSrc, trans: transformLinear},
		// 8.4.8 CC91 (reverb send) to reverb effects send.
		{src: midi(91, dirPositive, polarUnipolar, curveLinear), dest: GenReverbEffectsSend, amount: 200, amountSrc: noSrc, trans: transformLinear},
		// 8.4.9 CC93 (chorus send) to chorus effects send.
		{src: midi(93, dirPositive, polarUnipolar, curveLinear), dest: GenChorusEffectsSend, amount: 200, amountSrc: noSrc, trans: transformLinear},
		// 8.4.10 Pitch wheel to pitch, scaled by pitch wheel sensitivity.
		{
			src:       general(ctrlPitchWheel, dirPositive, polarBipolar, curveLinear),
			dest:      GenPitch,
			amount:    12700,
			amountSrc: general(ctrlPitchWheelSensitivity, dirPositive, polarUnipolar, curveLinear),
			trans:     transformLinear,
		},
	}
}

// concaveCurve and convexCurve are the two nonlinear response shapes the
// spec defines in terms of the attenuation/amplitude conversion, rather
// than as closed-form curves, so that the 960 centibel full-scale
// convention stays the single source of truth for "silent" vs "full".
func concaveCurve(x float64) float64 {
	switch {
	case x <= 0:
		return 0
	case x >= 1:
		return 1
	default:
		return 2 * amplitudeToAttenuation(1-x) / 960
	}
}

func convexCurve(x float64) float64 {
	switch {
	case x <= 0:
		return 0
	case x >= 1:
		return 1
	default:
		return 1 - 2*amplitudeToAttenuation(x)/960
	}
}

func amplitudeToAttenuation(amp float64) float64 {
	return -200 * math.Log10(amp)
}

// Modulator is a live, running instance of a modEntry: the static
// connection plus the two normalized controller values (source and
// amount-source) that get updated as MIDI/RPN controllers change, and the
// resulting signed contribution to its destination generator.
type Modulator struct {
	entry        modEntry
	source       float64
	amountSource float64
	value        float64
}

// newModulator constructs a running Modulator with amount_source at its
// SF2-mandated initial value of 1 (full scale) until some controller
// updates it.
func newModulator(e modEntry) *Modulator {
	return &Modulator{entry: e, amountSource: 1}
}

func (m *Modulator) Destination() Generator { return m.entry.dest }
func (m *Modulator) Value() float64         { return m.value }

// CanBeNegative reports whether this modulator's contribution can ever
// swing negative. It is used once, at voice birth, to precompute the
// worst-case (most attenuating) bound on initial attenuation so a voice
// can be discarded early if even its quietest possible rendering would
// fall outside the audible dynamic range.
func (m *Modulator) CanBeNegative() bool {
	e := m.entry
	if e.trans == transformAbsoluteValue || e.amount == 0 {
		return false
	}
	if e.amount > 0 {
		noSrc := e.src.isNoController()
		uniSrc := e.src.polarity == polarUnipolar
		noAmt := e.amountSrc.isNoController()
		uniAmt := e.amountSrc.polarity == polarUnipolar
		if (uniSrc && uniAmt) || (uniSrc && noAmt) || (noSrc && uniAmt) || (noSrc && noAmt) {
			return false
		}
	}
	return true
}

// UpdateGeneralController feeds a general-controller value (velocity, key
// number, channel pressure, pitch wheel, ...) through this modulator,
// returning whether either of its two inputs matched (in which case the
// output value has been recalculated).
func (m *Modulator) UpdateGeneralController(controller uint8, value float64) bool {
	updated := false
	if m.entry.src.palette == paletteGeneral && m.entry.src.index == controller {
		m.source = mapSource(value, m.entry.src)
		updated = true
	}
	if m.entry.amountSrc.palette == paletteGeneral && m.entry.amountSrc.index == controller {
		m.amountSource = mapSource(value, m.entry.amountSrc)
		updated = true
	}
	if updated {
		m.recalculate()
	}
	return updated
}

// UpdateMIDIController feeds a 7-bit MIDI CC value through this modulator.
func (m *Modulator) UpdateMIDIController(cc uint8, value uint8) bool {
	updated := false
	if m.entry.src.palette == paletteMIDI && m.entry.src.index == cc {
		m.source = mapSource(float64(value), m.entry.src)
		updated = true
	}
	if m.entry.amountSrc.palette == paletteMIDI && m.entry.amountSrc.index == cc {
		m.amountSource = mapSource(float64(value), m.entry.amountSrc)
		updated = true
	}
	if updated {
		m.recalculate()
	}
	return updated
}

func (m *Modulator) recalculate() {
	v := float64(m.entry.amount) * m.source * m.amountSource
	if m.entry.trans == transformAbsoluteValue {
		v = math.Abs(v)
	}
	m.value = v
}

// mapSource normalizes a raw controller value (0-127, or 0-16383 for the
// 14-bit pitch wheel) into the source's declared range and applies its
// curve. Unipolar sources land in [0,1]; bipolar ones in [-1,1].
func mapSource(raw float64, src modSource) float64 {
	var x float64
	if src.palette == paletteGeneral && src.index == ctrlPitchWheel {
		x = raw / (1 << 14)
	} else {
		x = raw / (1 << 7)
	}

	if src.curve == curveSwitch {
		off := 0.0
		if src.polarity == polarBipolar {
			off = -1
		}
		v := x
		if src.direction == dirNegative {
			v = 1 - x
		}
		if v >= 0.5 {
			return 1
		}
		return off
	}

	if src.polarity == polarUnipolar {
		v := x
		if src.direction == dirNegative {
			v = 1 - x
		}
		switch src.curve {
		case curveConcave:
			return concaveCurve(v)
		case curveConvex:
			return convexCurve(v)
		default:
			return v
		}
	}

	dir := 1.0
	if src.direction == dirNegative {
		dir = -1
	}
	v := 2*x - 1
	sign := 1.0
	if x <= 0.5 {
		sign = -1
	}
	switch src.curve {
	case curveConcave:
		return sign * dir * concaveCurve(sign*v)
	case curveConvex:
		return sign * dir * convexCurve(sign*v)
	default:
		return dir * v
	}
}
