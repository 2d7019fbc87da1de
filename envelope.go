package sfsynth

// envelopePhase is one of the six stages of a SoundFont volume/modulation
// envelope, in the fixed order they are traversed.
type envelopePhase int

const (
	phaseDelay envelopePhase = iota
	phaseAttack
	phaseHold
	phaseDecay
	phaseSustain
	phaseRelease
	phaseFinished
)

// envelope is a six-phase amplitude or modulation curve, parameterized in
// time-cents and evaluated one calc-interval tick at a time. DELAY holds
// at 0, ATTACK ramps linearly to 1, HOLD holds at 1, DECAY ramps toward
// the sustain level, SUSTAIN holds there, RELEASE linearly decays to 0.
type envelope struct {
	effectiveRate float64 // output_rate / calcInterval, i.e. calc-ticks per second
	params        [phaseFinished]float64
	phase         envelopePhase
	phaseSteps    uint
	value         float64
}

func newEnvelope(outputRate float64, interval uint) envelope {
	return envelope{effectiveRate: outputRate / float64(interval), value: 1}
}

func (e *envelope) Phase() envelopePhase { return e.phase }
func (e *envelope) Value() float64       { return e.value }

// SetParameter pushes a generator-derived duration (or, for SUSTAIN, a
// centibel level) into the phase it belongs to. Sustain is stored as
// 1-0.001*param, converting a centibel attenuation-from-unity into a
// linear envelope floor.
func (e *envelope) SetParameter(phase envelopePhase, param float64) {
	if phase == phaseSustain {
		e.params[phaseSustain] = 1 - 0.001*param
		return
	}
	if e.phase < phaseFinished {
		e.params[phase] = e.effectiveRate * timeCentToSeconds(param)
	}
}

// Release forces a transition to RELEASE unless the envelope is already
// at or past it (e.g. retriggering a note-off on an already-releasing
// voice is a no-op).
func (e *envelope) Release() {
	if e.phase < phaseRelease {
		e.changePhase(phaseRelease)
	}
}

func (e *envelope) changePhase(phase envelopePhase) {
	e.phase = phase
	e.phaseSteps = 0
}

// Update advances the envelope by one calc-interval tick.
func (e *envelope) Update() {
	if e.phase == phaseFinished {
		return
	}
	e.phaseSteps++

	i := e.phase
	for e.phase < phaseFinished && e.phase != phaseSustain && float64(e.phaseSteps) >= e.params[i] {
		i++
		e.changePhase(i)
	}

	sustain := e.params[phaseSustain]
	switch e.phase {
	case phaseDelay, phaseFinished:
		e.value = 0
	case phaseAttack:
		e.value = float64(e.phaseSteps) / e.params[i]
	case phaseHold:
		e.value = 1
	case phaseDecay:
		e.value = 1 - float64(e.phaseSteps)/e.params[i]
		if e.value <= sustain {
			e.value = sustain
			e.changePhase(phaseSustain)
		}
	case phaseSustain:
		e.value = sustain
	case phaseRelease:
		e.value -= 1 / e.params[i]
		if e.value <= 0 {
			e.value = 0
			e.changePhase(phaseFinished)
		}
	}
}
