package sfsynth

// lfo is a triangular low-frequency oscillator used for vibrato and
// modulation LFO generators. It holds at 0 for a configurable delay,
// then free-runs a triangle wave in [-1,1] with a reflecting boundary.
type lfo struct {
	delaySteps   float64
	stepsLeft    float64
	freqPerStep  float64
	value        float64
	direction    float64 // +1 or -1, the slope currently being traversed
}

func newLFO() lfo {
	return lfo{direction: 1}
}

// SetDelay sets the hold-at-zero duration from a time-cent generator
// value, restarting the delay countdown.
func (l *lfo) SetDelay(outputRate float64, interval uint, timeCents float64) {
	l.delaySteps = (outputRate / float64(interval)) * timeCentToSeconds(timeCents)
	l.stepsLeft = l.delaySteps
}

// SetFrequency sets the oscillation rate from an absolute-cent generator
// value. The LFO advances by 4*frequency*interval/outputRate per update
// so that a full period covers four quarter-triangle legs (0->1->0->-1->0)
// in 1/frequency seconds.
func (l *lfo) SetFrequency(outputRate float64, interval uint, absoluteCents float64) {
	l.freqPerStep = 4 * float64(interval) * absoluteCentToHertz(absoluteCents) / outputRate
}

func (l *lfo) Value() float64 { return l.value }

// Update advances the LFO by one calc-interval tick.
func (l *lfo) Update() {
	if l.stepsLeft > 0 {
		l.stepsLeft--
		return
	}
	l.value += l.direction * l.freqPerStep
	if l.value >= 1 {
		l.value = 1
		l.direction = -1
	} else if l.value <= -1 {
		l.value = -1
		l.direction = 1
	}
}
