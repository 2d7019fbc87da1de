package sfsynth

import (
	"math"

	"github.com/gosoundfont/sfsynth/soundfont"
)

// VoiceState is where a Voice sits in its life cycle: PLAYING until a
// note-off or exclusive-class steal arrives, then SUSTAINED (held by the
// sustain pedal) or RELEASED (decaying), then FINISHED once its envelope
// or loop mode says it has nothing left to render, and UNUSED once the
// voice pool may hand it out again.
type VoiceState int

const (
	VoicePlaying VoiceState = iota
	VoiceSustained
	VoiceReleased
	VoiceFinished
	VoiceUnused
)

// sampleMode mirrors the two low bits of the SAMPLE_MODES generator.
type sampleMode uint8

const (
	sampleUnlooped           sampleMode = 0
	sampleLooped             sampleMode = 1
	sampleUnused             sampleMode = 2
	sampleLoopedUntilRelease sampleMode = 3
)

// runtimeSample is a voice's private, generator-offset-adjusted view of
// its sample: the shared sample pool's start/end/loop points, shifted by
// whatever *_OFFSET and *_COARSE_OFFSET generators this voice's zones
// carry, then clamped back into the pool's bounds.
type runtimeSample struct {
	mode                         sampleMode
	pitch                        float64
	start, end, startLoop, endLoop uint32
}

// Voice renders one sounding note: a position into a shared sample pool,
// an amplitude/pitch envelope pair, two LFOs, and the live modulator list
// that was stacked for it at note-on. A fixed pool of these is shared by
// every channel; Channel.getVoice decides who gets recycled.
type Voice struct {
	channel    int
	noteID     uint64
	actualKey  uint8
	percussion bool

	pool []int16 // shared sample-point pool this voice renders out of

	outputRate float64

	generators soundfont.GeneratorSet
	modulators []*soundfont.Modulator

	rtSample   runtimeSample
	keyScaling int

	minAtten float64
	modulated [62]float64

	fineTuning, coarseTuning float64
	deltaIndexRatio          float64

	steps  uint
	status VoiceState

	voicePitch float64
	index, deltaIndex fixedPoint

	volLeft, volRight float64
	amp, deltaAmp     float64

	volEnv, modEnv envelope
	vibLFO, modLFO lfo
}

func (v *Voice) Channel() int           { return v.channel }
func (v *Voice) NoteID() uint64         { return v.noteID }
func (v *Voice) Amp() float64           { return v.amp }
func (v *Voice) Steps() uint            { return v.steps }
func (v *Voice) ActualKey() uint8       { return v.actualKey }
func (v *Voice) Status() VoiceState     { return v.status }
func (v *Voice) SetStatus(s VoiceState) { v.status = s }

// ExclusiveClass reads the EXCLUSIVE_CLASS generator directly rather than
// through the modulated cache: exclusive class never has a modulator and
// is read before init() populates modulated[], at get_voice time.
func (v *Voice) ExclusiveClass() int16 {
	return v.generators.GetOrDefault(soundfont.GenExclusiveClass)
}

// Render returns this voice's next stereo output sample (already scaled
// by pan and amplitude), linearly interpolating between the two pool
// points the fractional play-head position straddles.
func (v *Voice) Render() (left, right float64) {
	i := v.index.integerPart()
	next := i + 1
	if int(next) >= len(v.pool) {
		next = i
	}
	r := float64(v.index.fractionalPart())
	interpolated := (1-r)*float64(v.pool[i]) + r*float64(v.pool[next])
	sample := v.amp * (interpolated / 32768.0)
	return sample * v.volLeft, sample * v.volRight
}

var initGenerators = [...]soundfont.Generator{
	soundfont.GenPan, soundfont.GenDelayModLFO, soundfont.GenFreqModLFO,
	soundfont.GenDelayVibLFO, soundfont.GenFreqVibLFO, soundfont.GenDelayModEnv,
	soundfont.GenAttackModEnv, soundfont.GenHoldModEnv, soundfont.GenDecayModEnv,
	soundfont.GenSustainModEnv, soundfont.GenReleaseModEnv, soundfont.GenDelayVolEnv,
	soundfont.GenAttackVolEnv, soundfont.GenHoldVolEnv, soundfont.GenDecayVolEnv,
	soundfont.GenSustainVolEnv, soundfont.GenReleaseVolEnv, soundfont.GenCoarseTune,
}

// Init (re)binds a voice to a freshly triggered note: the channel/note
// bookkeeping, the generator-offset sample window, the modulator list
// stacked for this zone pair, and the attenuation floor used later to
// kill the voice outright once it can no longer be heard.
func (v *Voice) Init(channel int, noteID uint64, outputRate float64, sample *soundfont.Sample, generators soundfont.GeneratorSet, modParams soundfont.ModulatorSet, key, velocity uint8, percussion bool) {
	v.channel = channel
	v.noteID = noteID
	v.actualKey = key
	v.outputRate = outputRate
	v.pool = sample.Pool()
	v.generators = generators
	v.percussion = percussion
	v.fineTuning = 0
	v.coarseTuning = 0
	v.steps = 0
	v.status = VoicePlaying
	v.index = fixedFromInt(sample.Start)
	v.deltaIndex = fixedPoint{}
	v.volLeft, v.volRight = 1, 1
	v.amp = 0
	v.deltaAmp = 0
	v.volEnv = newEnvelope(outputRate, calcInterval)
	v.modEnv = newEnvelope(outputRate, calcInterval)
	v.vibLFO = newLFO()
	v.modLFO = newLFO()

	v.rtSample.mode = sampleMode(0b11 & generators.GetOrDefault(soundfont.GenSampleModes))
	overriddenSampleKey := generators.GetOrDefault(soundfont.GenOverridingRootKey)
	samplePitch := float64(sample.OriginalKey)
	if overriddenSampleKey > 0 {
		samplePitch = float64(overriddenSampleKey)
	}
	v.rtSample.pitch = samplePitch - 0.01*float64(sample.Correction)

	v.rtSample.start = sample.Start + coarseUnit*uint32(generators.GetOrDefault(soundfont.GenStartAddressCoarseOffset)) + uint32(generators.GetOrDefault(soundfont.GenStartAddressOffset))
	v.rtSample.end = sample.End + coarseUnit*uint32(generators.GetOrDefault(soundfont.GenEndAddressCoarseOffset)) + uint32(generators.GetOrDefault(soundfont.GenEndAddressOffset))
	v.rtSample.startLoop = sample.StartLoop + coarseUnit*uint32(generators.GetOrDefault(soundfont.GenStartLoopAddressCoarseOffset)) + uint32(generators.GetOrDefault(soundfont.GenStartLoopAddressOffset))
	v.rtSample.endLoop = sample.EndLoop + coarseUnit*uint32(generators.GetOrDefault(soundfont.GenEndLoopAddressCoarseOffset)) + uint32(generators.GetOrDefault(soundfont.GenEndLoopAddressOffset))

	bufSize := uint32(len(v.pool))
	v.rtSample.start = minU32(bufSize-1, v.rtSample.start)
	v.rtSample.end = maxU32(v.rtSample.start+1, minU32(bufSize, v.rtSample.end))
	v.rtSample.startLoop = maxU32(v.rtSample.start, minU32(v.rtSample.end-1, v.rtSample.startLoop))
	v.rtSample.endLoop = maxU32(v.rtSample.startLoop+1, minU32(v.rtSample.end, v.rtSample.endLoop))

	v.deltaIndexRatio = 1.0 / keyToHertz(v.rtSample.pitch) * float64(sample.SampleRate) / outputRate

	v.modulators = modParams.BuildModulators()

	genVelocity := generators.GetOrDefault(soundfont.GenVelocity)
	vel := float64(velocity)
	if genVelocity > 0 {
		vel = float64(genVelocity)
	}
	v.UpdateSF2Controller(soundfont.CtrlNoteOnVelocity, vel)

	genKey := generators.GetOrDefault(soundfont.GenKeyNumber)
	overriddenKey := int16(key)
	if genKey > 0 {
		overriddenKey = genKey
	}
	v.keyScaling = 60 - int(overriddenKey)
	v.UpdateSF2Controller(soundfont.CtrlNoteOnKeyNumber, float64(overriddenKey))

	minModulatedAtten := attenFactor * float64(generators.GetOrDefault(soundfont.GenInitialAttenuation))
	for _, mod := range v.modulators {
		if mod.Destination() == soundfont.GenInitialAttenuation && mod.CanBeNegative() {
			a := mod.Value()
			if a < 0 {
				a = -a
			}
			minModulatedAtten -= a
		}
	}
	if minModulatedAtten < 0 {
		minModulatedAtten = 0
	}
	v.minAtten = sample.MinAtten + minModulatedAtten

	for i := 0; i < 62; i++ {
		v.modulated[i] = float64(generators.GetOrDefault(soundfont.Generator(i)))
	}
	for _, g := range initGenerators {
		v.updateModulatedParams(g)
	}
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// UpdateSF2Controller feeds a general-controller value (velocity, key
// number, channel pressure, pitch wheel, pitch wheel sensitivity) to
// every modulator bound to it, recomputing any generator whose value
// changed as a result.
func (v *Voice) UpdateSF2Controller(controller uint8, value float64) {
	for _, mod := range v.modulators {
		if mod.UpdateGeneralController(controller, value) {
			v.updateModulatedParams(mod.Destination())
		}
	}
}

// UpdateMIDIController feeds a 7-bit MIDI CC value to every modulator
// bound to it.
func (v *Voice) UpdateMIDIController(controller uint8, value uint8) {
	for _, mod := range v.modulators {
		if mod.UpdateMIDIController(controller, value) {
			v.updateModulatedParams(mod.Destination())
		}
	}
}

func (v *Voice) UpdateFineTuning(fineTuning float64) {
	v.fineTuning = fineTuning
	v.updateModulatedParams(soundfont.GenFineTune)
}

func (v *Voice) UpdateCoarseTuning(coarseTuning float64) {
	v.coarseTuning = coarseTuning
	v.updateModulatedParams(soundfont.GenCoarseTune)
}

// Release moves a playing voice to SUSTAINED (held by the pedal) or
// RELEASED (starts its envelope release segment); any other state is
// left untouched, so a second note-off or a pedal-up on an already
// releasing voice is a no-op.
func (v *Voice) Release(sustained bool) {
	if v.status != VoicePlaying && v.status != VoiceSustained {
		return
	}
	if sustained {
		v.status = VoiceSustained
		return
	}
	v.status = VoiceReleased
	v.volEnv.Release()
	v.modEnv.Release()
}

// Update advances this voice by one output frame: the calc-interval slow
// path (envelope/LFO updates, dynamic-range kill check, pitch/amplitude
// target recompute) runs once every calcInterval frames; every frame
// advances the play-head and handles loop-mode wraparound.
func (v *Voice) Update() {
	calc := v.steps%calcInterval == 0
	v.steps++

	if calc {
		if v.volEnv.Phase() == phaseFinished ||
			(v.volEnv.Phase() > phaseAttack && v.minAtten+960*(1-v.volEnv.Value()) >= dynamicRange) {
			v.status = VoiceFinished
			return
		}
		v.volEnv.Update()
	}

	v.index = v.index.add(v.deltaIndex)

	switch v.rtSample.mode {
	case sampleLooped:
		if v.index.integerPart() >= v.rtSample.endLoop {
			v.index = v.index.sub(fixedFromInt(v.rtSample.endLoop - v.rtSample.startLoop))
		}
	case sampleLoopedUntilRelease:
		if v.status == VoiceReleased {
			if v.index.integerPart() >= v.rtSample.end {
				v.status = VoiceFinished
				return
			}
		} else if v.index.integerPart() >= v.rtSample.endLoop {
			v.index = v.index.sub(fixedFromInt(v.rtSample.endLoop - v.rtSample.startLoop))
		}
	default: // sampleUnlooped, sampleUnused
		if v.index.integerPart() >= v.rtSample.end {
			v.status = VoiceFinished
			return
		}
	}

	v.amp += v.deltaAmp

	if calc {
		v.modEnv.Update()
		v.vibLFO.Update()
		v.modLFO.Update()

		modEnvValue := v.modEnv.Value()
		if v.modEnv.Phase() == phaseAttack {
			modEnvValue = convexCurve(modEnvValue)
		}
		pitch := v.voicePitch + 0.01*(v.modulated[soundfont.GenModEnvToPitch]*modEnvValue+
			v.modulated[soundfont.GenVibLFOToPitch]*v.vibLFO.Value()+
			v.modulated[soundfont.GenModLFOToPitch]*v.modLFO.Value())
		v.deltaIndex = fixedFromFloat32(float32(v.deltaIndexRatio * keyToHertz(pitch)))

		attenModLFO := v.modulated[soundfont.GenModLFOToVolume] * v.modLFO.Value()
		var targetAmp float64
		if v.volEnv.Phase() == phaseAttack {
			targetAmp = v.volEnv.Value() * attenuationToAmplitude(attenModLFO)
		} else {
			targetAmp = attenuationToAmplitude(960*(1-v.volEnv.Value()) + attenModLFO)
		}
		v.deltaAmp = (targetAmp - v.amp) / calcInterval
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
	if amp <= 0 {
		return 960
	}
	return -200 * math.Log10(amp)
}

// updateModulatedParams recomputes one slot of the generator cache from
// its base value plus every modulator targeting it, then pushes the
// destination-specific side effect (pan/attenuation recompute, an LFO's
// delay/frequency, an envelope phase's duration, or the voice's overall
// pitch) that depends on it.
func (v *Voice) updateModulatedParams(destination soundfont.Generator) {
	newValue := float64(v.generators.GetOrDefault(destination))
	if destination == soundfont.GenInitialAttenuation {
		newValue *= attenFactor
	}
	for _, mod := range v.modulators {
		if mod.Destination() == destination {
			newValue += mod.Value()
		}
	}
	v.modulated[destination] = newValue

	switch destination {
	case soundfont.GenPan, soundfont.GenInitialAttenuation:
		amp := attenuationToAmplitude(v.modulated[soundfont.GenInitialAttenuation])
		left, right := stereoPan(v.modulated[soundfont.GenPan])
		v.volLeft, v.volRight = amp*left, amp*right
	case soundfont.GenDelayModLFO:
		v.modLFO.SetDelay(v.outputRate, calcInterval, newValue)
	case soundfont.GenFreqModLFO:
		v.modLFO.SetFrequency(v.outputRate, calcInterval, newValue)
	case soundfont.GenDelayVibLFO:
		v.vibLFO.SetDelay(v.outputRate, calcInterval, newValue)
	case soundfont.GenFreqVibLFO:
		v.vibLFO.SetFrequency(v.outputRate, calcInterval, newValue)
	case soundfont.GenDelayModEnv:
		v.modEnv.SetParameter(phaseDelay, newValue)
	case soundfont.GenAttackModEnv:
		v.modEnv.SetParameter(phaseAttack, newValue)
	case soundfont.GenHoldModEnv, soundfont.GenKeyNumToModEnvHold:
		v.modEnv.SetParameter(phaseHold, v.modulated[soundfont.GenHoldModEnv]+v.modulated[soundfont.GenKeyNumToModEnvHold]*float64(v.keyScaling))
	case soundfont.GenDecayModEnv, soundfont.GenKeyNumToModEnvDecay:
		v.modEnv.SetParameter(phaseDecay, v.modulated[soundfont.GenDecayModEnv]+v.modulated[soundfont.GenKeyNumToModEnvDecay]*float64(v.keyScaling))
	case soundfont.GenSustainModEnv:
		v.modEnv.SetParameter(phaseSustain, newValue)
	case soundfont.GenReleaseModEnv:
		v.modEnv.SetParameter(phaseRelease, newValue)
	case soundfont.GenDelayVolEnv:
		v.volEnv.SetParameter(phaseDelay, newValue)
	case soundfont.GenAttackVolEnv:
		v.volEnv.SetParameter(phaseAttack, newValue)
	case soundfont.GenHoldVolEnv, soundfont.GenKeyNumToVolEnvHold:
		v.volEnv.SetParameter(phaseHold, v.modulated[soundfont.GenHoldVolEnv]+v.modulated[soundfont.GenKeyNumToVolEnvHold]*float64(v.keyScaling))
	case soundfont.GenDecayVolEnv, soundfont.GenKeyNumToVolEnvDecay:
		v.volEnv.SetParameter(phaseDecay, v.modulated[soundfont.GenDecayVolEnv]+v.modulated[soundfont.GenKeyNumToVolEnvDecay]*float64(v.keyScaling))
	case soundfont.GenSustainVolEnv:
		v.volEnv.SetParameter(phaseSustain, newValue)
	case soundfont.GenReleaseVolEnv:
		v.volEnv.SetParameter(phaseRelease, newValue)
	case soundfont.GenCoarseTune, soundfont.GenFineTune, soundfont.GenScaleTuning, soundfont.GenPitch:
		v.voicePitch = v.rtSample.pitch + 0.01*v.modulated[soundfont.GenPitch] +
			0.01*float64(v.generators.GetOrDefault(soundfont.GenScaleTuning))*(float64(v.actualKey)-v.rtSample.pitch) +
			v.coarseTuning + v.modulated[soundfont.GenCoarseTune] +
			0.01*(v.fineTuning+v.modulated[soundfont.GenFineTune])
	}
}
