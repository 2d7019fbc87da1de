package soundfont

// Generator identifies one of the SoundFont 2 generator destinations. The
// numeric values are fixed by the specification (they are the wire values
// stored in pgen/igen records) and double as the index into a GeneratorSet.
type Generator uint16

const (
	GenStartAddressOffset          Generator = 0
	GenEndAddressOffset            Generator = 1
	GenStartLoopAddressOffset      Generator = 2
	GenEndLoopAddressOffset        Generator = 3
	GenStartAddressCoarseOffset    Generator = 4
	GenModLFOToPitch               Generator = 5
	GenVibLFOToPitch               Generator = 6
	GenModEnvToPitch               Generator = 7
	GenInitialFilterFc             Generator = 8
	GenInitialFilterQ              Generator = 9
	GenModLFOToFilterFc            Generator = 10
	GenModEnvToFilterFc            Generator = 11
	GenEndAddressCoarseOffset      Generator = 12
	GenModLFOToVolume              Generator = 13
	GenChorusEffectsSend           Generator = 15
	GenReverbEffectsSend           Generator = 16
	GenPan                         Generator = 17
	GenDelayModLFO                 Generator = 21
	GenFreqModLFO                  Generator = 22
	GenDelayVibLFO                 Generator = 23
	GenFreqVibLFO                  Generator = 24
	GenDelayModEnv                 Generator = 25
	GenAttackModEnv                Generator = 26
	GenHoldModEnv                  Generator = 27
	GenDecayModEnv                 Generator = 28
	GenSustainModEnv               Generator = 29
	GenReleaseModEnv                Generator = 30
	GenKeyNumToModEnvHold           Generator = 31
	GenKeyNumToModEnvDecay          Generator = 32
	GenDelayVolEnv                  Generator = 33
	GenAttackVolEnv                 Generator = 34
	GenHoldVolEnv                   Generator = 35
	GenDecayVolEnv                  Generator = 36
	GenSustainVolEnv                Generator = 37
	GenReleaseVolEnv                Generator = 38
	GenKeyNumToVolEnvHold           Generator = 39
	GenKeyNumToVolEnvDecay          Generator = 40
	GenInstrument                   Generator = 41
	GenKeyRange                     Generator = 43
	GenVelocityRange                Generator = 44
	GenStartLoopAddressCoarseOffset Generator = 45
	GenKeyNumber                    Generator = 46
	GenVelocity                     Generator = 47
	GenInitialAttenuation           Generator = 48
	GenEndLoopAddressCoarseOffset   Generator = 50
	GenCoarseTune                   Generator = 51
	GenFineTune                     Generator = 52
	GenSampleID                     Generator = 53
	GenSampleModes                  Generator = 54
	GenScaleTuning                  Generator = 56
	GenExclusiveClass               Generator = 57
	GenOverridingRootKey            Generator = 58
	GenEndOperator                  Generator = 60

	// GenPitch is not part of the SF2 wire format; it is the synth's own
	// extra generator slot used as the destination of the built-in
	// pitch-bend modulator (see defaultModulators).
	GenPitch Generator = 61

	numGenerators = 62
)

// defaultGeneratorValues holds the value every generator carries before
// any zone sets it explicitly (SoundFont Technical Spec 2.04 §8.1.3).
// Indexed by Generator.
var defaultGeneratorValues = [numGenerators]int16{
	0, 0, 0, 0, 0, 0, 0, 0, 13500, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, -12000, 0, -12000, 0, -12000, -12000, -12000, -12000, 0, -12000, 0,
	0, -12000, -12000, -12000, -12000, 0, -12000, 0, 0, 0, 0, 0, 0, 0, -1, -1,
	0, 0, 0, 0, 0, 0, 0, 0, 100, 0, -1, 0, 0, 0,
}

// GeneratorSet is the full fixed-size generator state for one zone (or one
// running voice after zone stacking). Every slot starts at its spec
// default and carries a used flag distinguishing "explicitly set to X"
// from "still at the default", which matters for merge: a global zone's
// value must fill in only the generators a local zone never touched.
type GeneratorSet struct {
	used   [numGenerators]bool
	amount [numGenerators]int16
}

func newGeneratorSet() GeneratorSet {
	gs := GeneratorSet{}
	copy(gs.amount[:], defaultGeneratorValues[:])
	return gs
}

func (g *GeneratorSet) getOrDefault(gen Generator) int16 {
	return g.amount[gen]
}

func (g *GeneratorSet) set(gen Generator, amount int16) {
	g.used[gen] = true
	g.amount[gen] = amount
}

// merge fills in every generator g has not explicitly set from b's value,
// used to apply a global zone's generators under a local zone's.
func (g *GeneratorSet) merge(b *GeneratorSet) {
	for i := 0; i < numGenerators; i++ {
		if !g.used[i] && b.used[i] {
			g.used[i] = true
			g.amount[i] = b.amount[i]
		}
	}
}

// add sums every generator b has explicitly set into g, used to stack a
// preset zone's generators on top of an instrument zone's at voice birth.
func (g *GeneratorSet) add(b *GeneratorSet) {
	for i := 0; i < numGenerators; i++ {
		if b.used[i] {
			g.amount[i] += b.amount[i]
			g.used[i] = true
		}
	}
}

// GetOrDefault exports getOrDefault for callers outside this package (the
// voice/channel layer reading a fully-stacked zone's generators).
func (g *GeneratorSet) GetOrDefault(gen Generator) int16 { return g.getOrDefault(gen) }

// Add exports add for the voice layer's preset-over-instrument stacking.
func (g *GeneratorSet) Add(b *GeneratorSet) { g.add(b) }
