package soundfont

import (
	"math"
	"testing"
)

func TestDefaultModulatorsCount(t *testing.T) {
	mods := defaultModulators()
	if len(mods) != 10 {
		t.Fatalf("expected 10 default modulators, got %d", len(mods))
	}
	if mods[0].dest != GenInitialAttenuation || mods[0].amount != 960 {
		t.Errorf("velocity-to-attenuation modulator wrong: %+v", mods[0])
	}
	if mods[9].dest != GenPitch || mods[9].amount != 12700 {
		t.Errorf("pitch wheel modulator wrong: %+v", mods[9])
	}
}

func TestModulatorSetAppendDedupesIdentical(t *testing.T) {
	var set ModulatorSet
	e := defaultModulators()[0]
	set.append(e)
	set.append(e)
	if len(set.entries) != 1 {
		t.Fatalf("append should dedupe identical entries, got %d", len(set.entries))
	}
}

func TestModulatorSetAddOrAppendSumsAmount(t *testing.T) {
	var set ModulatorSet
	e := defaultModulators()[0]
	set.addOrAppend(e)
	e2 := e
	e2.amount = 40
	set.addOrAppend(e2)

	if len(set.entries) != 1 {
		t.Fatalf("addOrAppend should merge identical entries, got %d", len(set.entries))
	}
	if set.entries[0].amount != 1000 {
		t.Errorf("addOrAppend amount = %d, want 1000", set.entries[0].amount)
	}
}

func TestModulatorVelocityToAttenuation(t *testing.T) {
	e := defaultModulators()[0]
	m := newModulator(e)
	m.UpdateGeneralController(ctrlNoteOnVelocity, 127)

	if m.Value() >= 1 {
		t.Errorf("full velocity should drive attenuation near zero, got %f", m.Value())
	}

	m2 := newModulator(e)
	m2.UpdateGeneralController(ctrlNoteOnVelocity, 1)
	if m2.Value() <= m.Value() {
		t.Errorf("quieter velocity should produce more attenuation: loud=%f quiet=%f", m.Value(), m2.Value())
	}
}

func TestModulatorCanBeNegative(t *testing.T) {
	// The velocity->attenuation default modulator is unipolar source with
	// no amount-source: per spec this combination can never go negative.
	m := newModulator(defaultModulators()[0])
	if m.CanBeNegative() {
		t.Errorf("unipolar source with no amount-source should not be able to go negative")
	}

	// An absolute-value transform can never be negative either.
	abs := defaultModulators()[0]
	abs.trans = transformAbsoluteValue
	abs.amount = -500
	m2 := newModulator(abs)
	if m2.CanBeNegative() {
		t.Errorf("absolute-value transform should never be able to go negative")
	}
}

func TestConcaveConvexCurveBounds(t *testing.T) {
	if concaveCurve(-1) != 0 || concaveCurve(2) != 1 {
		t.Errorf("concaveCurve should clamp to [0,1] outside its domain")
	}
	if convexCurve(-1) != 0 || convexCurve(2) != 1 {
		t.Errorf("convexCurve should clamp to [0,1] outside its domain")
	}
	if math.Abs(concaveCurve(0.5)-convexCurve(0.5)) < 1e-6 {
		t.Errorf("concave and convex curves should diverge away from the endpoints")
	}
}
