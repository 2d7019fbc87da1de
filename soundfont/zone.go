package soundfont

// keyRange is an inclusive 0-127 bound; the spec's default, when a zone
// carries no KEY_RANGE/VELOCITY_RANGE generator, is the full range.
type keyRange struct {
	lo, hi uint8
}

func fullRange() keyRange { return keyRange{0, 127} }

func (r keyRange) contains(v uint8) bool { return r.lo <= v && v <= r.hi }

// Lo and Hi export a zone's key/velocity range bounds for callers outside
// this package (static bank inspection).
func (r keyRange) Lo() uint8 { return r.lo }
func (r keyRange) Hi() uint8 { return r.hi }

// Zone is one generator/modulator zone belonging to a preset or
// instrument: a key/velocity range it applies to, plus the generator and
// modulator stacks read from its pbag/ibag span. A zone missing a
// KEY_RANGE or VELOCITY_RANGE generator matches every key/velocity.
type Zone struct {
	KeyRange, VelRange keyRange
	Generators         GeneratorSet
	Modulators         ModulatorSet
}

func newZone() Zone {
	return Zone{KeyRange: fullRange(), VelRange: fullRange(), Generators: newGeneratorSet()}
}

func (z *Zone) inRange(key, velocity uint8) bool {
	return z.KeyRange.contains(key) && z.VelRange.contains(velocity)
}

// InRange exports inRange for the channel layer's note-on zone matching.
func (z *Zone) InRange(key, velocity uint8) bool { return z.inRange(key, velocity) }

// readZones decodes the zones spanned by [bagBegin,bagEnd) out of the bag,
// modulator and generator arrays, applying the spec's global-zone rule: a
// bag's generator list is a real (playable) zone only if it ends in the
// terminal generator for this level (SAMPLE_ID for instrument zones,
// INSTRUMENT for preset zones); otherwise, if it is the first bag in the
// span and carries any generators or modulators at all, it is the global
// zone and its contents are merged into every real zone that follows
// instead of being played directly.
func readZones(bags []bagRecord, mods []modListRecord, gens []genListRecord, bagBegin, bagEnd int, terminal Generator) ([]Zone, error) {
	if bagBegin > bagEnd || bagEnd >= len(bags) {
		return nil, ErrMalformed
	}

	var zones []Zone
	var global Zone
	hasGlobal := false

	for i := bagBegin; i < bagEnd; i++ {
		bag := bags[i]
		next := bags[i+1]

		zone := newZone()

		if bag.ModNdx > next.ModNdx || int(next.ModNdx) > len(mods) {
			return nil, ErrMalformed
		}
		for _, m := range mods[bag.ModNdx:next.ModNdx] {
			zone.Modulators.append(decodeModEntry(m))
		}

		if bag.GenNdx > next.GenNdx || int(next.GenNdx) > len(gens) {
			return nil, ErrMalformed
		}
		genSpan := gens[bag.GenNdx:next.GenNdx]
		for _, g := range genSpan {
			switch Generator(g.Oper) {
			case GenKeyRange:
				lo, hi := g.Amount.asRange()
				zone.KeyRange = keyRange{lo, hi}
			case GenVelocityRange:
				lo, hi := g.Amount.asRange()
				zone.VelRange = keyRange{lo, hi}
			default:
				if Generator(g.Oper) < GenEndOperator {
					zone.Generators.set(Generator(g.Oper), g.Amount.asInt16())
				}
			}
		}

		isReal := len(genSpan) > 0 && Generator(genSpan[len(genSpan)-1].Oper) == terminal
		switch {
		case isReal:
			zones = append(zones, zone)
		case i == bagBegin && (len(genSpan) > 0 || bag.ModNdx != next.ModNdx):
			global = zone
			hasGlobal = true
		}
	}

	if hasGlobal {
		for i := range zones {
			zones[i].Generators.merge(&global.Generators)
			zones[i].Modulators.merge(&global.Modulators)
		}
	}
	return zones, nil
}
