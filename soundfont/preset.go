package soundfont

// Instrument is a playable sample-generator unit: a flat list of zones,
// each of which (when its key/velocity range matches) supplies a sample
// id plus the generator/modulator stack a Voice renders with.
type Instrument struct {
	Name  string
	Zones []Zone
}

func readInstruments(h *hydra) ([]Instrument, error) {
	out := make([]Instrument, 0, len(h.instruments)-1)
	for i := 0; i < len(h.instruments)-1; i++ {
		rec := h.instruments[i]
		zones, err := readZones(h.ibag, h.imod, h.igen, int(rec.InstBagNdx), int(h.instruments[i+1].InstBagNdx), GenSampleID)
		if err != nil {
			return nil, err
		}
		out = append(out, Instrument{Name: cstring(rec.Name[:]), Zones: zones})
	}
	return out, nil
}

// Preset maps a (bank, program) pair to a list of zones, each of which
// refers to an Instrument by index through its GenInstrument generator.
type Preset struct {
	Name    string
	Bank    uint16
	Program uint16
	Zones   []Zone
}

func readPresets(h *hydra) ([]Preset, error) {
	out := make([]Preset, 0, len(h.presets)-1)
	for i := 0; i < len(h.presets)-1; i++ {
		rec := h.presets[i]
		zones, err := readZones(h.pbag, h.pmod, h.pgen, int(rec.PresetBagNdx), int(h.presets[i+1].PresetBagNdx), GenInstrument)
		if err != nil {
			return nil, err
		}
		out = append(out, Preset{Name: cstring(rec.Name[:]), Bank: rec.Bank, Program: rec.Preset, Zones: zones})
	}
	return out, nil
}

// FindPreset resolves a (bank, program) request against the bank's preset
// list with the spec's fallback chain: an exact match, else the GM
// percussion preset (bank 128 program 0), else the same program in bank
// 0, else program 0 in bank 0. A bank that defines none of those returns
// nil rather than an error — an unmapped channel simply plays nothing.
func (sf *SoundFont) FindPreset(bank, program uint16) *Preset {
	find := func(b, p uint16) *Preset {
		for i := range sf.Presets {
			if sf.Presets[i].Bank == b && sf.Presets[i].Program == p {
				return &sf.Presets[i]
			}
		}
		return nil
	}
	if p := find(bank, program); p != nil {
		return p
	}
	if p := find(128, 0); p != nil {
		return p
	}
	if p := find(0, program); p != nil {
		return p
	}
	if p := find(0, 0); p != nil {
		return p
	}
	return nil
}
