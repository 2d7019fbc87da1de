package sequencer

import "sort"

// row is one tick position's worth of events across every track, plus its
// timing relative to the previous row. Rows are the unit the playback
// driver advances by: a sample-accurate renderer only ever needs "how long
// until the next row" and "what happens at the next row".
type row struct {
	tick          uint64
	tickDelay     uint64
	seconds       float64
	secondDelay   float64
	events        []Event
}

// timeline is a fully tempo-integrated, merged view of every track in a
// score: one sorted slice of rows, plus whatever loop points were found in
// track text/marker events.
type timeline struct {
	rows          []row
	ticksPerBeat  uint16
	loopStartTick int64 // -1 if absent
	loopEndTick   int64 // -1 if absent
	loopStartRow  int   // row index of loopStartTick, valid iff loopStartTick != -1
	loopEndRow    int   // row index of loopEndTick, valid iff loopEndTick != -1
}

const defaultMicrosecondsPerBeat = 500000 // 120 BPM, MIDI's implicit default

// buildTimeline merges every track's events into tick-ordered rows, then
// walks them once integrating tempo to assign each row a time in seconds.
// tempoScale lets GMF's "doubled tempo" convention (spec §6) apply without
// a special case anywhere else: GMF passes 2, everything else passes 1.
func buildTimeline(hdr smfHeader, tracks [][]Event, tempoScale float64) *timeline {
	tl := &timeline{ticksPerBeat: hdr.TicksPerBeat, loopStartTick: -1, loopEndTick: -1}

	byTick := make(map[uint64][]Event)
	for _, track := range tracks {
		for _, ev := range track {
			byTick[ev.Tick] = append(byTick[ev.Tick], ev)
		}
	}

	ticks := make([]uint64, 0, len(byTick))
	for t := range byTick {
		ticks = append(ticks, t)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })

	rows := make([]row, 0, len(ticks))
	var prevTick uint64
	for idx, t := range ticks {
		evs := byTick[t]
		sort.SliceStable(evs, func(i, j int) bool { return evs[i].Kind.category() < evs[j].Kind.category() })
		fixZeroLengthNotes(evs)

		var delay uint64
		if idx > 0 {
			delay = t - prevTick
		}
		rows = append(rows, row{tick: t, tickDelay: delay, events: evs})
		prevTick = t
	}
	tl.rows = rows

	tl.integrateTempo(tempoScale)
	tl.findLoopPoints()
	return tl
}

// fixZeroLengthNotes delays a note-off that shares a row with a note-on of
// the same key and channel by pushing it to the very end of the row's
// event slice, so the new note is never cut by its own zero-length
// predecessor. This only reorders within the row; tick position is
// unchanged.
func fixZeroLengthNotes(evs []Event) {
	hasNoteOn := make(map[[2]uint8]bool)
	for _, ev := range evs {
		if ev.Kind == EventNoteOn {
			hasNoteOn[[2]uint8{ev.Channel, ev.Data1}] = true
		}
	}
	sort.SliceStable(evs, func(i, j int) bool {
		iBad := evs[i].Kind == EventNoteOff && hasNoteOn[[2]uint8{evs[i].Channel, evs[i].Data1}]
		jBad := evs[j].Kind == EventNoteOff && hasNoteOn[[2]uint8{evs[j].Channel, evs[j].Data1}]
		if iBad != jBad {
			return jBad
		}
		return evs[i].Kind.category() < evs[j].Kind.category()
	})
}

// integrateTempo walks the merged rows in tick order accumulating a
// running microseconds-per-beat value from Set Tempo meta events, and
// assigns each row's absolute/delta time in seconds.
func (tl *timeline) integrateTempo(tempoScale float64) {
	microsPerBeat := float64(defaultMicrosecondsPerBeat) / tempoScale
	ticksPerBeat := float64(tl.ticksPerBeat)
	if ticksPerBeat == 0 {
		ticksPerBeat = 1
	}

	var seconds float64
	for i := range tl.rows {
		r := &tl.rows[i]
		secondsPerTick := microsPerBeat / ticksPerBeat / 1e6
		r.secondDelay = float64(r.tickDelay) * secondsPerTick
		seconds += r.secondDelay
		r.seconds = seconds

		for _, ev := range r.events {
			if ev.Kind == EventMeta && ev.MetaType == MetaTempo && len(ev.MetaData) == 3 {
				mpb := int(ev.MetaData[0])<<16 | int(ev.MetaData[1])<<8 | int(ev.MetaData[2])
				microsPerBeat = float64(mpb) / tempoScale
			}
		}
	}
}

// findLoopPoints scans every row's meta/text and controller events for a
// loop marker: case-insensitive bare "loopstart"/"loopend" text markers
// (the "loopstart=N"/"loopend=" forms are not loop points here; the
// driver's loop stack handles them) and CC110/111 HMI-style loop points. A marker repeated after one was
// already found, or an end at or before the start, invalidates the loop
// entirely rather than silently picking one.
func (tl *timeline) findLoopPoints() {
	for i := range tl.rows {
		r := &tl.rows[i]
		for _, ev := range r.events {
			switch {
			case ev.Kind == EventMeta && (ev.MetaType == MetaText || ev.MetaType == MetaMarker):
				text := string(ev.MetaData)
				if isLoopStartMarker(text) {
					if tl.loopStartTick != -1 {
						tl.loopStartTick, tl.loopEndTick = -1, -1
						return
					}
					tl.loopStartTick, tl.loopStartRow = int64(r.tick), i
				} else if isLoopEndMarker(text) {
					if tl.loopEndTick != -1 {
						tl.loopStartTick, tl.loopEndTick = -1, -1
						return
					}
					tl.loopEndTick, tl.loopEndRow = int64(r.tick), i
				}
			case ev.Kind == EventControlChange && ev.Data1 == 110:
				if tl.loopStartTick != -1 {
					tl.loopStartTick, tl.loopEndTick = -1, -1
					return
				}
				tl.loopStartTick, tl.loopStartRow = int64(r.tick), i
			case ev.Kind == EventControlChange && ev.Data1 == 111:
				if tl.loopEndTick != -1 {
					tl.loopStartTick, tl.loopEndTick = -1, -1
					return
				}
				tl.loopEndTick, tl.loopEndRow = int64(r.tick), i
			}
		}
	}
	if tl.loopStartTick != -1 && tl.loopEndTick != -1 && tl.loopEndTick <= tl.loopStartTick {
		tl.loopStartTick, tl.loopEndTick = -1, -1
	}
}

// isLoopStartMarker recognizes only the bare "loopstart" global marker;
// the "loopstart=N" nested-repeat form is handled live by the driver's
// loop stack (see driver.go's parseLoopStartCount), not folded into the
// single global loop point built here.
func isLoopStartMarker(text string) bool {
	return hasCaseInsensitivePrefix(text, "loopstart") && len(text) == len("loopstart")
}

// isLoopEndMarker recognizes only the bare "loopend" global marker; the
// "loopend=" nested-stack pop form is handled live by the driver.
func isLoopEndMarker(text string) bool {
	return hasCaseInsensitivePrefix(text, "loopend") && len(text) == len("loopend")
}

func hasCaseInsensitivePrefix(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		a, b := s[i], prefix[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}
