// Command sfplay loads a SoundFont2 bank and a MIDI-family score and plays
// it live through the default audio device, or renders it to a WAVE file,
// mirroring the teacher's modplay/modwav command pair but for a single
// synth binary with a wav=OUT.wav escape hatch instead of two commands.
package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/gordonklaus/portaudio"

	"github.com/gosoundfont/sfsynth"
	"github.com/gosoundfont/sfsynth/cmd/internal/config"
	"github.com/gosoundfont/sfsynth/wav"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: sfplay soundfont=FILE.sf2 song=FILE.mid [voices=N] [bank=gm|gs|xg] [config=FILE.yaml] [wav=OUT.wav]`)
}

type args struct {
	soundfont string
	song      string
	voices    int
	bankMode  string
	config    string
	wavOut    string
}

func parseArgs(argv []string) (args, error) {
	a := args{}
	for _, raw := range argv {
		if raw == "help" || raw == "-help" || raw == "--help" {
			return a, fmt.Errorf("help requested")
		}
		kv := strings.SplitN(raw, "=", 2)
		if len(kv) != 2 {
			return a, fmt.Errorf("malformed argument %q, want key=value", raw)
		}
		key, val := kv[0], kv[1]
		switch key {
		case "soundfont":
			a.soundfont = val
		case "song":
			a.song = val
		case "voices":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return a, fmt.Errorf("invalid voices count %q, must be a positive integer", val)
			}
			a.voices = n
		case "bank":
			a.bankMode = val
		case "config":
			a.config = val
		case "wav":
			a.wavOut = val
		default:
			return a, fmt.Errorf("unrecognized argument key %q", key)
		}
	}
	if a.soundfont == "" {
		return a, fmt.Errorf("missing required soundfont=FILE.sf2 argument")
	}
	return a, nil
}

func bankModeFromString(s string) sfsynth.BankSelectMode {
	switch strings.ToLower(s) {
	case "gs":
		return sfsynth.BankModeGS
	case "xg":
		return sfsynth.BankModeXG
	default:
		return sfsynth.BankModeGM
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("sfplay: ")

	a, err := parseArgs(os.Args[1:])
	if err != nil {
		usage()
		if err.Error() == "help requested" {
			os.Exit(0)
		}
		log.Println(err)
		os.Exit(1)
	}

	cfg := config.Default()
	if a.config != "" {
		cfg, err = config.Load(a.config)
		if err != nil {
			log.Fatal(err)
		}
	}
	if a.voices > 0 {
		cfg.Voices = a.voices
	}
	if a.bankMode != "" {
		cfg.BankMode = a.bankMode
	}

	synth := sfsynth.New(cfg.SampleRate, cfg.Voices)
	synth.SetBankSelectMode(bankModeFromString(cfg.BankMode))
	synth.SetVolume(cfg.Volume)

	if !synth.LoadSoundFont(a.soundfont) {
		log.Fatalf("failed to load soundfont %s", a.soundfont)
	}

	if a.song != "" {
		if !synth.LoadSong(a.song) {
			log.Fatalf("failed to load song %s", a.song)
		}
	}

	cyan := color.New(color.FgCyan).SprintfFunc()

	if a.wavOut != "" {
		renderToWAV(synth, cfg, a.wavOut)
		return
	}

	if err := portaudio.Initialize(); err != nil {
		log.Fatal(err)
	}
	defer portaudio.Terminate()

	var out []byte
	streamCB := func(pcm []float32) {
		need := len(pcm) * 4
		if cap(out) < need {
			out = make([]byte, need)
		}
		out = out[:need]
		n := synth.PlayStream(out)
		for i := 0; i < n/4; i++ {
			bits := binary.LittleEndian.Uint32(out[i*4:])
			pcm[i] = math.Float32frombits(bits)
		}
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, cfg.SampleRate, portaudio.FramesPerBufferUnspecified, streamCB)
	if err != nil {
		log.Fatal(err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		log.Fatal(err)
	}
	defer stream.Stop()

	fmt.Println(cyan("sfplay: %s (%d voices, %s bank)", a.soundfont, cfg.Voices, cfg.BankMode))

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT)
	<-sigch
	synth.Stop()
}

// renderToWAV drives the synth exactly as far as the loaded song's natural
// (looped) length, writing each rendered frame straight to a WAVE file
// instead of a live device, matching modwav's render-to-completion loop.
// wav.Writer.WriteInterleaved consumes the engine's native interleaved
// float32 output directly, so no per-channel conversion happens here.
func renderToWAV(synth *sfsynth.Synthesizer, cfg config.Synth, path string) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	w, err := wav.NewWriter(f, int(cfg.SampleRate))
	if err != nil {
		log.Fatal(err)
	}
	defer w.Finish()

	const chunkFrames = 2048
	raw := make([]byte, chunkFrames*8)

	for !synth.AtEnd() {
		n := synth.PlayStream(raw)
		if err := w.WriteInterleaved(raw[:n]); err != nil {
			log.Fatal(err)
		}
	}
}
