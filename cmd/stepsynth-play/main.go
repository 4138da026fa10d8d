package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vsariola/stepsynth/clock"
	"github.com/vsariola/stepsynth/session"
	"github.com/vsariola/stepsynth/soft"
	"github.com/vsariola/stepsynth/version"
)

const (
	statusInterval = 200 * time.Millisecond
	tempoStep      = 5
	detuneStep     = 10
)

const help = `keys:
  1-9      select track       a s d f  play track 1-4
  space    play selected      r        record selected
  enter    start / stop       + -      tempo
  [ ]      detune             p        print pattern
  x        panic              w        save song
  q        quit
`

// player is the state of the keyboard interface. It lives on the loop
// goroutine.
type player struct {
	sess     *session.Session
	ctx      *soft.Context
	selected int
	save     string
	caser    cases.Caser
	quit     context.CancelFunc
	log      *slog.Logger
}

func main() {
	configFile := flag.String("config", "", "YAML configuration file.")
	save := flag.String("save", "", "File the song is saved to with the w key. Defaults to the song file.")
	logFile := flag.String("log", "", "Write the log to this file instead of discarding it.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String())
		os.Exit(0)
	}
	// the terminal is in raw mode while playing, so the log goes to a file
	logger := slog.New(slog.DiscardHandler)
	if *logFile != "" {
		f, err := os.Create(*logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	var cfg session.Config
	if *configFile != "" {
		var err error
		if cfg, err = session.LoadConfig(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
			os.Exit(1)
		}
	}
	if flag.NArg() > 0 {
		cfg.Song = flag.Arg(0)
	}
	if *save == "" {
		*save = cfg.Song
	}
	cfg.Logger = logger
	cfg.Soft.Logger = logger
	if err := run(cfg, *save); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(cfg session.Config, save string) error {
	song, err := session.LoadSong(cfg.Song)
	if err != nil {
		return fmt.Errorf("could not load song: %w", err)
	}
	ctx := soft.New(cfg.Soft)
	output, err := newOutput(int(ctx.SampleRate()))
	if err != nil {
		return fmt.Errorf("could not open audio output: %w", err)
	}
	defer output.Close()
	loop := clock.NewLoop()
	sess, err := session.New(cfg, song, ctx, loop)
	if err != nil {
		return fmt.Errorf("could not create session: %w", err)
	}
	defer sess.Close()
	if err := output.Play(ctx); err != nil {
		return err
	}
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("could not set raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &player{
		sess:  sess,
		ctx:   ctx,
		save:  save,
		caser: cases.Title(language.English),
		quit:  cancel,
		log:   cfg.Logger,
	}
	p.printf("%s", strings.ReplaceAll(help, "\n", "\r\n"))
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				loop.Post(cancel)
				return
			}
			if n > 0 {
				key := buf[0]
				loop.Post(func() { p.key(key) })
			}
		}
	}()
	status := loop.Every(statusInterval, p.status)
	defer status.Stop()
	if err := loop.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	p.printf("\n")
	return nil
}

func (p *player) key(k byte) {
	seq := p.sess.Sequencer()
	now := p.ctx.CurrentTime()
	var err error
	switch {
	case k >= '1' && k <= '9':
		if int(k-'1') < seq.NumTracks() {
			p.selected = int(k - '1')
		}
	case strings.IndexByte("asdf", k) >= 0:
		_, err = seq.Play(strings.IndexByte("asdf", k), now)
	case k == ' ':
		_, err = seq.Play(p.selected, now)
	case k == 'r':
		_, err = seq.Record(p.selected)
	case k == '\r' || k == '\n':
		if seq.Running() {
			p.sess.Stop()
		} else {
			p.sess.Start()
		}
	case k == '+' || k == '-':
		t := seq.Tempo()
		if k == '+' {
			t.BPM += tempoStep
		} else {
			t.BPM = max(t.BPM-tempoStep, tempoStep)
		}
		err = seq.SetTempo(t)
	case k == '[' || k == ']':
		d := p.sess.Detune()
		if k == ']' {
			d.SetValue(d.Value() + detuneStep)
		} else {
			d.SetValue(d.Value() - detuneStep)
		}
	case k == 'p':
		p.printPattern()
	case k == 'x':
		seq.Panic()
	case k == 'w':
		err = p.saveSong()
	case k == 'q' || k == 3: // ctrl-c
		p.quit()
	}
	if err != nil {
		p.log.Warn("key failed", "key", string(k), "err", err)
		p.printf("\r\x1b[K%v\r\n", err)
	}
}

func (p *player) saveSong() error {
	if p.save == "" {
		return errors.New("no file to save to, use -save")
	}
	if err := session.SaveSong(p.save, p.sess.Sequencer().Snapshot()); err != nil {
		return err
	}
	p.printf("\r\x1b[Ksaved %v\r\n", p.save)
	return nil
}

func (p *player) printPattern() {
	seq := p.sess.Sequencer()
	tempo := seq.Tempo()
	var b strings.Builder
	for i := range seq.NumTracks() {
		fmt.Fprintf(&b, "%d ", i+1)
		for j, on := range seq.Track(i) {
			if j > 0 && j%tempo.SlicesPerBeat == 0 {
				b.WriteByte('|')
			}
			if on {
				b.WriteByte('x')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("\r\n")
	}
	p.printf("\r\x1b[K%s", b.String())
}

func (p *player) status() {
	seq := p.sess.Sequencer()
	inst := seq.Instrument(p.selected)
	name := inst.Wave
	if inst.Script != "" {
		name = inst.Script
	}
	state := "stopped"
	if beat, _, ok := seq.CurrentBeat(); ok && seq.Running() {
		state = fmt.Sprintf("beat %d", seq.Tempo().LocalBeat(beat)+1)
	}
	peak := p.ctx.Meter().Peak()
	p.printf("\r\x1b[Ktrack %d %s | %.0f bpm | %s | detune %+.0f | %s | notes %d",
		p.selected+1, p.caser.String(name), seq.Tempo().BPM, state,
		p.sess.Detune().Value(), level(peak), seq.Registry().Len())
}

func level(d soft.Decibel) string {
	if d < -96 {
		return "-inf dBFS"
	}
	return fmt.Sprintf("%.1f dBFS", d)
}

func (p *player) printf(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format, args...)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Stepsynth player. Plays a song and lets you edit it from the keyboard.\nUsage: %s [flags] [song.yml]\n", os.Args[0])
	flag.PrintDefaults()
}
