package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vsariola/stepsynth"
	"github.com/vsariola/stepsynth/session"
	"github.com/vsariola/stepsynth/version"
)

func main() {
	output := flag.String("o", "", "Output file. The extension .raw writes headerless samples, anything else a .wav file. Defaults to the song name with .wav.")
	bars := flag.Int("bars", 1, "Number of bars to render.")
	tail := flag.Float64("tail", 1, "Seconds rendered after the last bar, letting the notes ring out.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM.")
	configFile := flag.String("config", "", "YAML configuration file.")
	verbose := flag.Bool("verbose", false, "Log every note.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String())
		os.Exit(0)
	}
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
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
	cfg.Logger = logger
	cfg.Soft.Logger = logger
	if err := render(cfg, *output, *bars, *tail, *pcm); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func render(cfg session.Config, output string, bars int, tail float64, pcm bool) error {
	if bars < 1 {
		return fmt.Errorf("bars should be > 0, got %v", bars)
	}
	song, err := session.LoadSong(cfg.Song)
	if err != nil {
		return fmt.Errorf("could not load song: %v", err)
	}
	off := session.NewOffline(cfg.Soft)
	s, err := session.New(cfg, song, off.Ctx, off.Timers)
	if err != nil {
		return fmt.Errorf("could not create session: %v", err)
	}
	defer s.Close()
	rate := off.Ctx.SampleRate()
	secs := float64(bars*song.Tempo.BeatsPerBar) * song.Tempo.SecsPerBeat()
	buffer := make([]float32, int((secs+max(tail, 0))*rate))
	s.Start()
	off.Render(buffer[:int(secs*rate)])
	s.Stop()
	off.Render(buffer[int(secs*rate):])
	if output == "" {
		name := "default"
		if cfg.Song != "" {
			name = strings.TrimSuffix(filepath.Base(cfg.Song), filepath.Ext(cfg.Song))
		}
		output = name + ".wav"
	}
	var contents []byte
	if filepath.Ext(output) == ".raw" {
		contents, err = stepsynth.Raw(buffer, pcm)
	} else {
		contents, err = stepsynth.Wav(buffer, int(rate), pcm)
	}
	if err != nil {
		return fmt.Errorf("could not encode audio: %v", err)
	}
	if err := os.WriteFile(output, contents, 0644); err != nil {
		return fmt.Errorf("could not write %v: %v", output, err)
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Stepsynth renderer. Renders bars of a song to a .wav or .raw file.\nUsage: %s [flags] [song.yml]\n", os.Args[0])
	flag.PrintDefaults()
}
