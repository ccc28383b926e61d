// scribl - document engine for talking-picture recordings
//
//	scribl info <file>      Show a document's contents and format version
//	scribl migrate <file>   Rewrite a document at the current format version
//	scribl export <file>    Export the mixed soundtrack (ogg or wav)
//	scribl demo             Run a scripted session against the engine
//	scribl library          Inspect the recent-documents library
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scribl/internal/audio"
	"scribl/internal/config"
	"scribl/internal/editor"
	"scribl/internal/encode"
	"scribl/internal/library"
	"scribl/internal/logging"
	"scribl/internal/save"
	"scribl/internal/stroke"
	"scribl/internal/times"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "info":
		cmdInfo(os.Args[2:])
	case "migrate":
		cmdMigrate(os.Args[2:])
	case "export":
		cmdExport(os.Args[2:])
	case "demo":
		cmdDemo(os.Args[2:])
	case "library":
		cmdLibrary(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`scribl - talking-picture document engine

USAGE:
    scribl <command> [options]

COMMANDS:
    info <file>         Show document contents and format version
    migrate <file>      Rewrite a document at the current format version
    export <file>       Export the mixed soundtrack to ogg or wav
    demo                Run a scripted recording session
    library list        List recently opened documents
    library forget <p>  Drop a document from the library
    help                Show this help message

Configuration is read from ` + config.ConfigPath() + ` when present;
SCRIBL_DATA_DIR moves the data directory.`)
}

// loadConfig reads the user config, falling back to defaults when absent,
// and installs the configured logger.
func loadConfig() *config.Config {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	log, err := logging.New(&logging.Config{
		Level:     level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "scribl",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(log)
	return cfg
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		fatal("usage: scribl info <file>")
	}
	path := fs.Arg(0)

	f, err := save.ReadFile(path)
	if err != nil {
		fatal("read %s: %v", path, err)
	}

	end := times.Zero
	for _, s := range f.Scribl.Strokes {
		end = times.Max(end, s.End())
	}
	for _, s := range f.Scribl.Snippets {
		end = times.Max(end, s.End())
	}

	fmt.Printf("Document:       %s\n", path)
	fmt.Printf("Format version: %d\n", f.Version)
	fmt.Printf("Duration:       %.2fs\n", end.Seconds())
	fmt.Printf("Strokes:        %d\n", len(f.Scribl.Strokes))
	fmt.Printf("Snippets:       %d\n", len(f.Scribl.Snippets))
	for _, s := range f.Scribl.Snippets {
		fmt.Printf("  #%d  start=%.2fs  dur=%.2fs  speed=%.3g  denoise=%s  status=%s\n",
			s.ID, s.Start.Seconds(), s.Duration.Seconds(), float64(s.Speed), s.Denoise, s.Status)
	}
	fmt.Printf("Settings:       pen=%.3g %s  speed=%.3g  denoise=%s\n",
		f.Scribl.Settings.PenSize, f.Scribl.Settings.PenColor,
		float64(f.Scribl.Settings.RecordingSpeed), f.Scribl.Settings.Denoise)
}

func cmdMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	out := fs.String("o", "", "output path (default: rewrite in place)")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fatal("usage: scribl migrate [-o out] <file>")
	}
	path := fs.Arg(0)

	f, err := save.ReadFile(path)
	if err != nil {
		fatal("read %s: %v", path, err)
	}
	f.Version = save.CurrentVersion

	target := *out
	if target == "" {
		target = path
	}
	if err := save.WriteFile(target, f); err != nil {
		fatal("write %s: %v", target, err)
	}
	fmt.Printf("Wrote %s at format version %d\n", target, f.Version)
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("o", "", "output path (default: input with .ogg/.wav suffix)")
	format := fs.String("format", "ogg", "output format: ogg or wav")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fatal("usage: scribl export [-o out] [-format ogg|wav] <file>")
	}
	path := fs.Arg(0)
	cfg := loadConfig()

	f, err := save.ReadFile(path)
	if err != nil {
		fatal("read %s: %v", path, err)
	}

	snippets := audio.NewSnippets()
	for _, s := range f.Scribl.Snippets {
		if err := snippets.Insert(s); err != nil {
			fatal("load snippets: %v", err)
		}
	}
	pcm := encode.Mixdown(snippets)
	if len(pcm) == 0 {
		fatal("%s has no audio", path)
	}

	target := *out
	if target == "" {
		target = path + "." + *format
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *format {
	case "wav":
		w, err := os.Create(target)
		if err != nil {
			fatal("create %s: %v", target, err)
		}
		defer w.Close()
		if err := encode.WriteWAV(w, pcm); err != nil {
			fatal("export: %v", err)
		}
	case "ogg":
		err := encode.ExportOgg(ctx, target, pcm, cfg.Export.OpusBitrate, func(done, total int) {
			if done == total || done%250 == 0 {
				fmt.Printf("\r%d/%d frames", done, total)
			}
		})
		fmt.Println()
		if err != nil {
			os.Remove(target)
			fatal("export: %v", err)
		}
	default:
		fatal("unknown format %q", *format)
	}
	fmt.Printf("Exported %.2fs of audio to %s\n",
		float64(len(pcm))/float64(audio.SampleRate), target)
}

// cmdDemo drives the engine through a scripted session: record a take with
// two strokes, denoise it, and save the result.
func cmdDemo(args []string) {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	out := fs.String("o", "demo.scb", "where to save the demo document")
	fs.Parse(args)
	cfg := loadConfig().Clone()
	cfg.Session.RecordingSpeed = config.SpeedNormal

	e := editor.New(*cfg, &audio.SimulatedDevice{}, nil, logging.Default())
	defer e.Close()

	ctx := context.Background()
	id, err := e.StartRecording(ctx)
	if err != nil {
		fatal("start recording: %v", err)
	}
	fmt.Printf("Recording snippet %d...\n", id)

	time.Sleep(500 * time.Millisecond)
	e.CommitStroke([]stroke.Point{
		{X: 0.2, Y: 0.2, T: e.Playhead()},
		{X: 0.4, Y: 0.3, T: e.Playhead().Add(times.FromSeconds(0.1).Sub(times.Zero))},
	})
	time.Sleep(500 * time.Millisecond)
	e.CommitStroke([]stroke.Point{
		{X: 0.5, Y: 0.5, T: e.Playhead()},
		{X: 0.7, Y: 0.6, T: e.Playhead().Add(times.FromSeconds(0.1).Sub(times.Zero))},
	})

	snip, err := e.StopRecording()
	if err != nil {
		fatal("stop recording: %v", err)
	}
	fmt.Printf("Recorded %.2fs (%d samples), status %s\n",
		snip.Duration.Seconds(), len(snip.Buf), snip.Status)

	if snip.Status == audio.StatusPending {
		jobID, err := e.RunDenoise(ctx, snip.ID)
		if err != nil {
			fatal("denoise: %v", err)
		}
		for {
			st, err := e.PollJob(jobID)
			if err != nil || st.Terminal() {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		for _, c := range e.ProcessCompletions() {
			fmt.Printf("Denoise of snippet %d: %s%s\n", c.ID, c.Status, reason(c.Reason))
		}
	}

	f := save.New(e.Strokes(), e.Snippets(), e.Settings())
	if err := save.WriteFile(*out, f); err != nil {
		fatal("save: %v", err)
	}
	fmt.Printf("Saved document to %s\n", *out)

	lib, err := library.Open(cfg.Storage.LibraryPath, cfg.Storage.BusyTimeoutMs)
	if err != nil {
		fatal("open library: %v", err)
	}
	defer lib.Close()
	end := snip.End()
	if _, err := lib.Touch(*out, end, len(f.Scribl.Strokes), len(f.Scribl.Snippets)); err != nil {
		fatal("update library: %v", err)
	}
}

func reason(r string) string {
	if r == "" {
		return ""
	}
	return " (" + r + ")"
}

func cmdLibrary(args []string) {
	if len(args) < 1 {
		fatal("usage: scribl library <list|forget>")
	}
	cfg := loadConfig()

	lib, err := library.Open(cfg.Storage.LibraryPath, cfg.Storage.BusyTimeoutMs)
	if err != nil {
		fatal("open library: %v", err)
	}
	defer lib.Close()

	switch args[0] {
	case "list":
		docs, err := lib.Recent(20)
		if err != nil {
			fatal("list: %v", err)
		}
		if len(docs) == 0 {
			fmt.Println("Library is empty.")
			return
		}
		for _, d := range docs {
			fmt.Printf("%-40s  %7.2fs  %4d strokes  %3d snippets  opened %s\n",
				d.Path, d.Duration.Seconds(), d.StrokeCount, d.SnippetCount,
				d.LastOpened.Format("2006-01-02 15:04"))
		}
	case "forget":
		if len(args) < 2 {
			fatal("usage: scribl library forget <path>")
		}
		if err := lib.Forget(args[1]); err != nil {
			fatal("forget: %v", err)
		}
		fmt.Printf("Forgot %s\n", args[1])
	default:
		fatal("unknown library action %q", args[0])
	}
}
