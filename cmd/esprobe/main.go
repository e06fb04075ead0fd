/*
DESCRIPTION
  esprobe reads H.264, H.265 or AV1 elementary stream files and prints the
  parameter sets, sequence headers and captions found in them as JSON lines.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// esprobe prints the metadata of elementary stream files.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/esparse/codec/codecutil"
	"github.com/ausocean/esparse/probe"
	"github.com/ausocean/esparse/probe/config"
	"github.com/ausocean/utils/logging"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration.
const (
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

// Misc constants.
const (
	profilePath = "esprobe.prof"
	pkg         = "esprobe: "
	stdinName   = "-"
)

// This is set to true if the 'profile' build tag is provided on build.
var canProfile = false

func main() {
	var (
		showVersion  = flag.Bool("version", false, "show version")
		codec        = flag.String("codec", codecutil.H264, "stream codec: h264, h265 or av1")
		captions     = flag.Bool("captions", false, "decode CEA-608/708 captions")
		frameHeaders = flag.Bool("frames", false, "report AV1 frame headers")
		depth        = flag.Int("depth", 0, "SEI reorder depth in pictures, 0 to use the SPS")
		frameRate    = flag.Uint("fps", 25, "frame rate used when the stream has no timing")
		chunkSize    = flag.Uint("chunk", 65536, "bytes read per write")
		verbosity    = flag.String("verbosity", "Info", "log level: Debug, Info, Warning, Error or Fatal")
		logPath      = flag.String("log", "esprobe.log", "log file path")
		jobs         = flag.Int("jobs", runtime.NumCPU(), "files probed concurrently")
	)
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Create lumberjack logger to handle logging to file.
	fileLog := &lumberjack.Logger{
		Filename:   *logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	defer fileLog.Close()

	// Create logger that we call methods on to log, which in turn writes to
	// stderr and the lumberjack logger.
	log := logging.New(logVerbosity, io.MultiWriter(os.Stderr, fileLog), logSuppress)

	if canProfile {
		profile(log)
		defer pprof.StopCPUProfile()
		log.Info("profiling started")
	}

	cfg := config.Config{Logger: log}
	cfg.Update(map[string]string{
		config.KeyCodec:           *codec,
		config.KeyCaptions:        strconv.FormatBool(*captions),
		config.KeyFrameHeaders:    strconv.FormatBool(*frameHeaders),
		config.KeySEIReorderDepth: strconv.Itoa(*depth),
		config.KeyFrameRate:       strconv.FormatUint(uint64(*frameRate), 10),
		config.KeyChunkSize:       strconv.FormatUint(uint64(*chunkSize), 10),
		config.KeyLogging:         *verbosity,
	})
	err := cfg.Validate()
	if err != nil {
		log.Fatal(pkg+"invalid config", "error", err.Error())
	}
	log.SetLevel(cfg.LogLevel)

	files := flag.Args()
	if len(files) == 0 {
		files = []string{stdinName}
	}
	log.Info("starting esprobe", "version", version, "codec", cfg.Codec, "files", len(files))

	out := &lineWriter{enc: json.NewEncoder(os.Stdout)}
	err = run(context.Background(), cfg, files, *jobs, out)
	if err != nil {
		log.Fatal(pkg+"probe failed", "error", err.Error())
	}
}

// run probes each of files, up to jobs at a time, writing records to out.
func run(ctx context.Context, cfg config.Config, files []string, jobs int, out *lineWriter) error {
	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for _, name := range files {
		g.Go(func() error {
			err := probeFile(ctx, cfg, name, out)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// probeFile probes a single file, or stdin if name is "-".
func probeFile(ctx context.Context, cfg config.Config, name string, out *lineWriter) error {
	var src io.Reader = os.Stdin
	if name != stdinName {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	p, err := probe.New(cfg, probe.HandlerFunc(func(r probe.Record) {
		err := out.write(name, r)
		if err != nil {
			cfg.Logger.Error(pkg+"could not write record", "file", name, "error", err.Error())
		}
	}))
	if err != nil {
		return fmt.Errorf("could not create probe: %w", err)
	}

	if codecutil.IsAnnexB(cfg.Codec) {
		lexer, err := codecutil.NewByteLexer(int(cfg.ChunkSize))
		if err != nil {
			return fmt.Errorf("could not create lexer: %w", err)
		}
		err = lexer.Lex(ctx, p.Writer(), src)
		if err != nil {
			return fmt.Errorf("could not read stream: %w", err)
		}
	} else {
		err = writeTemporalUnits(p, src)
		if err != nil {
			return err
		}
	}

	err = p.Flush()
	if err != nil {
		return fmt.Errorf("could not flush probe: %w", err)
	}

	st := p.Stats()
	cfg.Logger.Info("probed file", "file", name, "units", st.Units, "pictures", st.Pictures,
		"records", st.Records, "errors", st.Errors, "unsupported", st.Unsupported)
	return nil
}

// lineWriter writes records as JSON lines. It is safe for concurrent use.
type lineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// line is a record with the file it was found in.
type line struct {
	File string `json:"file"`
	probe.Record
}

func (w *lineWriter) write(file string, r probe.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(line{File: file, Record: r})
}

func profile(l logging.Logger) {
	f, err := os.Create(profilePath)
	if err != nil {
		l.Fatal(pkg+"could not create CPU profile", "error", err.Error())
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		l.Fatal(pkg+"could not start CPU profile", "error", err.Error())
	}
}
