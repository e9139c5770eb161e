// Command streamvalcat is a smoke-test harness for the streamval public
// surface: it encodes a small built-in demo value, line-splits the result
// over an in-process pipe exactly as a real transport would, decodes it
// back, and prints what it drained from each async handle.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/filegrind/streamval-go/streamval"
)

func main() {
	configPath := flag.String("config", "", "path to streamvalcat YAML config file")
	demo := flag.String("demo", "numbers", "demo value to encode: numbers, mixed")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, closer := streamval.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	defer closer.Close()
	slog.SetDefault(logger)

	if err := run(*demo, cfg); err != nil {
		logger.Error("streamvalcat failed", "error", err)
		os.Exit(1)
	}
}

func run(demo string, cfg *Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	root, err := buildDemo(demo)
	if err != nil {
		return fmt.Errorf("building demo value: %w", err)
	}

	enc, err := streamval.Encode(ctx, root, streamval.EncodeOptions{})
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	pr, pw := io.Pipe()
	go pumpFrames(ctx, enc, pw)

	decoded, err := streamval.DecodeTransport(ctx, pr, streamval.DecodeOptions{
		StrictValidation: cfg.Decoding.StrictValidation,
		MaxLineBytes:     cfg.Decoding.MaxLineBytes,
	})
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	return printRoot(ctx, decoded)
}

// pumpFrames drives the encoder's output AsyncSequence to completion,
// writing each text frame to w as it becomes available — the worked
// example of piping Encode's output over a real byte transport.
func pumpFrames(ctx context.Context, enc streamval.AsyncSequence, w io.WriteCloser) {
	defer w.Close()
	for {
		res, err := enc.Next(ctx)
		if err != nil || res.Kind != streamval.Yield {
			return
		}
		line, ok := res.Value.([]byte)
		if !ok {
			return
		}
		if _, err := w.Write(line); err != nil {
			return
		}
	}
}

func buildDemo(name string) (any, error) {
	switch name {
	case "numbers":
		return map[string]any{
			"count": countdown(3),
		}, nil
	case "mixed":
		return map[string]any{
			"greeting": staticPromise{value: "hello from streamvalcat"},
			"count":    countdown(2),
		}, nil
	default:
		return nil, fmt.Errorf("unknown demo %q", name)
	}
}

func printRoot(ctx context.Context, root any) error {
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	m, ok := root.(map[string]any)
	if !ok {
		fmt.Fprintf(w, "%v\n", root)
		return nil
	}

	if p, ok := m["greeting"].(streamval.Promise); ok {
		v, err := p.Await(ctx)
		if err != nil {
			fmt.Fprintf(w, "greeting: error: %v\n", err)
		} else {
			fmt.Fprintf(w, "greeting: %v\n", v)
		}
	}

	if seq, ok := m["count"].(streamval.AsyncSequence); ok {
		for {
			res, err := seq.Next(ctx)
			if err != nil {
				return err
			}
			switch res.Kind {
			case streamval.Yield:
				fmt.Fprintf(w, "count: %v\n", res.Value)
			case streamval.Return:
				fmt.Fprintf(w, "count: done (%v)\n", res.Value)
				return nil
			case streamval.Err:
				fmt.Fprintf(w, "count: error: %v\n", res.Err)
				return nil
			}
		}
	}
	return nil
}
