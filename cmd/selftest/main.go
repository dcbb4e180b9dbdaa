// Command selftest runs a self-assessment exam in the terminal against a JSON
// question bank file or the bundled sample bank.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/bank"
	"github.com/stemsi/exstem-selftest/internal/config"
	"github.com/stemsi/exstem-selftest/internal/engine"
	"github.com/stemsi/exstem-selftest/internal/logger"
	"github.com/stemsi/exstem-selftest/internal/view"
)

func main() {
	var (
		path     string
		logLevel string
	)
	flag.StringVar(&path, "file", "", "Path to a JSON bank file (default: bundled sample bank)")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(os.Stderr, logLevel, "pretty")

	var source bank.Source = bank.EmbeddedSource{Log: log}
	if path != "" {
		source = bank.FileSource{Path: path, Log: log}
	}

	if err := run(context.Background(), source, cfg.DefaultTimeLimit, os.Stdin, os.Stdout, log); err != nil {
		fmt.Fprintln(os.Stderr, "selftest:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, source bank.Source, fallback int, in io.Reader, out io.Writer, log zerolog.Logger) error {
	sess, err := engine.NewSession(ctx, engine.Options{
		ID:              uuid.NewString(),
		Loader:          source.Load,
		FallbackSeconds: fallback,
		Log:             log,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	renderer := view.Renderer{FallbackSeconds: fallback}
	var outMu sync.Mutex
	show := func(st engine.State) {
		outMu.Lock()
		defer outMu.Unlock()
		writeScreen(out, renderer.Render(st))
		fmt.Fprint(out, "> ")
	}

	// Announce a timeout the learner did not trigger by typing.
	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()
	go func() {
		var prev engine.Phase
		for st := range updates {
			if prev == engine.PhaseInProgress && st.Phase == engine.PhaseCompleted && st.TimeRemaining != nil && *st.TimeRemaining == 0 {
				outMu.Lock()
				fmt.Fprintln(out, "\nTime is up.")
				outMu.Unlock()
				show(st)
			}
			prev = st.Phase
		}
	}()

	st, err := sess.Snapshot(ctx)
	if err != nil {
		return err
	}
	show(st)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		intent, err := parseCommand(scanner.Text(), st)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, errHelp):
			outMu.Lock()
			fmt.Fprintln(out, helpText)
			outMu.Unlock()
		case err != nil:
			outMu.Lock()
			fmt.Fprintln(out, err)
			outMu.Unlock()
		}

		if st, err = sess.Dispatch(ctx, intent); err != nil {
			return err
		}
		show(st)
	}
	return scanner.Err()
}
