// Package main runs Lua scenario scripts against an in-memory Construct and
// prints the resulting block journal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/config"
	"github.com/cory-johannsen/construct/internal/game/construct"
	"github.com/cory-johannsen/construct/internal/game/dice"
	"github.com/cory-johannsen/construct/internal/observability"
	"github.com/cory-johannsen/construct/internal/scripting"
)

func main() {
	genesisPath := flag.String("genesis", "configs/genesis.yaml", "path to genesis YAML")
	seed := flag.String("seed", "", "weak random seed (default: construct name)")
	scripted := flag.Bool("scripted", false, "use scripted randomness controlled by construct.rolls")
	level := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	quiet := flag.Bool("quiet", false, "do not print the block journal")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("usage: scenario [flags] scenario.lua...")
	}

	logger, err := observability.NewLogger(config.LoggingConfig{Level: *level, Format: "console"}, "scenario")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	g, err := construct.LoadGenesis(*genesisPath)
	if err != nil {
		logger.Fatal("loading genesis", zap.Error(err))
	}

	failed := 0
	for _, path := range flag.Args() {
		opts := scripting.Options{Seed: *seed, Logger: logger}
		if *scripted {
			opts.Rand = dice.NewFixedSource()
		}
		r, err := scripting.NewRunner(g, opts)
		if err != nil {
			logger.Fatal("creating runner", zap.Error(err))
		}
		runErr := r.Run(context.Background(), path)
		if !*quiet {
			printJournal(os.Stdout, path, r)
		}
		if runErr != nil {
			failed++
			fmt.Fprintf(os.Stdout, "FAIL %s: %v\n", path, runErr)
			continue
		}
		fmt.Fprintf(os.Stdout, "ok   %s (%d blocks)\n", path, r.Height())
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func printJournal(w io.Writer, name string, r *scripting.Runner) {
	fmt.Fprintf(w, "== %s\n", name)
	for _, b := range r.Blocks() {
		rep := b.Report
		fmt.Fprintf(w, "block %d: actions=%d attacks=%d commands=%d refunds=%d damage=%d hp=%d",
			rep.Height, rep.Actions, len(rep.Turns), len(rep.Commands), len(rep.Refunded), rep.Damage(), rep.Hitpoints)
		if rep.Regenerated > 0 {
			fmt.Fprintf(w, " regenerated=%d", rep.Regenerated)
		}
		if s := rep.Settlement; s != nil {
			fmt.Fprintf(w, " settled final_blow=%s treasury=%d players=%d burned=%d", s.FinalBlow, s.Treasury, s.Players, s.Burned)
		}
		fmt.Fprintln(w)
		for _, t := range rep.Turns {
			fmt.Fprintf(w, "  tx %d %s by %s: damage=%d", t.TxID, t.Outcome, t.Attacker, t.Damage)
			if t.Breached {
				fmt.Fprint(w, " breached")
			}
			if t.Countered {
				fmt.Fprint(w, " countered")
			}
			fmt.Fprintln(w)
		}
		for _, cmd := range rep.Commands {
			fmt.Fprintf(w, "  admin %s\n", cmd.Opcode())
		}
		for _, d := range b.Deliveries {
			printDelivery(w, d)
		}
	}
}

func printDelivery(w io.Writer, d chain.Delivery) {
	switch {
	case d.Notice != nil && d.Notice.Amount != 0:
		fmt.Fprintf(w, "  -> %s: %q (+%d)\n", d.To, d.Notice.Text, d.Notice.Amount)
	case d.Notice != nil:
		fmt.Fprintf(w, "  -> %s: %q\n", d.To, d.Notice.Text)
	case d.Event != nil:
		fmt.Fprintf(w, "  => %s: %s %v\n", d.To, d.Event.Code(), d.Event[1:])
	}
}
