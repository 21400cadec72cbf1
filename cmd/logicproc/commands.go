package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rcrowley/go-metrics"
	"gopkg.in/urfave/cli.v1"

	"github.com/chazu/logicproc/block"
	"github.com/chazu/logicproc/compiler"
	"github.com/chazu/logicproc/server"
	"github.com/chazu/logicproc/sim"
	"github.com/chazu/logicproc/store"
)

var (
	checkCommand = cli.Command{
		Name:      "check",
		Usage:     "Assemble programs and report diagnostics",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "strict", Usage: "treat warnings as errors"},
		},
		Action: check,
	}

	disasmCommand = cli.Command{
		Name:      "disasm",
		Usage:     "Print the assembled listing of a program",
		ArgsUsage: "<file>",
		Action:    disasm,
	}

	runCommand = cli.Command{
		Name:  "run",
		Usage: "Run the manifest's world for a number of ticks and print every entity",
		Flags: []cli.Flag{
			cli.IntFlag{Name: "ticks, n", Usage: "ticks to run", Value: 60},
			cli.StringFlag{Name: "save", Usage: "save a snapshot with this `LABEL` when done"},
			cli.BoolFlag{Name: "restore", Usage: "restore the latest snapshot before running"},
		},
		Action: run,
	}

	serveCommand = cli.Command{
		Name:  "serve",
		Usage: "Serve the manifest's world over the control service",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "addr", Usage: "listen `ADDRESS` (default from manifest)"},
			cli.BoolFlag{Name: "restore", Usage: "restore the latest snapshot before serving"},
			cli.BoolFlag{Name: "paused", Usage: "do not tick; advance only on Tick requests"},
		},
		Action: serve,
	}

	savesCommand = cli.Command{
		Name:   "saves",
		Usage:  "List stored snapshots",
		Action: saves,
	}

	lspCommand = cli.Command{
		Name:   "lsp",
		Usage:  "Run the language server on stdio",
		Action: lsp,
	}
)

func check(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return cli.NewExitError("check: no files given", 2)
	}
	m, err := loadManifest(ctx)
	if err != nil {
		return err
	}
	opts := compiler.Options{Limits: m.Limits.Limits, Strict: ctx.Bool("strict")}

	failed := 0
	for _, path := range ctx.Args() {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		prog, diags, err := compiler.Assemble(string(src), opts)
		for _, d := range diags {
			fmt.Printf("%s:%d:%d: %s: %s\n", path, d.Line, d.Column, d.Severity, d.Message)
		}
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("%s: ok (%d instructions, %d slots)\n", path, prog.Len(), prog.Vars.Len())
	}
	if failed > 0 {
		return cli.NewExitError(fmt.Sprintf("%d file(s) failed", failed), 1)
	}
	return nil
}

func disasm(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("disasm: expected one file", 2)
	}
	path := ctx.Args().First()
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m, err := loadManifest(ctx)
	if err != nil {
		return err
	}
	prog, _, err := compiler.Assemble(string(src), compiler.Options{Limits: m.Limits.Limits})
	if err != nil {
		return err
	}
	configureColor(ctx)
	fmt.Print(colorize(prog.DisassembleWithName(path)))
	return nil
}

func run(ctx *cli.Context) error {
	m, err := loadManifest(ctx)
	if err != nil {
		return err
	}
	s, err := sim.FromManifest(m, nil)
	if err != nil {
		return err
	}

	var st *store.Store
	if ctx.Bool("restore") || ctx.String("save") != "" {
		if st, err = store.Open(m.SavePath()); err != nil {
			return err
		}
		defer st.Close()
	}
	if ctx.Bool("restore") {
		if err := s.Restore(context.Background(), st, ""); err != nil {
			return err
		}
	}

	for range ctx.Int("ticks") {
		s.Tick(1)
	}
	printWorld(os.Stdout, s)

	if label := ctx.String("save"); label != "" {
		id, err := s.Save(context.Background(), st, label)
		if err != nil {
			return err
		}
		fmt.Printf("saved %s\n", id)
	}
	return nil
}

// printWorld writes each entity's variables, memory and text.
func printWorld(w io.Writer, s *sim.Sim) {
	fmt.Fprintf(w, "after %d ticks\n", s.Ticks())
	for _, b := range s.Entities() {
		e := b.Logic
		ex := e.Executor()
		fmt.Fprintf(w, "\n%s  counter %d  links %d\n", e, ex.Counter(), len(e.Links()))
		for _, v := range ex.Vars().All() {
			if v.Constant {
				continue
			}
			fmt.Fprintf(w, "  %-16s %s\n", v.Name, v.Value)
		}
		if cells := nonZero(ex.Memory()); cells != "" {
			fmt.Fprintf(w, "  memory %s\n", cells)
		}
		if text := ex.Text(); text != "" {
			fmt.Fprintf(w, "  text   %q\n", text)
		}
	}
	for _, b := range s.Grid().Buildings() {
		if b.Logic == nil && b.Text() != "" {
			x, y := block.UnpackPos(b.Pos())
			fmt.Fprintf(w, "\n%s(%d,%d) displays %q\n", b.Kind(), x, y, b.Text())
		}
	}
}

func nonZero(memory []float64) string {
	var parts []string
	for i, v := range memory {
		if v != 0 {
			parts = append(parts, fmt.Sprintf("[%d]=%g", i, v))
		}
	}
	return strings.Join(parts, " ")
}

func serve(ctx *cli.Context) error {
	m, err := loadManifest(ctx)
	if err != nil {
		return err
	}
	registry := metrics.NewRegistry()
	s, err := sim.FromManifest(m, registry)
	if err != nil {
		return err
	}
	st, err := store.Open(m.SavePath())
	if err != nil {
		return err
	}
	defer st.Close()

	if ctx.Bool("restore") {
		err := s.Restore(context.Background(), st, "")
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	opts := []server.ServerOption{server.WithStore(st), server.WithRegistry(registry)}
	if !ctx.Bool("paused") {
		opts = append(opts, server.WithTickRate(m.World.TickRate))
	}
	srv := server.New(s, opts...)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		srv.Stop()
	}()

	addr := ctx.String("addr")
	if addr == "" {
		addr = m.Server.Addr
	}
	return srv.ListenAndServe(addr)
}

func saves(ctx *cli.Context) error {
	m, err := loadManifest(ctx)
	if err != nil {
		return err
	}
	st, err := store.Open(m.SavePath())
	if err != nil {
		return err
	}
	defer st.Close()

	snaps, err := st.List(context.Background())
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		fmt.Printf("%s  %s  %3d entities  %s\n",
			snap.ID, snap.CreatedAt.Format("2006-01-02 15:04:05"), snap.Entities, snap.Label)
	}
	return nil
}

func lsp(ctx *cli.Context) error {
	limits := block.DefaultLimits().Limits
	if m, err := loadManifest(ctx); err == nil {
		limits = m.Limits.Limits
	}
	return server.NewLSP(limits).Run()
}
