package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/rcrowley/go-metrics"

	"github.com/chazu/logicproc/sim"
	"github.com/chazu/logicproc/store"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure
// ---------------------------------------------------------------------------

type testEnv struct {
	Sim      *sim.Sim
	Server   *Server
	Client   *ControlClient
	Registry metrics.Registry
	URL      string
}

// newTestEnv starts a world with one processor at 0,0 and a switch at
// 1,0, served over httptest.
func newTestEnv(t *testing.T, opts ...ServerOption) *testEnv {
	t.Helper()

	r := metrics.NewRegistry()
	s, err := sim.New(sim.Config{Registry: r})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.PlaceLogic("micro-processor", 0, 0, 1, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PlaceBuilding("switch", 1, 0, 1, 1); err != nil {
		t.Fatal(err)
	}

	srv := New(s, append([]ServerOption{WithRegistry(r)}, opts...)...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})

	return &testEnv{
		Sim:      s,
		Server:   srv,
		Client:   NewControlClient(ts.Client(), ts.URL),
		Registry: r,
		URL:      ts.URL,
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func bg() context.Context {
	return context.Background()
}

func variable(resp *InspectResponse, name string) (Variable, bool) {
	for _, v := range resp.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

// ---------------------------------------------------------------------------
// Control service
// ---------------------------------------------------------------------------

func TestControl_SetCodeTickInspect(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Client.SetCode(bg(), &SetCodeRequest{Code: "op add x x 1"})
	if err != nil {
		t.Fatalf("SetCode returned error: %v", err)
	}
	if len(resp.Diagnostics) != 0 || resp.Error != "" {
		t.Errorf("SetCode = %+v, want a clean assembly", resp)
	}

	tick, err := env.Client.Tick(bg(), &TickRequest{Count: 3})
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if tick.Ticks != 3 {
		t.Errorf("Ticks = %d, want 3", tick.Ticks)
	}

	got, err := env.Client.Inspect(bg(), &InspectRequest{})
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if got.Type != "micro-processor" || got.Code != "op add x x 1" {
		t.Errorf("Inspect = %q / %q", got.Type, got.Code)
	}
	x, ok := variable(got, "x")
	if !ok || x.Value != "3" || x.Constant {
		t.Errorf("x = %+v", x)
	}
	if this, ok := variable(got, "@this"); !ok || !this.Constant {
		t.Errorf("@this = %+v", this)
	}
	if len(got.Memory) != 16 {
		t.Errorf("len(Memory) = %d, want 16", len(got.Memory))
	}
	if !strings.Contains(got.Disassembly, "x = x + 1") {
		t.Errorf("Disassembly = %q", got.Disassembly)
	}
}

func TestControl_SetCodeDiagnostics(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Client.SetCode(bg(), &SetCodeRequest{Code: "bogus\nend"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Diagnostics) != 1 || !strings.HasPrefix(resp.Diagnostics[0], "line 1: warning") {
		t.Errorf("Diagnostics = %v", resp.Diagnostics)
	}

	resp, err = env.Client.SetCode(bg(), &SetCodeRequest{Code: "print \"open"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Error, "unterminated") {
		t.Errorf("Error = %q", resp.Error)
	}
}

func TestControl_SetCodeTooLarge(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Client.SetCode(bg(), &SetCodeRequest{Code: "set x 1"}); err != nil {
		t.Fatal(err)
	}

	big := strings.Repeat("#", env.Sim.Limits().MaxSourceBytes+1)
	_, err := env.Client.SetCode(bg(), &SetCodeRequest{Code: big})
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Fatalf("code = %v, want InvalidArgument (err = %v)", connect.CodeOf(err), err)
	}

	resp, err := env.Client.Inspect(bg(), &InspectRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Code != "set x 1" {
		t.Errorf("Code = %q, want the previous source", resp.Code)
	}
}

func TestControl_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Client.Inspect(bg(), &InspectRequest{Pos: Point{X: 9, Y: 9}})
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("Inspect missing entity: code = %v, err = %v", connect.CodeOf(err), err)
	}
	_, err = env.Client.SetCode(bg(), &SetCodeRequest{Pos: Point{X: 1, Y: 0}, Code: "end"})
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("SetCode on a plain building: code = %v", connect.CodeOf(err))
	}
}

func TestControl_ToggleLink(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.Client.ToggleLink(bg(), &ToggleLinkRequest{Target: Point{X: 1, Y: 0}})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Changed || len(resp.Links) != 1 || resp.Links[0] != (Point{X: 1, Y: 0}) {
		t.Errorf("first toggle = %+v", resp)
	}

	resp, err = env.Client.ToggleLink(bg(), &ToggleLinkRequest{Target: Point{X: 1, Y: 0}})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Changed || len(resp.Links) != 0 {
		t.Errorf("second toggle = %+v", resp)
	}
}

func TestControl_LinkDrivesBuilding(t *testing.T) {
	env := newTestEnv(t)
	ctx := bg()

	if _, err := env.Client.ToggleLink(ctx, &ToggleLinkRequest{Target: Point{X: 1, Y: 0}}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Client.SetCode(ctx, &SetCodeRequest{Code: "control enabled @0 0"}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Client.Tick(ctx, &TickRequest{Count: 1}); err != nil {
		t.Fatal(err)
	}

	enabled, err := env.Server.Worker().Do(func(s *sim.Sim) any {
		sw, _ := s.Grid().Building(packPoint(Point{X: 1, Y: 0}))
		return sw.Enabled()
	})
	if err != nil {
		t.Fatal(err)
	}
	if enabled.(bool) {
		t.Error("switch still enabled")
	}
}

func TestControl_SaveRestore(t *testing.T) {
	env := newTestEnv(t, WithStore(openStore(t)))
	ctx := bg()

	if _, err := env.Client.SetCode(ctx, &SetCodeRequest{Code: "op add x x 1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Client.Tick(ctx, &TickRequest{Count: 2}); err != nil {
		t.Fatal(err)
	}
	saved, err := env.Client.Save(ctx, &SaveRequest{Label: "two"})
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if saved.ID == "" || saved.Entities != 1 {
		t.Errorf("Save = %+v", saved)
	}

	if _, err := env.Client.Tick(ctx, &TickRequest{Count: 5}); err != nil {
		t.Fatal(err)
	}
	restored, err := env.Client.Restore(ctx, &RestoreRequest{})
	if err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}
	if restored.ID != saved.ID {
		t.Errorf("restored %s, want latest %s", restored.ID, saved.ID)
	}

	got, err := env.Client.Inspect(ctx, &InspectRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if x, _ := variable(got, "x"); x.Value != "2" {
		t.Errorf("x after restore = %q, want 2", x.Value)
	}

	_, err = env.Client.Restore(ctx, &RestoreRequest{ID: "missing"})
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("Restore missing: code = %v", connect.CodeOf(err))
	}
}

func TestControl_SaveWithoutStore(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Client.Save(bg(), &SaveRequest{})
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("code = %v, want FailedPrecondition", connect.CodeOf(err))
	}
}

func TestControl_TickBounds(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Client.Tick(bg(), &TickRequest{Count: -1})
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", connect.CodeOf(err))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Client.Tick(bg(), &TickRequest{Count: 1}); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(env.URL + MetricsPath)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "sim.ticks") {
		t.Errorf("metrics body missing sim.ticks: %s", body)
	}
}

// ---------------------------------------------------------------------------
// Worker
// ---------------------------------------------------------------------------

func newWorkerSim(t *testing.T) *sim.Sim {
	t.Helper()
	s, err := sim.New(sim.Config{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestWorker_Do(t *testing.T) {
	w := NewWorker(newWorkerSim(t), 0)
	defer w.Stop()

	got, err := w.Do(func(s *sim.Sim) any {
		s.Tick(1)
		return s.Ticks()
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.(uint64) != 1 {
		t.Errorf("Ticks = %v, want 1", got)
	}
}

func TestWorker_RecoversPanic(t *testing.T) {
	w := NewWorker(newWorkerSim(t), 0)
	defer w.Stop()

	_, err := w.Do(func(s *sim.Sim) any {
		panic("boom")
	})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v, want the panic value", err)
	}

	// The worker keeps serving after a panic.
	if _, err := w.Do(func(s *sim.Sim) any { return nil }); err != nil {
		t.Errorf("Do after panic: %v", err)
	}
}

func TestWorker_Stopped(t *testing.T) {
	w := NewWorker(newWorkerSim(t), 0)
	w.Stop()
	w.Stop()

	if _, err := w.Do(func(s *sim.Sim) any { return nil }); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("err = %v, want ErrWorkerStopped", err)
	}
}

func TestWorker_TickRate(t *testing.T) {
	w := NewWorker(newWorkerSim(t), 1000)
	defer w.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := w.Do(func(s *sim.Sim) any { return s.Ticks() })
		if err != nil {
			t.Fatal(err)
		}
		if got.(uint64) > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("ticker never advanced the world")
}
