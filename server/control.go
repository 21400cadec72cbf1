package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"connectrpc.com/connect"

	"github.com/chazu/logicproc/block"
	"github.com/chazu/logicproc/compiler"
	"github.com/chazu/logicproc/sim"
	"github.com/chazu/logicproc/store"
	"github.com/chazu/logicproc/vm"
)

// ControlServiceName is the fully-qualified name of the control service.
const ControlServiceName = "logicproc.v1.ControlService"

// Procedure paths of the control service.
const (
	ControlSetCodeProcedure    = "/" + ControlServiceName + "/SetCode"
	ControlToggleLinkProcedure = "/" + ControlServiceName + "/ToggleLink"
	ControlInspectProcedure    = "/" + ControlServiceName + "/Inspect"
	ControlSaveProcedure       = "/" + ControlServiceName + "/Save"
	ControlRestoreProcedure    = "/" + ControlServiceName + "/Restore"
	ControlTickProcedure       = "/" + ControlServiceName + "/Tick"
)

// maxTicksPerRequest bounds a single Tick request.
const maxTicksPerRequest = 100_000

// ControlService edits and inspects logic entities in a running world.
type ControlService struct {
	worker *Worker
	store  *store.Store
}

// NewControlService creates a ControlService. st may be nil, in which
// case Save and Restore fail with FailedPrecondition.
func NewControlService(worker *Worker, st *store.Store) *ControlService {
	return &ControlService{worker: worker, store: st}
}

// NewControlServiceHandler builds an HTTP handler for svc. It returns the
// path on which to mount the handler and the handler itself.
func NewControlServiceHandler(svc *ControlService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithCBOR()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(ControlSetCodeProcedure, connect.NewUnaryHandler(ControlSetCodeProcedure, svc.SetCode, opts...))
	mux.Handle(ControlToggleLinkProcedure, connect.NewUnaryHandler(ControlToggleLinkProcedure, svc.ToggleLink, opts...))
	mux.Handle(ControlInspectProcedure, connect.NewUnaryHandler(ControlInspectProcedure, svc.Inspect, opts...))
	mux.Handle(ControlSaveProcedure, connect.NewUnaryHandler(ControlSaveProcedure, svc.Save, opts...))
	mux.Handle(ControlRestoreProcedure, connect.NewUnaryHandler(ControlRestoreProcedure, svc.Restore, opts...))
	mux.Handle(ControlTickProcedure, connect.NewUnaryHandler(ControlTickProcedure, svc.Tick, opts...))
	return "/" + ControlServiceName + "/", mux
}

// SetCode replaces an entity's source. Variables carry over by name.
func (s *ControlService) SetCode(
	ctx context.Context,
	req *connect.Request[SetCodeRequest],
) (*connect.Response[SetCodeResponse], error) {
	pos := packPoint(req.Msg.Pos)
	result, err := s.worker.Do(func(w *sim.Sim) any {
		e, ok := w.Entity(pos)
		if !ok {
			return nil
		}
		if err := e.SetCode(req.Msg.Code); err != nil {
			return err
		}
		// Hits the cache entry the entity just filled.
		resp := &SetCodeResponse{}
		_, diags, err := w.Cache().Assemble(req.Msg.Code, compiler.Options{Limits: w.Limits().Limits})
		for _, d := range diags {
			resp.Diagnostics = append(resp.Diagnostics, d.String())
		}
		if err != nil {
			resp.Error = err.Error()
		}
		return resp
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	switch r := result.(type) {
	case nil:
		return nil, notFound(req.Msg.Pos)
	case error:
		return nil, connect.NewError(connect.CodeInvalidArgument, r)
	}
	return connect.NewResponse(result.(*SetCodeResponse)), nil
}

// ToggleLink adds or removes one link.
func (s *ControlService) ToggleLink(
	ctx context.Context,
	req *connect.Request[ToggleLinkRequest],
) (*connect.Response[ToggleLinkResponse], error) {
	pos := packPoint(req.Msg.Pos)
	target := packPoint(req.Msg.Target)
	result, err := s.worker.Do(func(w *sim.Sim) any {
		e, ok := w.Entity(pos)
		if !ok {
			return nil
		}
		changed := e.ToggleLink(target)
		return &ToggleLinkResponse{Changed: changed, Links: points(e.Links())}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if result == nil {
		return nil, notFound(req.Msg.Pos)
	}
	return connect.NewResponse(result.(*ToggleLinkResponse)), nil
}

// Inspect returns an entity's source, links, counter, variables, memory
// and a disassembly of its loaded program.
func (s *ControlService) Inspect(
	ctx context.Context,
	req *connect.Request[InspectRequest],
) (*connect.Response[InspectResponse], error) {
	pos := packPoint(req.Msg.Pos)
	result, err := s.worker.Do(func(w *sim.Sim) any {
		e, ok := w.Entity(pos)
		if !ok {
			return nil
		}
		return inspect(e)
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if result == nil {
		return nil, notFound(req.Msg.Pos)
	}
	return connect.NewResponse(result.(*InspectResponse)), nil
}

func inspect(e *block.Entity) *InspectResponse {
	ex := e.Executor()
	resp := &InspectResponse{
		Type:    e.Type().Name,
		Code:    e.Code(),
		Links:   points(e.Links()),
		Counter: ex.Counter(),
		Memory:  slices.Clone(ex.Memory()),
		Text:    ex.Text(),
	}
	for _, v := range ex.Vars().All() {
		resp.Variables = append(resp.Variables, Variable{
			Name:     v.Name,
			Value:    v.Value.String(),
			Constant: v.Constant,
		})
	}
	prog := &vm.Program{Instructions: ex.Instructions(), Vars: ex.Vars()}
	resp.Disassembly = prog.DisassembleWithName(e.String())
	return resp
}

// Save snapshots every entity into the store.
func (s *ControlService) Save(
	ctx context.Context,
	req *connect.Request[SaveRequest],
) (*connect.Response[SaveResponse], error) {
	if s.store == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("no save store configured"))
	}
	result, err := s.worker.Do(func(w *sim.Sim) any {
		records, err := w.Snapshot()
		if err != nil {
			return err
		}
		return records
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if err, ok := result.(error); ok {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	records := result.([]store.Record)

	id, err := s.store.Save(ctx, req.Msg.Label, records)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	log.Infof("saved %d entities as %s", len(records), id)
	return connect.NewResponse(&SaveResponse{ID: id, Entities: len(records)}), nil
}

// Restore applies a stored snapshot to the running world.
func (s *ControlService) Restore(
	ctx context.Context,
	req *connect.Request[RestoreRequest],
) (*connect.Response[RestoreResponse], error) {
	if s.store == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("no save store configured"))
	}
	id := req.Msg.ID
	if id == "" {
		latest, err := s.store.Latest(ctx)
		if err != nil {
			return nil, storeError(err)
		}
		id = latest
	}
	records, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}

	result, err := s.worker.Do(func(w *sim.Sim) any {
		return w.Apply(records)
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if err, ok := result.(error); ok {
		return nil, connect.NewError(connect.CodeDataLoss, err)
	}
	log.Infof("restored %d entities from %s", len(records), id)
	return connect.NewResponse(&RestoreResponse{ID: id, Entities: len(records)}), nil
}

// Tick advances the world.
func (s *ControlService) Tick(
	ctx context.Context,
	req *connect.Request[TickRequest],
) (*connect.Response[TickResponse], error) {
	n := req.Msg.Count
	if n < 0 || n > maxTicksPerRequest {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("count must be between 0 and %d", maxTicksPerRequest))
	}
	result, err := s.worker.Do(func(w *sim.Sim) any {
		for range n {
			w.Tick(1)
		}
		return w.Ticks()
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&TickResponse{Ticks: result.(uint64)}), nil
}

func packPoint(p Point) int32 {
	return block.PackPos(p.X, p.Y)
}

func points(links []int32) []Point {
	out := make([]Point, len(links))
	for i, pos := range links {
		out[i].X, out[i].Y = block.UnpackPos(pos)
	}
	return out
}

func notFound(p Point) error {
	return connect.NewError(connect.CodeNotFound, fmt.Errorf("%w: %d,%d", sim.ErrNoEntity, p.X, p.Y))
}

func storeError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
