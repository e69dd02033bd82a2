package action

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"

	"github.com/healthline/healthline/internal/platform/auth"
	"github.com/healthline/healthline/internal/platform/crud"
	"github.com/healthline/healthline/internal/platform/metrics"
)

type handlerFunc func(ctx context.Context, p payload) (any, error)

type route struct {
	// roles that may run the action; empty means every caller.
	roles []string
	fn    handlerFunc
}

// Dispatcher routes the actions of one record domain.
type Dispatcher struct {
	tool        string
	description string
	actions     []string
	routes      map[string]route
}

func newDispatcher(tool, description string) *Dispatcher {
	return &Dispatcher{tool: tool, description: description, routes: map[string]route{}}
}

func (d *Dispatcher) handle(action string, fn handlerFunc, roles ...string) {
	d.actions = append(d.actions, action)
	d.routes[action] = route{roles: roles, fn: fn}
}

// Tool is the name the dispatcher is exposed under, e.g. handle_patient_action.
func (d *Dispatcher) Tool() string { return d.tool }

func (d *Dispatcher) Description() string { return d.description }

// Actions lists the supported action names in registration order.
func (d *Dispatcher) Actions() []string { return append([]string(nil), d.actions...) }

// Dispatch runs action with payload as the caller bound to ctx. It never
// panics and never returns a Go error: every outcome is a Result.
func (d *Dispatcher) Dispatch(ctx context.Context, action string, data map[string]any) (res Result) {
	action = strings.ToLower(strings.TrimSpace(action))
	label := action

	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().
				Str("tool", d.tool).
				Str("action", action).
				Str("panic", fmt.Sprint(r)).
				Str("stack", string(debug.Stack())).
				Msg("action panicked")
			res = Result{Status: StatusError, Message: msgInternal}
		}
		metrics.RecordActionResult(d.tool, label, res.Status)
	}()

	rt, ok := d.routes[action]
	if !ok {
		label = "unsupported"
		return fromError(ctx, d.tool, action, unsupported(action))
	}

	caller := auth.CallerFromContext(ctx)
	if len(rt.roles) > 0 && !caller.HasRole(rt.roles...) {
		zerolog.Ctx(ctx).Warn().
			Str("tool", d.tool).
			Str("action", action).
			Str("role", caller.Role).
			Msg("action refused")
		return fromError(ctx, d.tool, action, unauthorized(caller.Role, action))
	}

	if data == nil {
		data = map[string]any{}
	}
	out, err := rt.fn(ctx, payload(data))
	if err != nil {
		return fromError(ctx, d.tool, action, err)
	}
	return success(action, out)
}

// -- shared CRUD actions --

func readByID[T, P any](svc *crud.Service[T, P], idField string) handlerFunc {
	return func(ctx context.Context, p payload) (any, error) {
		id, err := requireID(p, idField)
		if err != nil {
			return nil, err
		}
		return svc.Get(ctx, id)
	}
}

func deleteByID[T, P any](svc *crud.Service[T, P], idField string) handlerFunc {
	return func(ctx context.Context, p payload) (any, error) {
		id, err := requireID(p, idField)
		if err != nil {
			return nil, err
		}
		if _, err := svc.Delete(ctx, id); err != nil {
			return nil, err
		}
		return map[string]any{idField: id}, nil
	}
}

func listAll[T, P any](svc *crud.Service[T, P]) handlerFunc {
	return func(ctx context.Context, _ payload) (any, error) {
		rows, err := svc.List(ctx)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []*T{}
		}
		return rows, nil
	}
}

// patchSpec describes how an update payload maps onto a typed patch.
type patchSpec[P any] struct {
	idField string
	// fields accepted besides idField.
	fields []string
	// required is reported when the payload carries none of fields.
	required []string
	read   func(r *reader) P
	// check, when set, validates the patch against the stored record.
	check func(ctx context.Context, id int64, patch P) error
}

func updateByID[T, P any](svc *crud.Service[T, P], spec patchSpec[P]) handlerFunc {
	return func(ctx context.Context, p payload) (any, error) {
		id, err := requireID(p, spec.idField)
		if err != nil {
			return nil, err
		}
		if !p.anyPresent(spec.fields...) {
			return nil, missingFields(msgProvideUpdate, spec.required...)
		}
		if err := p.only(append([]string{spec.idField}, spec.fields...)...); err != nil {
			return nil, err
		}
		r := newReader(p)
		patch := spec.read(r)
		if r.err != nil {
			return nil, r.err
		}
		if spec.check != nil {
			if err := spec.check(ctx, id, patch); err != nil {
				return nil, err
			}
		}
		return svc.Update(ctx, id, patch)
	}
}

func requireID(p payload, field string) (int64, error) {
	if p.absent(field) {
		return 0, missingFields(field+" is required", field)
	}
	r := newReader(p)
	id := r.id(field)
	if r.err != nil {
		return 0, r.err
	}
	return *id, nil
}
