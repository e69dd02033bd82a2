package action

import (
	"context"
	"fmt"

	"github.com/healthline/healthline/internal/agent"
	"github.com/healthline/healthline/internal/domain/account"
	"github.com/healthline/healthline/internal/domain/clinical"
	"github.com/healthline/healthline/internal/domain/identity"
	"github.com/healthline/healthline/internal/domain/medication"
	"github.com/healthline/healthline/internal/platform/civil"
)

type Deps struct {
	Patients    identity.PatientRepository
	Carers      identity.CarerRepository
	Conditions  clinical.ConditionRepository
	Medications medication.ScheduleRepository
	Accounts    *account.Service
	// Today defaults to civil.Today.
	Today func() civil.Date
}

// Registry holds the dispatchers by tool name.
type Registry struct {
	order  []*Dispatcher
	byTool map[string]*Dispatcher
}

func NewRegistry(deps Deps) *Registry {
	r := &Registry{byTool: map[string]*Dispatcher{}}
	for _, d := range []*Dispatcher{
		NewPatientDispatcher(deps.Patients, deps.Accounts),
		NewCarerDispatcher(deps.Carers),
		NewConditionDispatcher(deps.Conditions, deps.Today),
		NewMedicationDispatcher(deps.Medications),
		NewUserDispatcher(deps.Accounts),
	} {
		r.order = append(r.order, d)
		r.byTool[d.Tool()] = d
	}
	return r
}

func (r *Registry) Lookup(tool string) (*Dispatcher, bool) {
	d, ok := r.byTool[tool]
	return d, ok
}

func (r *Registry) Dispatchers() []*Dispatcher { return append([]*Dispatcher(nil), r.order...) }

// AgentTools exposes every dispatcher as a function tool taking
// {action, payload}.
func (r *Registry) AgentTools() []agent.Tool {
	tools := make([]agent.Tool, 0, len(r.order))
	for _, d := range r.order {
		tools = append(tools, dispatcherTool(d))
	}
	return tools
}

func dispatcherTool(d *Dispatcher) agent.Tool {
	params := &agent.Schema{
		Type: agent.TypeObject,
		Properties: map[string]*agent.Schema{
			"action": {
				Type:        agent.TypeString,
				Description: "The operation to perform.",
				Enum:        d.Actions(),
			},
			"payload": {
				Type:        agent.TypeObject,
				Description: "Fields of the record, keyed by column name.",
			},
		},
		Required: []string{"action"},
	}
	return agent.NewFuncTool(d.Tool(), d.Description(), params,
		func(ctx context.Context, args map[string]any) (map[string]any, error) {
			action, _ := args["action"].(string)
			var data map[string]any
			switch v := args["payload"].(type) {
			case map[string]any:
				data = v
			case nil:
			default:
				return map[string]any{
					"status":  StatusError,
					"message": fmt.Sprintf("payload must be an object, got %T", v),
				}, nil
			}
			return agent.ToMap(d.Dispatch(ctx, action, data))
		})
}
