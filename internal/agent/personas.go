package agent

import (
	"embed"
	"fmt"

	"github.com/healthline/healthline/internal/agent/memory"
)

//go:embed instructions/*.txt
var instructions embed.FS

// Instruction returns the embedded instruction file instructions/<name>.txt.
func Instruction(name string) (string, error) {
	b, err := instructions.ReadFile("instructions/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("instruction %s: %w", name, err)
	}
	return string(b), nil
}

// Persona names double as app names for sessions and memory.
const (
	ConciergeApp = "Base Agent"
	DoctorApp    = "Doctor Assistant Agent"
)

type PersonaConfig struct {
	Model    Model
	Memory   memory.Searcher
	MaxSteps int
	// DBTools are the record tools owned by the db_assistant sub-agent.
	DBTools []Tool
}

func NewDBAssistant(cfg PersonaConfig) (*Agent, error) {
	text, err := Instruction("db_assistant")
	if err != nil {
		return nil, err
	}
	return &Agent{
		Name:        "db_assistant",
		Description: "Creates, reads, updates and deletes patient, carer, condition, medication and user records.",
		Instruction: text,
		Model:       cfg.Model,
		Tools:       cfg.DBTools,
		MaxSteps:    cfg.MaxSteps,
	}, nil
}

func NewConcierge(cfg PersonaConfig) (*Agent, error) {
	return newPersona(cfg, "concierge_assistant", "A helpful healthcare assistant.", "concierge")
}

func NewDoctorAssistant(cfg PersonaConfig) (*Agent, error) {
	return newPersona(cfg, "doctor_assistant", "Assistant for doctors only.", "doctor_assistant")
}

func newPersona(cfg PersonaConfig, name, description, instructionName string) (*Agent, error) {
	text, err := Instruction(instructionName)
	if err != nil {
		return nil, err
	}
	db, err := NewDBAssistant(cfg)
	if err != nil {
		return nil, err
	}
	tools := []Tool{IdentifyUserTool(), NewAgentTool(db)}
	if cfg.Memory != nil {
		tools = append(tools, LoadMemoryTool(cfg.Memory))
	}
	return &Agent{
		Name:          name,
		Description:   description,
		Instruction:   text,
		Model:         cfg.Model,
		Tools:         tools,
		MaxSteps:      cfg.MaxSteps,
		Memory:        cfg.Memory,
		PreloadMemory: cfg.Memory != nil,
	}, nil
}
