package llm

import (
	"context"
	"fmt"

	"github.com/raine/ai-camera-cloud/internal/imaging"
	"github.com/rs/zerolog/log"
)

const (
	SimulationModelID   = "simulation"
	simulatedConfidence = 0.85
)

const simulatedDescription = "这是一个%s的物体，具有以下特征：外观精美，材质优良，功能实用。"

// SimulatedModel answers with a templated description when no backend model
// is loaded. Output is deterministic for a given prompt.
type SimulatedModel struct{}

var _ Analyzer = (*SimulatedModel)(nil)

func NewSimulatedModel() *SimulatedModel {
	return &SimulatedModel{}
}

func (m *SimulatedModel) Analyze(ctx context.Context, img *imaging.Image, prompt string, opts Options) (*Analysis, error) {
	description := fmt.Sprintf(simulatedDescription, prompt)

	log.Debug().
		Str("model", SimulationModelID).
		Str("prompt", prompt).
		Msg("simulated vision analysis")

	return &Analysis{
		Description: description,
		Tags:        ExtractTags(description),
		Confidence:  simulatedConfidence,
		Model:       SimulationModelID,
	}, nil
}

func (m *SimulatedModel) Live() bool {
	return false
}
