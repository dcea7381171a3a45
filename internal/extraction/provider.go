package extraction

import "context"

// ActionGenerateContent is the action a model must advertise to be usable.
const ActionGenerateContent = "generateContent"

// ModelInfo describes one model visible to a credential.
type ModelInfo struct {
	Name    string
	Actions []string
}

// GenerateRequest is a single prompt+image call against a chosen model.
type GenerateRequest struct {
	Model       string
	Prompt      string
	Image       []byte
	MimeType    string
	Temperature float32
	// JSON asks the provider to constrain the reply to application/json.
	JSON bool
}

// Provider is the narrow surface of a vision-capable language model service.
type Provider interface {
	ListModels(ctx context.Context, credential string) ([]ModelInfo, error)
	Generate(ctx context.Context, credential string, req GenerateRequest) (string, error)
}
