package providers

import "context"

//go:generate mockgen -source=provider.go -destination=mocks/provider_mock.go -package=mocks

// Generator answers a natural-language prompt with live web-search grounding.
type Generator interface {
	Name() string
	Model() string
	Generate(ctx context.Context, prompt string) (Response, error)
}

// Response is the upstream answer. Text is the model's free-form output and
// Raw is the full response document, which may carry citation metadata.
type Response struct {
	Text string
	Raw  []byte
}
