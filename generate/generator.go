package generate

import (
	"context"
	"net/url"
	"strings"
)

// Backend issues one single-turn chat call against an endpoint. It is
// implemented by ollama.Client; tests inject fakes.
type Backend interface {
	Call(ctx context.Context, prompt, role, endpoint string) (string, error)
}

// Generator runs the per-entry protocol: seed prompt -> instruction ->
// optional auxiliary input -> response. Each step depends on the previous
// one succeeding; only the input step is allowed to fail.
type Generator struct {
	backend     Backend
	seedPrompt  string
	multiServer bool
}

// NewGenerator ...
func NewGenerator(backend Backend, seedPrompt string, multiServer bool) *Generator {
	if seedPrompt == "" {
		seedPrompt = DefaultSeedPrompt
	}
	return &Generator{
		backend:     backend,
		seedPrompt:  seedPrompt,
		multiServer: multiServer,
	}
}

// Generate produces one entry against the given endpoint, or an abandonment.
// A backend failure at the instruction or response step abandons the entry;
// a failure at the input step degrades to an empty input.
func (g *Generator) Generate(ctx context.Context, endpoint string) Outcome {
	seeded, err := g.backend.Call(ctx, g.seedPrompt, "user", endpoint)
	if err != nil {
		return Abandoned(AbandonBackendUnavailable, err)
	}

	instruction := ExtractInstruction(seeded)
	if instruction == "" {
		instruction = strings.TrimSpace(seeded)
	}
	if instruction == "" {
		return Abandoned(AbandonMalformedInstruction, nil)
	}

	input := g.optionalInput(ctx, instruction, endpoint)

	prompt := instruction
	if input != "" {
		prompt = instruction + "\n\n入力:\n" + input
	}

	output, err := g.backend.Call(ctx, prompt, "user", endpoint)
	if err != nil {
		return Abandoned(AbandonBackendUnavailable, err)
	}

	entry := Entry{
		Instruction: instruction,
		Input:       input,
		Output:      output,
	}
	if g.multiServer {
		entry.Server = ServerName(endpoint)
	}
	return Committed(entry)
}

// optionalInput asks the backend whether the instruction needs an auxiliary
// input example. Failures here are recovered as "no input required" and
// never surfaced.
func (g *Generator) optionalInput(ctx context.Context, instruction, endpoint string) string {
	result, err := g.backend.Call(ctx, inputPromptPrefix+instruction+"\n", "user", endpoint)
	if err != nil {
		return ""
	}
	return sanitizeInput(result)
}

// ServerName extracts a short host:port identifier from an endpoint URL for
// provenance tagging.
func ServerName(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}
