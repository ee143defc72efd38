package generate

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendCall struct {
	prompt   string
	role     string
	endpoint string
}

// fakeBackend scripts responses per call and records every call made.
type fakeBackend struct {
	m     sync.Mutex
	calls []backendCall
	fn    func(prompt, role, endpoint string) (string, error)
}

func (f *fakeBackend) Call(ctx context.Context, prompt, role, endpoint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.m.Lock()
	f.calls = append(f.calls, backendCall{prompt: prompt, role: role, endpoint: endpoint})
	f.m.Unlock()
	return f.fn(prompt, role, endpoint)
}

func (f *fakeBackend) callsTo(endpoint string, prompt string) int {
	f.m.Lock()
	defer f.m.Unlock()
	var n int
	for _, c := range f.calls {
		if c.endpoint == endpoint && c.prompt == prompt {
			n++
		}
	}
	return n
}

// scriptedBackend distinguishes the three protocol steps by prompt shape.
func scriptedBackend(seed, input, output string, seedErr, inputErr, outputErr error) *fakeBackend {
	return &fakeBackend{fn: func(prompt, role, endpoint string) (string, error) {
		switch {
		case prompt == DefaultSeedPrompt:
			return seed, seedErr
		case strings.HasPrefix(prompt, inputPromptPrefix):
			return input, inputErr
		default:
			return output, outputErr
		}
	}}
}

func TestGenerate_FullProtocol(t *testing.T) {
	backend := scriptedBackend(
		"\n料理のレシピを1つ書いてください。\n余計な行",
		"入力: カレーライス",
		"材料: ...",
		nil, nil, nil)

	gen := NewGenerator(backend, "", false)
	out := gen.Generate(context.Background(), "http://localhost:11434/api/chat")
	require.False(t, out.Abandoned)

	assert.Equal(t, "料理のレシピを1つ書いてください。", out.Entry.Instruction)
	assert.Equal(t, "カレーライス", out.Entry.Input)
	assert.Equal(t, "材料: ...", out.Entry.Output)
	assert.Equal(t, "", out.Entry.Server)

	// the response prompt carries the labeled input block
	last := backend.calls[len(backend.calls)-1]
	assert.Equal(t, "料理のレシピを1つ書いてください。\n\n入力:\nカレーライス", last.prompt)
	assert.Equal(t, "user", last.role)
}

func TestGenerate_NoInputNeeded(t *testing.T) {
	backend := scriptedBackend("挨拶を1文で書いてください。", "''", "こんにちは。", nil, nil, nil)

	gen := NewGenerator(backend, "", false)
	out := gen.Generate(context.Background(), "http://localhost:11434/api/chat")
	require.False(t, out.Abandoned)

	assert.Equal(t, "", out.Entry.Input)
	// with no input the instruction alone is the response prompt
	last := backend.calls[len(backend.calls)-1]
	assert.Equal(t, "挨拶を1文で書いてください。", last.prompt)
}

func TestGenerate_InputFailureIsNonFatal(t *testing.T) {
	backend := scriptedBackend("要約してください。", "", "要約です。", nil, errors.New("input step down"), nil)

	gen := NewGenerator(backend, "", false)
	out := gen.Generate(context.Background(), "http://localhost:11434/api/chat")
	require.False(t, out.Abandoned)
	assert.Equal(t, "", out.Entry.Input)
	assert.Equal(t, "要約です。", out.Entry.Output)
}

func TestGenerate_SeedFailureAbandons(t *testing.T) {
	backend := scriptedBackend("", "", "", errors.New("503"), nil, nil)

	gen := NewGenerator(backend, "", false)
	out := gen.Generate(context.Background(), "http://localhost:11434/api/chat")
	require.True(t, out.Abandoned)
	assert.Equal(t, AbandonBackendUnavailable, out.Reason)
	assert.Error(t, out.Err)
}

func TestGenerate_EmptyInstructionAbandons(t *testing.T) {
	backend := scriptedBackend("\n\n   ", "", "unused", nil, nil, nil)

	gen := NewGenerator(backend, "", false)
	out := gen.Generate(context.Background(), "http://localhost:11434/api/chat")
	require.True(t, out.Abandoned)
	assert.Equal(t, AbandonMalformedInstruction, out.Reason)
	assert.NoError(t, out.Err)
	// no further protocol steps after a malformed instruction
	assert.Len(t, backend.calls, 1)
}

func TestGenerate_ResponseFailureAbandons(t *testing.T) {
	backend := scriptedBackend("タスクを書いてください。", "", "", nil, nil, errors.New("timeout"))

	gen := NewGenerator(backend, "", false)
	out := gen.Generate(context.Background(), "http://localhost:11434/api/chat")
	require.True(t, out.Abandoned)
	assert.Equal(t, AbandonBackendUnavailable, out.Reason)
}

func TestGenerate_MultiServerProvenance(t *testing.T) {
	backend := scriptedBackend("タスクを書いてください。", "", "done", nil, nil, nil)

	gen := NewGenerator(backend, "", true)
	out := gen.Generate(context.Background(), "http://192.168.1.252:11434/api/chat")
	require.False(t, out.Abandoned)
	assert.Equal(t, "192.168.1.252:11434", out.Entry.Server)
}

func TestServerName(t *testing.T) {
	assert.Equal(t, "localhost:11434", ServerName("http://localhost:11434/api/chat"))
	assert.Equal(t, "192.168.1.252:11434", ServerName("http://192.168.1.252:11434/api/chat"))
	assert.Equal(t, "not a url", ServerName("not a url"))
}
