package generate

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeEndpoints_ExcludesDead(t *testing.T) {
	backend := &fakeBackend{fn: func(prompt, role, endpoint string) (string, error) {
		if endpoint == "http://dead:11434/api/chat" {
			return "", errors.New("connection refused")
		}
		return "指示です。", nil
	}}

	pool, err := ProbeEndpoints(context.Background(), backend, []string{
		"http://alive-1:11434/api/chat",
		"http://dead:11434/api/chat",
		"http://alive-2:11434/api/chat",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"http://alive-1:11434/api/chat",
		"http://alive-2:11434/api/chat",
	}, pool.Live())
	assert.Equal(t, 2, pool.Size())
}

func TestProbeEndpoints_AllDead(t *testing.T) {
	backend := &fakeBackend{fn: func(prompt, role, endpoint string) (string, error) {
		return "", errors.New("connection refused")
	}}

	_, err := ProbeEndpoints(context.Background(), backend, []string{
		"http://dead-1:11434/api/chat",
		"http://dead-2:11434/api/chat",
	}, "")
	require.Error(t, err)
	assert.Equal(t, ErrNoAvailableEndpoints, errors.Cause(err))
}

func TestPool_RoundRobin(t *testing.T) {
	pool, err := NewPool([]string{"a", "b", "c"})
	require.NoError(t, err)

	var got []string
	for i := 0; i < 7; i++ {
		got = append(got, pool.Next())
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c", "a"}, got)
}

func TestNewPool_Empty(t *testing.T) {
	_, err := NewPool(nil)
	assert.Equal(t, ErrNoAvailableEndpoints, err)
}
