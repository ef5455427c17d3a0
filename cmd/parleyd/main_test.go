package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveGenerator_ExplicitOpenAI(t *testing.T) {
	t.Parallel()
	g, err := resolveGenerator(context.Background(), "openai", "", "gpt-4o-mini", "sk-test", "")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", g.ModelID())
}

func TestResolveGenerator_AutoDetectOpenAI(t *testing.T) {
	t.Parallel()
	g, err := resolveGenerator(context.Background(), "", "", "gpt-4o-mini", "sk-test", "")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", g.ModelID())
}

func TestResolveGenerator_BaseURLForcesOpenAI(t *testing.T) {
	t.Parallel()
	g, err := resolveGenerator(context.Background(), "", "http://localhost:8080/v1", "local-model", "", "")
	require.NoError(t, err)
	assert.Equal(t, "local-model", g.ModelID())
}

func TestResolveGenerator_UnknownProvider(t *testing.T) {
	t.Parallel()
	_, err := resolveGenerator(context.Background(), "anthropic", "", "model", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestResolveGenerator_NoKeys(t *testing.T) {
	t.Parallel()
	_, err := resolveGenerator(context.Background(), "", "", "model", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider configured")
}

func TestResolveGenerator_MissingModel(t *testing.T) {
	t.Parallel()
	_, err := resolveGenerator(context.Background(), "openai", "", "", "sk-test", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model is required")
}
