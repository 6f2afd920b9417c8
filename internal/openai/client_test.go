package openai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	calls      [][]string
	dimensions int
	err        error
}

func (f *fakeAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dimensions)
		vec[0] = float32(len(texts[i])) // deterministic per input
		out[i] = vec
	}
	return out, nil
}

func newTestClient(api EmbeddingAPI) *Client {
	return &Client{api: api, dimensions: 4}
}

func TestEmbed_OrderPreserving(t *testing.T) {
	api := &fakeAPI{dimensions: 4}
	c := newTestClient(api)

	vectors, err := c.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(2), vectors[1][0])
	assert.Equal(t, float32(3), vectors[2][0])
}

func TestEmbed_SplitsLargeInputIntoBatches(t *testing.T) {
	api := &fakeAPI{dimensions: 4}
	c := newTestClient(api)

	texts := make([]string, maxBatchSize+20)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	vectors, err := c.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, len(texts))
	require.Len(t, api.calls, 2)
	assert.Len(t, api.calls[0], maxBatchSize)
	assert.Len(t, api.calls[1], 20)
}

func TestEmbed_EmptyInputRejected(t *testing.T) {
	c := newTestClient(&fakeAPI{dimensions: 4})

	_, err := c.Embed(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = c.Embed(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestEmbed_WrongDimensionsRejected(t *testing.T) {
	api := &fakeAPI{dimensions: 3}
	c := newTestClient(api) // expects 4

	_, err := c.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestEmbed_APIErrorPropagates(t *testing.T) {
	api := &fakeAPI{dimensions: 4, err: errors.New("rate limited")}
	c := newTestClient(api)

	_, err := c.Embed(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "rate limited")
}

func TestEmbedQuery(t *testing.T) {
	c := newTestClient(&fakeAPI{dimensions: 4})

	vec, err := c.EmbedQuery(context.Background(), "chest pain")
	require.NoError(t, err)
	assert.Len(t, vec, 4)

	_, err = c.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}
