package manager

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"llmctl/internal/engine"
	"llmctl/pkg/types"
)

// Generate runs a synchronous completion on the live handle. Omitted request
// fields fall back to the [model] section. The handle leased at admission is
// used for the whole request even if the model is unloaded meanwhile.
func (m *Manager) Generate(ctx context.Context, req types.GenerateRequest) (types.GenerateResponse, error) {
	if !m.ModelLoaded() {
		return types.GenerateResponse{}, modelNotLoadedError{}
	}
	mc := m.store.Get().Model
	stream := mc.Streaming
	if req.Stream != nil {
		stream = *req.Stream
	}
	if stream {
		return types.GenerateResponse{}, invalidRequestError{msg: "Streaming is not supported; only synchronous generation is available"}
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return types.GenerateResponse{}, invalidRequestError{msg: "prompt is required"}
	}
	params := engine.Params{
		MaxTokens:   mc.MaxTokens,
		Temperature: mc.Temperature,
		TopP:        mc.TopP,
		Stop:        req.Stop,
	}
	if req.MaxTokens != nil {
		params.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		params.TopP = *req.TopP
	}
	if params.MaxTokens <= 0 {
		return types.GenerateResponse{}, invalidRequestError{msg: "max_tokens must be positive"}
	}

	release, err := m.admit(ctx)
	if err != nil {
		return types.GenerateResponse{}, err
	}
	defer release()

	lh, err := m.acquire()
	if err != nil {
		return types.GenerateResponse{}, err
	}
	defer lh.done()

	start := time.Now()
	c, err := lh.h.Complete(ctx, req.Prompt, params)
	if err != nil {
		m.log.Error().Err(err).Dur("took", time.Since(start)).Msg("generation failed")
		return types.GenerateResponse{}, engineError{op: "generate", err: err}
	}
	m.log.Debug().Dur("took", time.Since(start)).Int("tokens", c.Usage.CompletionTokens).Msg("generation done")
	return types.GenerateResponse{
		ID:      "cmpl-" + uuid.NewString(),
		Object:  "text_completion",
		Created: start.Unix(),
		Model:   lh.path,
		Choices: []types.Choice{{
			Text:         c.Text,
			Index:        0,
			Logprobs:     nil,
			FinishReason: c.FinishReason,
		}},
		Usage: types.Usage{
			PromptTokens:     c.Usage.PromptTokens,
			CompletionTokens: c.Usage.CompletionTokens,
			TotalTokens:      c.Usage.TotalTokens,
		},
	}, nil
}
