// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder returns deterministic unit vectors derived from an FNV hash of
// the text, so equal texts embed identically and tests need no model server.
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("model unavailable")
//	}
//	provider := mock.NewMockProviderWithEmbedder(embedder)
//	shared := ai.NewShared(ai.DefaultConfig(), mock.Factory(provider))
package mock
