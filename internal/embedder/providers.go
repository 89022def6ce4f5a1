package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-large"
	DefaultLocalModel  = "local-embeddings"

	// Default endpoints
	DefaultJinaBaseURL   = "https://api.jina.ai/v1"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 3072
	LocalDimension  = 384

	// DefaultTimeout bounds a single provider call when no timeout is configured
	DefaultTimeout = 60 * time.Second
)

// modelDimensions lists the native output size of known models
var modelDimensions = map[string]int{
	"text-embedding-3-large":     3072,
	"text-embedding-3-small":     1536,
	"text-embedding-ada-002":     1536,
	"jina-embeddings-v3":         1024,
	"jina-embeddings-v2-base-en": 768,
	DefaultLocalModel:            LocalDimension,
}

// ModelDimension returns the native dimension of a known model
func ModelDimension(model string) (int, bool) {
	d, ok := modelDimensions[model]
	return d, ok
}

// HTTPProvider implements Embedder for OpenAI-compatible /embeddings APIs.
// Both OpenAI and Jina AI accept {"input": [...], "model": ...} and answer
// with {"data": [{"embedding": [...]}]}.
type HTTPProvider struct {
	name      string
	model     string
	dimension int
	// sendDimension asks the API to shorten vectors to dimension
	sendDimension bool
	client        *resty.Client
}

// HTTPOptions configures an HTTPProvider
type HTTPOptions struct {
	APIKey    string
	Model     string
	BaseURL   string
	Dimension int
	Timeout   time.Duration
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(opts HTTPOptions) (*HTTPProvider, error) {
	return newHTTPProvider(ProviderOpenAI, DefaultOpenAIModel, DefaultOpenAIBaseURL, opts)
}

// NewJinaProvider creates a new Jina AI embedder
func NewJinaProvider(opts HTTPOptions) (*HTTPProvider, error) {
	return newHTTPProvider(ProviderJina, DefaultJinaModel, DefaultJinaBaseURL, opts)
}

func newHTTPProvider(name, defaultModel, defaultBaseURL string, opts HTTPOptions) (*HTTPProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: %s api key not set", ErrNoProviderEnabled, name)
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	native, known := ModelDimension(model)
	dimension := opts.Dimension
	if dimension <= 0 {
		if !known {
			return nil, fmt.Errorf("%w: dimension required for model %s", ErrUnsupportedModel, model)
		}
		dimension = native
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(opts.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPProvider{
		name:          name,
		model:         model,
		dimension:     dimension,
		sendDimension: known && dimension != native,
		client:        client,
	}, nil
}

type embeddingsRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

func (p *HTTPProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	body := embeddingsRequest{
		Input: []string{req.Text},
		Model: model,
	}
	if p.sendDimension {
		body.Dimensions = p.dimension
	}

	var apiResp embeddingsResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&apiResp).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("%w: %s api call: %v", ErrProviderFailed, p.name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s api error %d: %s", ErrProviderFailed, p.name, resp.StatusCode(), resp.String())
	}
	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	vector := apiResp.Data[0].Embedding
	responseModel := apiResp.Model
	if responseModel == "" {
		responseModel = model
	}
	emb := &Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Provider:  p.name,
		Model:     responseModel,
	}
	if err := CheckDimension(emb, p.dimension); err != nil {
		return nil, err
	}
	return emb, nil
}

func (p *HTTPProvider) Dimension() int {
	return p.dimension
}

func (p *HTTPProvider) Provider() string {
	return p.name
}

func (p *HTTPProvider) Model() string {
	return p.model
}

func (p *HTTPProvider) Close() error {
	p.client.GetClient().CloseIdleConnections()
	return nil
}

// LocalProvider derives deterministic pseudo-embeddings from a content hash.
// It needs no network access and is meant for offline runs and tests.
type LocalProvider struct {
	model     string
	dimension int
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{
		model:     DefaultLocalModel,
		dimension: dimension,
	}
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stretch the text hash over the whole vector by hashing (seed || block index)
	seed := sha256.Sum256([]byte(req.Text))
	vector := make([]float32, l.dimension)
	var block [sha256.Size]byte
	for i := range vector {
		if i%8 == 0 {
			var buf [sha256.Size + 8]byte
			copy(buf[:], seed[:])
			binary.LittleEndian.PutUint64(buf[sha256.Size:], uint64(i/8))
			block = sha256.Sum256(buf[:])
		}
		bits := binary.LittleEndian.Uint32(block[(i%8)*4:])
		vector[i] = float32(bits)/float32(math.MaxUint32)*2 - 1
	}

	return &Embedding{
		Vector:    NormalizeVector(vector),
		Dimension: l.dimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      ComputeHash(req.Text),
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}
