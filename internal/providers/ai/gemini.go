package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/makoban/koubo-navi/internal/config"
	"github.com/makoban/koubo-navi/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

type geminiClient struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewGemini(p Params) Client {
	return &geminiClient{
		baseURL: p.Config.AIBaseURL,
		model:   p.Config.AIModel,
		apiKey:  p.Config.AIAPIKey,
		client:  &http.Client{Timeout: 90 * time.Second},
		log:     p.Log.Named("ai.gemini"),
		metrics: p.Metrics,
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *geminiClient) Generate(ctx context.Context, purpose, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      0.2,
			MaxOutputTokens:  4096,
			ResponseMimeType: "application/json",
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.metrics.RecordAICall(ctx, purpose, "transport_error")
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	var body generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		g.metrics.RecordAICall(ctx, purpose, "decode_error")
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if body.Error != nil {
			msg = body.Error.Message
		}
		g.metrics.RecordAICall(ctx, purpose, "upstream_error")
		g.log.Warn("generate failed",
			zap.String("purpose", purpose),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	if len(body.Candidates) == 0 || len(body.Candidates[0].Content.Parts) == 0 {
		g.metrics.RecordAICall(ctx, purpose, "empty")
		return "", fmt.Errorf("%w: empty candidate", ErrUpstream)
	}

	g.metrics.RecordAICall(ctx, purpose, "ok")
	return body.Candidates[0].Content.Parts[0].Text, nil
}
