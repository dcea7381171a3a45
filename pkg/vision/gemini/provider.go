package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/auction-archive/internal/extraction"
	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
	"google.golang.org/genai"
)

// Options configures the Gemini adapter. BaseURL is only set in tests or
// behind a proxy.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Provider implements extraction.Provider over the Gemini API. A client is
// built per call because each request carries the caller's own API key.
type Provider struct {
	opts Options
}

var _ extraction.Provider = (*Provider)(nil)

func New(opts Options) *Provider {
	return &Provider{opts: opts}
}

func (p *Provider) client(ctx context.Context, credential string) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     credential,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.opts.HTTPClient,
	}
	if p.opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

func (p *Provider) ListModels(ctx context.Context, credential string) ([]extraction.ModelInfo, error) {
	client, err := p.client(ctx, credential)
	if err != nil {
		return nil, err
	}

	page, err := client.Models.List(ctx, &genai.ListModelsConfig{})
	var out []extraction.ModelInfo
	for err == nil {
		for _, m := range page.Items {
			if m == nil {
				continue
			}
			out = append(out, extraction.ModelInfo{Name: m.Name, Actions: m.SupportedActions})
		}
		page, err = page.Next(ctx)
	}
	if !errors.Is(err, genai.ErrPageDone) {
		return nil, mapError(err, "list models")
	}
	return out, nil
}

func (p *Provider) Generate(ctx context.Context, credential string, req extraction.GenerateRequest) (string, error) {
	client, err := p.client(ctx, credential)
	if err != nil {
		return "", err
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if len(req.Image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image, req.MimeType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(req.Temperature)}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", mapError(err, "generate content")
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", pkgerrors.New(pkgerrors.CodeMalformedResponse, "vision model returned no text").
			WithDetails(map[string]any{"raw": ""})
	}
	return text, nil
}

// mapError turns a rejected key into a credential error and leaves the rest
// for the extractor to classify.
func mapError(err error, action string) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return pkgerrors.Wrap(pkgerrors.CodeCredentialMissing, err, "vision api credential rejected")
		case apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "api key"):
			return pkgerrors.Wrap(pkgerrors.CodeCredentialMissing, err, "vision api credential rejected")
		}
	}
	return fmt.Errorf("gemini %s: %w", action, err)
}
