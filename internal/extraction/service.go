package extraction

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
	"github.com/angelmondragon/auction-archive/pkg/logger"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultMaxAttempts = 2

	OutcomeSuccess   = "success"
	OutcomeMalformed = "malformed"
	OutcomeFailure   = "failure"
)

// Observer receives extraction outcomes; pkg/metrics implements it.
type Observer interface {
	ObserveExtraction(outcome string, elapsed time.Duration)
}

// Options tunes provider calls.
type Options struct {
	Timeout     time.Duration
	MaxAttempts int
	Preference  []string
}

// Request carries one datasheet image and the caller's credential. Model is
// optional; when empty a model is selected first.
type Request struct {
	Credential string
	Model      string
	Image      []byte
	MimeType   string
}

// Result is a parsed candidate plus the model and raw text that produced it.
type Result struct {
	Candidate Candidate `json:"candidate"`
	Model     string    `json:"model"`
	Attempts  int       `json:"attempts"`
	Raw       string    `json:"-"`
}

// Service exposes datasheet extraction.
type Service interface {
	SelectModel(ctx context.Context, credential string) (string, error)
	Extract(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	provider Provider
	opts     Options
	logg     *logger.Logger
	observer Observer
}

// NewService builds an extractor over the given provider. observer may be nil.
func NewService(provider Provider, opts Options, logg *logger.Logger, observer Observer) (Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("vision provider required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if len(opts.Preference) == 0 {
		opts.Preference = DefaultPreference
	}
	return &service{provider: provider, opts: opts, logg: logg, observer: observer}, nil
}

func (s *service) SelectModel(ctx context.Context, credential string) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", credentialMissing()
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	models, err := s.provider.ListModels(callCtx, credential)
	if err != nil {
		return "", providerError(err, "list vision models")
	}
	name, err := ChooseModel(models, s.opts.Preference)
	if err != nil {
		return "", err
	}
	s.logg.Info(s.logg.WithField(ctx, "model", name), "vision model selected")
	return name, nil
}

func (s *service) Extract(ctx context.Context, req Request) (result *Result, err error) {
	started := time.Now()
	defer func() { s.observe(err, started) }()

	credential := strings.TrimSpace(req.Credential)
	if credential == "" {
		return nil, credentialMissing()
	}
	if len(req.Image) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeMissingImages, "datasheet image is required").
			WithDetails(map[string]any{"missing": []string{"datasheet"}})
	}

	model := req.Model
	if model == "" {
		if model, err = s.SelectModel(ctx, credential); err != nil {
			return nil, err
		}
	}

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		raw, genErr := s.generate(ctx, credential, model, promptFor(attempt), req)
		if genErr != nil {
			return nil, genErr
		}

		candidate, parseErr := Parse(raw)
		if parseErr == nil {
			return &Result{Candidate: candidate, Model: model, Attempts: attempt, Raw: raw}, nil
		}
		err = parseErr

		logCtx := s.logg.WithFields(ctx, map[string]any{"model": model, "attempt": attempt})
		s.logg.WarnErr(logCtx, "vision reply malformed", parseErr)
	}
	return nil, err
}

func (s *service) generate(ctx context.Context, credential, model, prompt string, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	raw, err := s.provider.Generate(callCtx, credential, GenerateRequest{
		Model:       model,
		Prompt:      prompt,
		Image:       req.Image,
		MimeType:    req.MimeType,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		return "", providerError(err, "generate content")
	}
	return raw, nil
}

func (s *service) observe(err error, started time.Time) {
	if s.observer == nil {
		return
	}
	outcome := OutcomeSuccess
	switch {
	case pkgerrors.Is(err, pkgerrors.CodeMalformedResponse):
		outcome = OutcomeMalformed
	case err != nil:
		outcome = OutcomeFailure
	}
	s.observer.ObserveExtraction(outcome, time.Since(started))
}

func credentialMissing() error {
	return pkgerrors.New(pkgerrors.CodeCredentialMissing, "vision api credential is required")
}

// providerError keeps typed errors from the adapter and maps everything else,
// timeouts included, to a dependency failure.
func providerError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action+": vision provider timed out")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
