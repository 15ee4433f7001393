// Package moderation implements the moderation pipeline: dedup, backend
// selection with fallback, verdict parsing, persistence, and the hand-off
// to the notification dispatcher.
package moderation

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/scmlabs/modsentry/internal/llm"
	models "github.com/scmlabs/modsentry/internal/models/moderation"
	"github.com/scmlabs/modsentry/internal/notify"
	"github.com/scmlabs/modsentry/pkg/logger"
	"github.com/scmlabs/modsentry/pkg/utils"
	storage "github.com/scmlabs/modsentry/pkg/redis"
)

// ErrAllBackendsExhausted is the terminal error once every eligible
// backend was attempted exactly once without yielding a parseable verdict.
var ErrAllBackendsExhausted = errors.New("all classification backends exhausted")

const (
	cacheKeyPrefix = "moderation:fp:"
	cacheTTL       = 10 * time.Minute
)

// SubmitInput is the validated submission handed in by the API layer.
type SubmitInput struct {
	UserEmail string
	Kind      models.ContentType
	Content   string
	// Provider optionally names the backend to try first. The remaining
	// configured backends stay in order as fallback.
	Provider string
}

// Outcome is the caller-visible result of the pipeline through
// persistence. Classification details are fetched separately by id.
type Outcome struct {
	RequestID   uuid.UUID            `json:"request_id"`
	UserEmail   string               `json:"user_email"`
	ContentType models.ContentType   `json:"content_type"`
	Status      models.ContentStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
}

// ResultView is the stored verdict for one request.
type ResultView struct {
	RequestID      uuid.UUID             `json:"request_id"`
	Classification models.Classification `json:"classification"`
	Confidence     float64               `json:"confidence"`
	Reasoning      string                `json:"reasoning"`
	LLMProvider    string                `json:"llm_provider"`
	CreatedAt      time.Time             `json:"created_at"`
}

// Service drives the moderation pipeline.
type Service struct {
	store      Store
	cache      *storage.RedisClient
	providers  []llm.Provider
	dispatcher *notify.Dispatcher
	timeout    time.Duration
	log        *logger.Logger

	// disabled holds providers whose credentials were rejected. A
	// rejected credential is fatal for that backend for the process
	// lifetime, so it leaves the fallback list.
	disabledMu sync.Mutex
	disabled   map[string]bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache attaches the Redis read-through cache of completed outcomes.
func WithCache(cache *storage.RedisClient) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

// WithTimeout bounds each backend attempt.
func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = timeout }
}

// NewService wires the pipeline. Only providers with valid credentials
// belong in the list; eligibility is decided at startup, not per request.
func NewService(store Store, dispatcher *notify.Dispatcher, providers []llm.Provider, log *logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:      store,
		providers:  providers,
		dispatcher: dispatcher,
		timeout:    30 * time.Second,
		log:        log,
		disabled:   map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs the full pipeline for one submission and returns once the
// terminal state is durable. Notification dispatch continues in the
// background and never delays the return.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Outcome, error) {
	fingerprint := Fingerprint(in.Kind, in.Content)

	// Idempotent read: identical content resolves to the prior request
	// without another backend call.
	if cached := s.cachedOutcome(ctx, fingerprint); cached != nil {
		return cached, nil
	}
	existing, err := s.store.FindRequestByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to check for duplicate content")
	}
	if existing != nil {
		outcome := outcomeOf(existing)
		s.cacheOutcome(ctx, fingerprint, outcome)
		return outcome, nil
	}

	req := models.NewModerationRequest(in.UserEmail, in.Kind, fingerprint)
	if err := s.store.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, ErrDuplicateRequest) {
			// Lost a race against an identical submission; its row wins.
			racing, ferr := s.store.FindRequestByFingerprint(ctx, fingerprint)
			if ferr != nil || racing == nil {
				return nil, utils.NewError(utils.ErrInternalServerError.Code, "Failed to resolve duplicate request")
			}
			return outcomeOf(racing), nil
		}
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to create moderation request")
	}

	verdict, providerName, raw, err := s.classify(ctx, in)
	if err != nil {
		if ferr := s.store.MarkRequestFailed(ctx, req.ID); ferr != nil {
			s.log.Error(ctx).WithMeta(utils.Map{"request_id": req.ID.String(), "error": ferr.Error()}).Logs("Failed to mark request failed")
		}
		req.Status = models.StatusFailed
		s.dispatcher.AlertFailure(req)
		s.log.Warn(ctx).WithMeta(utils.Map{"request_id": req.ID.String()}).Logs("Moderation request failed: all backends exhausted")
		return outcomeOf(req), nil
	}

	res := &models.ModerationResult{
		RequestID:      req.ID,
		Classification: verdict.Label,
		Confidence:     verdict.Confidence,
		Reasoning:      verdict.Reasoning,
		LLMProvider:    providerName,
		LLMResponse:    string(raw),
	}
	if err := s.store.CompleteRequest(ctx, req, res); err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to persist moderation result")
	}
	req.Status = models.StatusCompleted

	outcome := outcomeOf(req)
	s.cacheOutcome(ctx, fingerprint, outcome)
	s.dispatcher.AlertFlagged(req, res)

	s.log.Info(ctx).WithMeta(utils.Map{
		"request_id":     req.ID.String(),
		"classification": string(verdict.Label),
		"provider":       providerName,
	}).Logs("Moderation request completed")

	return outcome, nil
}

// classify walks the eligible backends in priority order, each attempted
// at most once, until one yields a parseable verdict.
func (s *Service) classify(ctx context.Context, in SubmitInput) (*llm.Verdict, string, json.RawMessage, error) {
	for _, provider := range s.orderedProviders(in.Provider) {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		rv, err := provider.Classify(attemptCtx, in.Content, in.Kind)
		cancel()

		if err != nil {
			meta := utils.Map{"provider": provider.Name(), "error": err.Error()}
			var backendErr *llm.BackendError
			if errors.As(err, &backendErr) && backendErr.Kind == llm.Unauthorized {
				// Configuration fault; surface loudly for operators and
				// drop the backend for the rest of the process lifetime.
				s.log.Error(ctx).WithMeta(meta).Logs("Backend rejected credentials, disabling it")
				s.disableProvider(provider.Name())
			} else {
				s.log.Warn(ctx).WithMeta(meta).Logs("Backend attempt failed, trying next")
			}
			continue
		}

		verdict, err := llm.ParseVerdict(rv)
		if err != nil {
			s.log.Warn(ctx).WithMeta(utils.Map{"provider": provider.Name(), "error": err.Error()}).Logs("Backend verdict unparseable, trying next")
			continue
		}
		return verdict, provider.Name(), rv.Raw, nil
	}
	return nil, "", nil, ErrAllBackendsExhausted
}

// orderedProviders returns the eligible backends, with the requested one
// (when present) promoted to the front and disabled backends dropped.
func (s *Service) orderedProviders(preferred string) []llm.Provider {
	s.disabledMu.Lock()
	defer s.disabledMu.Unlock()

	ordered := make([]llm.Provider, 0, len(s.providers))
	if preferred != "" {
		for _, p := range s.providers {
			if p.Name() == preferred && !s.disabled[p.Name()] {
				ordered = append(ordered, p)
			}
		}
	}
	for _, p := range s.providers {
		if p.Name() != preferred && !s.disabled[p.Name()] {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

func (s *Service) disableProvider(name string) {
	s.disabledMu.Lock()
	s.disabled[name] = true
	s.disabledMu.Unlock()
}

// GetResult returns the stored verdict for a request, or nil when the
// request has none.
func (s *Service) GetResult(ctx context.Context, requestID uuid.UUID) (*ResultView, error) {
	res, err := s.store.FindResultByRequestID(ctx, requestID)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to fetch moderation result")
	}
	if res == nil {
		return nil, nil
	}
	return &ResultView{
		RequestID:      res.RequestID,
		Classification: res.Classification,
		Confidence:     res.Confidence,
		Reasoning:      res.Reasoning,
		LLMProvider:    res.LLMProvider,
		CreatedAt:      res.CreatedAt,
	}, nil
}

func outcomeOf(req *models.ModerationRequest) *Outcome {
	return &Outcome{
		RequestID:   req.ID,
		UserEmail:   req.UserEmail,
		ContentType: req.ContentType,
		Status:      req.Status,
		CreatedAt:   req.CreatedAt,
	}
}

// cachedOutcome consults Redis for a previously completed outcome. Any
// cache failure falls through to the durable store.
func (s *Service) cachedOutcome(ctx context.Context, fingerprint string) *Outcome {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, cacheKeyPrefix+fingerprint).Result()
	if err != nil {
		return nil
	}
	var outcome Outcome
	if err := json.Unmarshal([]byte(data), &outcome); err != nil {
		return nil
	}
	return &outcome
}

// cacheOutcome stores a completed outcome best-effort. Pending and failed
// requests are not cached; their state can still change or be retried.
func (s *Service) cacheOutcome(ctx context.Context, fingerprint string, outcome *Outcome) {
	if s.cache == nil || outcome.Status != models.StatusCompleted {
		return
	}
	data, err := json.Marshal(outcome)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKeyPrefix+fingerprint, data, cacheTTL).Err(); err != nil {
		s.log.Warn(ctx).WithMeta(utils.Map{"fingerprint": fingerprint, "error": err.Error()}).Logs("Failed to cache moderation outcome")
	}
}
