package moderation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/scmlabs/modsentry/internal/llm"
	models "github.com/scmlabs/modsentry/internal/models/moderation"
	"github.com/scmlabs/modsentry/internal/notify"
	"github.com/scmlabs/modsentry/pkg/logger"
)

type fakeProvider struct {
	name        string
	verdictText string
	err         error
	calls       int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Classify(ctx context.Context, content string, kind models.ContentType) (*llm.RawVerdict, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &llm.RawVerdict{Text: p.verdictText, Raw: json.RawMessage(`{"fake":true}`)}, nil
}

// stallingProvider never answers; it waits out the attempt deadline the
// way a hung backend would.
type stallingProvider struct {
	name  string
	calls int
}

func (p *stallingProvider) Name() string { return p.name }

func (p *stallingProvider) Classify(ctx context.Context, content string, kind models.ContentType) (*llm.RawVerdict, error) {
	p.calls++
	<-ctx.Done()
	return nil, llm.NewBackendError(p.name, llm.Unavailable, ctx.Err())
}

type fakeStore struct {
	mu       sync.Mutex
	requests map[string]*models.ModerationRequest
	results  map[uuid.UUID]*models.ModerationResult
	logs     []models.NotificationLog
	// hideFromFind makes the next N fingerprint lookups miss, simulating
	// a racing submission that commits between the dedup check and the
	// insert.
	hideFromFind int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests: map[string]*models.ModerationRequest{},
		results:  map[uuid.UUID]*models.ModerationResult{},
	}
}

func (s *fakeStore) FindRequestByFingerprint(ctx context.Context, fingerprint string) (*models.ModerationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hideFromFind > 0 {
		s.hideFromFind--
		return nil, nil
	}
	req, ok := s.requests[fingerprint]
	if !ok {
		return nil, nil
	}
	out := *req
	if res, ok := s.results[req.ID]; ok {
		r := *res
		out.Result = &r
	}
	return &out, nil
}

func (s *fakeStore) CreateRequest(ctx context.Context, req *models.ModerationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ContentHash]; ok {
		return ErrDuplicateRequest
	}
	stored := *req
	s.requests[req.ContentHash] = &stored
	return nil
}

func (s *fakeStore) CompleteRequest(ctx context.Context, req *models.ModerationRequest, res *models.ModerationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *res
	s.results[req.ID] = &stored
	if r, ok := s.requests[req.ContentHash]; ok {
		r.Status = models.StatusCompleted
	}
	return nil
}

func (s *fakeStore) MarkRequestFailed(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.ID == id {
			r.Status = models.StatusFailed
		}
	}
	return nil
}

func (s *fakeStore) FindResultByRequestID(ctx context.Context, id uuid.UUID) (*models.ModerationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[id]
	if !ok {
		return nil, nil
	}
	out := *res
	return &out, nil
}

func (s *fakeStore) AppendNotificationLog(ctx context.Context, entry *models.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *fakeStore) notificationLogs() []models.NotificationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.NotificationLog, len(s.logs))
	copy(out, s.logs)
	return out
}

type fakeSender struct {
	channel models.Channel
	fail    bool
	mu      sync.Mutex
	sent    []notify.Message
}

func (f *fakeSender) Channel() models.Channel { return f.channel }

func (f *fakeSender) Send(ctx context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if f.fail {
		return assert.AnError
	}
	return nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.WithOutputDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(log.Close)
	return log
}

func newTestService(t *testing.T, store *fakeStore, providers []llm.Provider, senders ...notify.Sender) (*Service, *notify.Dispatcher) {
	t.Helper()
	log := newTestLogger(t)
	dispatcher := notify.NewDispatcher(store, log, senders...)
	svc := NewService(store, dispatcher, providers, log)
	return svc, dispatcher
}

func TestSubmitDedupIdempotence(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{name: "openai", verdictText: `{"classification": "safe", "confidence": 0.9, "reasoning": "fine"}`}
	svc, dispatcher := newTestService(t, store, []llm.Provider{provider})

	in := SubmitInput{UserEmail: "user@example.com", Kind: models.ContentText, Content: "hello world"}

	first, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, first.Status)

	second, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	dispatcher.Wait()

	assert.Equal(t, first.RequestID, second.RequestID)
	assert.Equal(t, models.StatusCompleted, second.Status)
	// Byte-identical content never reaches a backend twice.
	assert.Equal(t, 1, provider.calls)
}

func TestSubmitFallbackOrder(t *testing.T) {
	store := newFakeStore()
	down := &fakeProvider{name: "openai", err: llm.NewBackendError("openai", llm.Unavailable, assert.AnError)}
	up := &fakeProvider{name: "gemini", verdictText: `{"classification": "safe", "confidence": 0.9, "reasoning": "fine"}`}
	svc, dispatcher := newTestService(t, store, []llm.Provider{down, up})

	outcome, err := svc.Submit(context.Background(), SubmitInput{UserEmail: "user@example.com", Kind: models.ContentText, Content: "some text"})
	require.NoError(t, err)
	dispatcher.Wait()

	assert.Equal(t, models.StatusCompleted, outcome.Status)
	assert.Equal(t, 1, down.calls)
	assert.Equal(t, 1, up.calls)

	result, err := svc.GetResult(context.Background(), outcome.RequestID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "gemini", result.LLMProvider)
}

func TestSubmitUnauthorizedFallsBack(t *testing.T) {
	store := newFakeStore()
	badKey := &fakeProvider{name: "openai", err: llm.NewBackendError("openai", llm.Unauthorized, assert.AnError)}
	up := &fakeProvider{name: "gemini", verdictText: `{"classification": "toxic", "confidence": 0.8, "reasoning": "abuse"}`}
	svc, dispatcher := newTestService(t, store, []llm.Provider{badKey, up})

	outcome, err := svc.Submit(context.Background(), SubmitInput{UserEmail: "user@example.com", Kind: models.ContentText, Content: "some text"})
	require.NoError(t, err)
	dispatcher.Wait()

	assert.Equal(t, models.StatusCompleted, outcome.Status)
	assert.Equal(t, 1, badKey.calls)
	assert.Equal(t, 1, up.calls)
}

func TestUnauthorizedBackendDisabledForProcessLifetime(t *testing.T) {
	store := newFakeStore()
	badKey := &fakeProvider{name: "openai", err: llm.NewBackendError("openai", llm.Unauthorized, assert.AnError)}
	up := &fakeProvider{name: "gemini", verdictText: `{"classification": "safe", "confidence": 0.9, "reasoning": "fine"}`}
	svc, dispatcher := newTestService(t, store, []llm.Provider{badKey, up})

	_, err := svc.Submit(context.Background(), SubmitInput{UserEmail: "user@example.com", Kind: models.ContentText, Content: "first text"})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), SubmitInput{UserEmail: "user@example.com", Kind: models.ContentText, Content: "second text"})
	require.NoError(t, err)
	dispatcher.Wait()

	// The rejected credential keeps the backend out of every later request.
	assert.Equal(t, 1, badKey.calls)
	assert.Equal(t, 2, up.calls)
}

func TestSubmitSlowBackendTimesOutAndFallsBack(t *testing.T) {
	store := newFakeStore()
	slow := &stallingProvider{name: "openai"}
	up := &fakeProvider{name: "gemini", verdictText: `{"classification": "safe", "confidence": 0.9, "reasoning": "fine"}`}
	log := newTestLogger(t)
	dispatcher := notify.NewDispatcher(store, log)
	svc := NewService(store, dispatcher, []llm.Provider{slow, up}, log, WithTimeout(50*time.Millisecond))

	start := time.Now()
	outcome, err := svc.Submit(context.Background(), SubmitInput{UserEmail: "user@example.com", Kind: models.ContentText, Content: "some text"})
	elapsed := time.Since(start)
	require.NoError(t, err)
	dispatcher.Wait()

	// The hung backend is bounded by the per-attempt timeout, not the
	// caller's patience; the next backend serves the request.
	assert.Less(t, elapsed, 2*time.Second)
	assert.Equal(t, models.StatusCompleted, outcome.Status)
	assert.Equal(t, 1, slow.calls)
	assert.Equal(t, 1, up.calls)

	result, err := svc.GetResult(context.Background(), outcome.RequestID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "gemini", result.LLMProvider)
}

func TestSubmitParseFailureFallsBack(t *testing.T) {
	store := newFakeStore()
	garbled := &fakeProvider{name: "openai", verdictText: "the model refuses to answer"}
	up := &fakeProvider{name: "gemini", verdictText: `{"classification": "safe", "confidence": 0.9, "reasoning": "fine"}`}
	svc, dispatcher := newTestService(t, store, []llm.Provider{garbled, up})

	outcome, err := svc.Submit(context.Background(), SubmitInput{UserEmail: "user@example.com", Kind: models.ContentText, Content: "some text"})
	require.NoError(t, err)
	dispatcher.Wait()

	assert.Equal(t, models.StatusCompleted, outcome.Status)
	result, err := svc.GetResult(context.Background(), outcome.RequestID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "gemini", result.LLMProvider)
}

func TestSubmitExhaustion(t *testing.T) {
	store := newFakeStore()
	a := &fakeProvider{name: "openai", err: llm.NewBackendError("openai", llm.Unavailable, assert.AnError)}
	b := &fakeProvider{name: "gemini", err: llm.NewBackendError("gemini", llm.Unavailable, assert.AnError)}
	svc, dispatcher := newTestService(t, store, []llm.Provider{a, b})

	outcome, err := svc.Submit(context.Background(), SubmitInput{UserEmail: "user@example.com", Kind: models.ContentText, Content: "some text"})
	require.NoError(t, err)
	dispatcher.Wait()

	// Exhaustion surfaces as a failed status on the request, not as an error.
	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)

	result, err := svc.GetResult(context.Background(), outcome.RequestID)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestSubmitUnknownVerdictCompletes(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{name: "openai", verdictText: `{"classification": "dangerous", "confidence": 0.7, "reasoning": "x"}`}
	slack := &fakeSender{channel: models.ChannelSlack}
	svc, dispatcher := newTestService(t, store, []llm.Provider{provider}, slack)

	outcome, err := svc.Submit(context.Background(), SubmitInput{UserEmail: "user@example.com", Kind: models.ContentText, Content: "some text"})
	require.NoError(t, err)
	dispatcher.Wait()

	assert.Equal(t, models.StatusCompleted, outcome.Status)
	result, err := svc.GetResult(context.Background(), outcome.RequestID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.ClassificationUnknown, result.Classification)
	// Unknown never notifies.
	assert.Empty(t, slack.sent)
	assert.Empty(t, store.notificationLogs())
}

func TestSubmitDuplicateRaceResolvesToExistingRequest(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{name: "openai", verdictText: `{"classification": "safe", "confidence": 0.9, "reasoning": "fine"}`}
	svc, _ := newTestService(t, store, []llm.Provider{provider})

	in := SubmitInput{UserEmail: "user@example.com", Kind: models.ContentText, Content: "raced content"}

	// Seed the row another racing submission would have created.
	winner := models.NewModerationRequest(in.UserEmail, in.Kind, Fingerprint(in.Kind, in.Content))
	require.NoError(t, store.CreateRequest(context.Background(), winner))

	// The dedup pre-check misses, so Submit runs into the unique index
	// and must resolve the conflict by re-fetching.
	store.hideFromFind = 1

	outcome, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, outcome.RequestID)
	assert.Equal(t, 0, provider.calls)
}

func TestScenarioSpamTriggersBothChannels(t *testing.T) {
	store := newFakeStore()
	first := &fakeProvider{name: "openai", verdictText: "classification: spam, confidence: 0.97"}
	second := &fakeProvider{name: "gemini", verdictText: `{"classification": "safe", "confidence": 0.5}`}
	slack := &fakeSender{channel: models.ChannelSlack}
	email := &fakeSender{channel: models.ChannelEmail}
	svc, dispatcher := newTestService(t, store, []llm.Provider{first, second}, slack, email)

	outcome, err := svc.Submit(context.Background(), SubmitInput{UserEmail: "user@example.com", Kind: models.ContentText, Content: "free viagra now"})
	require.NoError(t, err)
	dispatcher.Wait()

	assert.Equal(t, models.StatusCompleted, outcome.Status)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)

	result, err := svc.GetResult(context.Background(), outcome.RequestID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.ClassificationSpam, result.Classification)
	assert.Equal(t, 0.97, result.Confidence)
	assert.Equal(t, "openai", result.LLMProvider)

	logs := store.notificationLogs()
	require.Len(t, logs, 2)
	channels := map[models.Channel]models.NotificationOutcome{}
	for _, entry := range logs {
		assert.Equal(t, outcome.RequestID, entry.RequestID)
		channels[entry.Channel] = entry.Status
	}
	assert.Equal(t, models.NotificationSuccess, channels[models.ChannelSlack])
	assert.Equal(t, models.NotificationSuccess, channels[models.ChannelEmail])
}

func TestSubmitRequestedProviderTriedFirst(t *testing.T) {
	store := newFakeStore()
	first := &fakeProvider{name: "openai", verdictText: `{"classification": "safe", "confidence": 0.9}`}
	second := &fakeProvider{name: "gemini", verdictText: `{"classification": "safe", "confidence": 0.9}`}
	svc, dispatcher := newTestService(t, store, []llm.Provider{first, second})

	outcome, err := svc.Submit(context.Background(), SubmitInput{
		UserEmail: "user@example.com",
		Kind:      models.ContentText,
		Content:   "provider override",
		Provider:  "gemini",
	})
	require.NoError(t, err)
	dispatcher.Wait()

	assert.Equal(t, 0, first.calls)
	assert.Equal(t, 1, second.calls)

	result, err := svc.GetResult(context.Background(), outcome.RequestID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "gemini", result.LLMProvider)
}
