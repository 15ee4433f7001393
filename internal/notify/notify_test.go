package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	models "github.com/scmlabs/modsentry/internal/models/moderation"
	"github.com/scmlabs/modsentry/pkg/logger"
)

type memLogStore struct {
	mu   sync.Mutex
	logs []models.NotificationLog
}

func (s *memLogStore) AppendNotificationLog(ctx context.Context, entry *models.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *memLogStore) entries() []models.NotificationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.NotificationLog, len(s.logs))
	copy(out, s.logs)
	return out
}

type stubSender struct {
	channel models.Channel
	fail    bool
	mu      sync.Mutex
	sent    []Message
}

func (f *stubSender) Channel() models.Channel { return f.channel }

func (f *stubSender) Send(ctx context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if f.fail {
		return assert.AnError
	}
	return nil
}

func (f *stubSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// gatedSender holds every delivery until released, backing up the queue.
type gatedSender struct {
	channel models.Channel
	release chan struct{}
	mu      sync.Mutex
	sent    int
}

func (g *gatedSender) Channel() models.Channel { return g.channel }

func (g *gatedSender) Send(ctx context.Context, msg Message) error {
	<-g.release
	g.mu.Lock()
	g.sent++
	g.mu.Unlock()
	return nil
}

func (g *gatedSender) sentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sent
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.WithOutputDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(log.Close)
	return log
}

func flaggedFixture(label models.Classification) (*models.ModerationRequest, *models.ModerationResult) {
	req := models.NewModerationRequest("user@example.com", models.ContentText, "abc123", models.WithStatus(models.StatusCompleted))
	res := &models.ModerationResult{
		RequestID:      req.ID,
		Classification: label,
		Confidence:     0.9,
		Reasoning:      "test reasoning",
		LLMProvider:    "openai",
	}
	return req, res
}

func TestSafeResultNeverNotifies(t *testing.T) {
	store := &memLogStore{}
	slack := &stubSender{channel: models.ChannelSlack}
	email := &stubSender{channel: models.ChannelEmail}
	d := NewDispatcher(store, newTestLogger(t), slack, email)
	defer d.Close()

	for _, label := range []models.Classification{models.ClassificationSafe, models.ClassificationUnknown} {
		req, res := flaggedFixture(label)
		d.AlertFlagged(req, res)
	}
	d.Wait()

	assert.Zero(t, slack.sentCount())
	assert.Zero(t, email.sentCount())
	assert.Empty(t, store.entries())
}

func TestFlaggedResultNotifiesEveryChannel(t *testing.T) {
	store := &memLogStore{}
	slack := &stubSender{channel: models.ChannelSlack}
	email := &stubSender{channel: models.ChannelEmail}
	d := NewDispatcher(store, newTestLogger(t), slack, email)
	defer d.Close()

	req, res := flaggedFixture(models.ClassificationToxic)
	d.AlertFlagged(req, res)
	d.Wait()

	assert.Equal(t, 1, slack.sentCount())
	assert.Equal(t, 1, email.sentCount())

	entries := store.entries()
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, req.ID, entry.RequestID)
		assert.Equal(t, models.NotificationSuccess, entry.Status)
	}
}

func TestChannelFailureDoesNotBlockOthers(t *testing.T) {
	store := &memLogStore{}
	slack := &stubSender{channel: models.ChannelSlack, fail: true}
	email := &stubSender{channel: models.ChannelEmail}
	d := NewDispatcher(store, newTestLogger(t), slack, email)
	defer d.Close()

	req, res := flaggedFixture(models.ClassificationToxic)
	d.AlertFlagged(req, res)
	d.Wait()

	// The failing Slack attempt is still made and still logged, and the
	// email attempt proceeds regardless.
	assert.Equal(t, 1, slack.sentCount())
	assert.Equal(t, 1, email.sentCount())

	outcomes := map[models.Channel]models.NotificationOutcome{}
	for _, entry := range store.entries() {
		outcomes[entry.Channel] = entry.Status
	}
	assert.Equal(t, models.NotificationFailed, outcomes[models.ChannelSlack])
	assert.Equal(t, models.NotificationSuccess, outcomes[models.ChannelEmail])
}

func TestPipelineFailureAlert(t *testing.T) {
	store := &memLogStore{}
	slack := &stubSender{channel: models.ChannelSlack}
	d := NewDispatcher(store, newTestLogger(t), slack)
	defer d.Close()

	req := models.NewModerationRequest("user@example.com", models.ContentText, "abc123")
	req.Status = models.StatusFailed
	d.AlertFailure(req)
	d.Wait()

	require.Equal(t, 1, slack.sentCount())
	assert.Contains(t, slack.sent[0].Body, req.ID.String())
	require.Len(t, store.entries(), 1)
	assert.Equal(t, models.NotificationSuccess, store.entries()[0].Status)
}

func TestAlertEnqueueNeverBlocksOnBacklog(t *testing.T) {
	store := &memLogStore{}
	gated := &gatedSender{channel: models.ChannelSlack, release: make(chan struct{})}
	d := NewDispatcher(store, newTestLogger(t), gated)

	req, res := flaggedFixture(models.ClassificationToxic)

	// With the worker stuck on the first delivery, enqueue far more alerts
	// than the queue buffers; the submitting goroutine must not wait.
	const alerts = 300
	done := make(chan struct{})
	go func() {
		for i := 0; i < alerts; i++ {
			d.AlertFlagged(req, res)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("alert enqueue blocked on notification backlog")
	}

	close(gated.release)
	d.Wait()
	d.Close()

	assert.Equal(t, alerts, gated.sentCount())
	assert.Len(t, store.entries(), alerts)
}

func TestAlertMessageCarriesVerdict(t *testing.T) {
	store := &memLogStore{}
	slack := &stubSender{channel: models.ChannelSlack}
	d := NewDispatcher(store, newTestLogger(t), slack)
	defer d.Close()

	req, res := flaggedFixture(models.ClassificationHarassment)
	d.AlertFlagged(req, res)
	d.Wait()

	require.Equal(t, 1, slack.sentCount())
	body := slack.sent[0].Body
	assert.Contains(t, body, "HARASSMENT")
	assert.Contains(t, body, "user@example.com")
	assert.Contains(t, body, "0.90")
}
