// Package notify dispatches best-effort alerts about flagged content and
// pipeline failures. Dispatch runs on its own worker so channel latency
// never shows up in the caller's response time.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	models "github.com/scmlabs/modsentry/internal/models/moderation"
	"github.com/scmlabs/modsentry/pkg/logger"
	"github.com/scmlabs/modsentry/pkg/utils"
)

// Message is the channel-agnostic alert payload.
type Message struct {
	Subject   string
	Body      string
	Recipient string
}

// Sender delivers a message over one channel. Implementations are owned by
// infrastructure; the dispatcher only sees success or failure.
type Sender interface {
	Channel() models.Channel
	Send(ctx context.Context, msg Message) error
}

// LogStore persists one NotificationLog row per delivery attempt.
type LogStore interface {
	AppendNotificationLog(ctx context.Context, entry *models.NotificationLog) error
}

type task struct {
	requestID string
	msg       Message
	request   *models.ModerationRequest
}

// Dispatcher fans alerts out to every configured channel through an async
// queue. Channel failures are logged and swallowed, never propagated.
type Dispatcher struct {
	senders []Sender
	store   LogStore
	log     *logger.Logger
	queue   chan task
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewDispatcher starts the dispatch worker over the given senders.
func NewDispatcher(store LogStore, log *logger.Logger, senders ...Sender) *Dispatcher {
	d := &Dispatcher{
		senders: senders,
		store:   store,
		log:     log,
		queue:   make(chan task, 100),
		quit:    make(chan struct{}),
	}
	go d.worker()
	return d
}

// AlertFlagged enqueues an alert for a completed request whose label is in
// the flagged set. Safe and unknown results never notify.
func (d *Dispatcher) AlertFlagged(req *models.ModerationRequest, res *models.ModerationResult) {
	if res == nil || !res.Classification.Flagged() {
		return
	}

	body := fmt.Sprintf(`**Content Moderation Alert**

**User:** %s
**Content Type:** %s
**Classification:** %s
**Confidence:** %.2f
**Reasoning:** %s

**Action Required:** Review this content and take appropriate action.`,
		req.UserEmail, req.ContentType, strings.ToUpper(string(res.Classification)), res.Confidence, res.Reasoning)

	d.enqueue(task{
		requestID: req.ID.String(),
		request:   req,
		msg: Message{
			Subject:   "Content Moderation Alert",
			Body:      body,
			Recipient: req.UserEmail,
		},
	})
}

// AlertFailure enqueues a pipeline-failure alert for a request whose
// classification could not be completed. Independent of content labels.
func (d *Dispatcher) AlertFailure(req *models.ModerationRequest) {
	body := fmt.Sprintf(`**Moderation Pipeline Failure**

**Request:** %s
**User:** %s
**Content Type:** %s

Every configured classification backend was exhausted for this request.`,
		req.ID, req.UserEmail, req.ContentType)

	d.enqueue(task{
		requestID: req.ID.String(),
		request:   req,
		msg: Message{
			Subject:   "Moderation Pipeline Failure",
			Body:      body,
			Recipient: req.UserEmail,
		},
	})
}

// enqueue never blocks the submitting goroutine: a saturated queue spills
// the wait onto a goroutine so channel backlog stays off the response path.
func (d *Dispatcher) enqueue(t task) {
	d.wg.Add(1)
	select {
	case d.queue <- t:
	case <-d.quit:
		d.wg.Done()
	default:
		go func() {
			select {
			case d.queue <- t:
			case <-d.quit:
				d.wg.Done()
			}
		}()
	}
}

func (d *Dispatcher) worker() {
	for {
		select {
		case t := <-d.queue:
			d.dispatch(t)
			d.wg.Done()
		case <-d.quit:
			for {
				select {
				case t := <-d.queue:
					d.dispatch(t)
					d.wg.Done()
				default:
					return
				}
			}
		}
	}
}

// dispatch attempts every sender independently; one channel failing never
// prevents the next from being attempted.
func (d *Dispatcher) dispatch(t task) {
	ctx := context.Background()

	for _, sender := range d.senders {
		outcome := models.NotificationSuccess
		if err := sender.Send(ctx, t.msg); err != nil {
			outcome = models.NotificationFailed
			d.log.Warn(ctx).WithMeta(utils.Map{
				"request_id": t.requestID,
				"channel":    string(sender.Channel()),
				"error":      err.Error(),
			}).Logs("Notification delivery failed")
		} else {
			d.log.Info(ctx).WithMeta(utils.Map{
				"request_id": t.requestID,
				"channel":    string(sender.Channel()),
			}).Logs("Notification delivered")
		}

		entry := &models.NotificationLog{
			RequestID: t.request.ID,
			Channel:   sender.Channel(),
			Status:    outcome,
		}
		if err := d.store.AppendNotificationLog(ctx, entry); err != nil {
			d.log.Error(ctx).WithMeta(utils.Map{
				"request_id": t.requestID,
				"channel":    string(sender.Channel()),
				"error":      err.Error(),
			}).Logs("Failed to append notification log")
		}
	}
}

// Wait blocks until every enqueued alert has been dispatched.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	d.wg.Wait()
	close(d.quit)
}
