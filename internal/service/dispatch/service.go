package dispatch

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
	"github.com/CodeNow/pheidi-sub000/internal/gateway/github"
	"github.com/CodeNow/pheidi-sub000/internal/queue"
	"github.com/CodeNow/pheidi-sub000/internal/repository"
	"github.com/CodeNow/pheidi-sub000/internal/service/chat"
	"github.com/CodeNow/pheidi-sub000/internal/service/email"
	"github.com/CodeNow/pheidi-sub000/internal/service/message"
	"github.com/CodeNow/pheidi-sub000/internal/service/reconcile"
	"github.com/CodeNow/pheidi-sub000/internal/ws"
	"github.com/CodeNow/pheidi-sub000/pkg/config"
)

// Queue names the dispatcher consumes.
const (
	QueuePushNotify        = "github.bot.notify"
	QueueContainerDied     = "container.life-cycle.died"
	QueueContainerStarted  = "container.life-cycle.started"
	QueueInstanceUpdated   = "instance.updated"
	QueueInstanceDeleted   = "instance.deleted"
	QueueOrgPaymentAdded   = "organization.payment-method.added"
	QueueOrgPaymentRemoved = "organization.payment-method.removed"
	QueueOrgTrialEnding    = "organization.trial.ending"
	QueueOrgTrialEnded     = "organization.trial.ended"
	QueueOrgUserAdded      = "organization.user.added"
)

// Service is the per-event entry point: it resolves targets, invokes the
// reconciler, and translates gateway error kinds into queue outcomes. Error
// classification is consumed here and nowhere else.
type Service struct {
	instances  repository.InstanceRepository
	users      repository.UserRepository
	gateway    github.Gateway
	reconciler reconcile.Service
	renderer   message.Renderer
	chat       *chat.Service
	email      email.Service
	hub        *ws.Hub
	logger     *slog.Logger
	cfg        config.WorkerConfig
}

// New constructs a dispatch service.
func New(instances repository.InstanceRepository, users repository.UserRepository, gateway github.Gateway, reconciler reconcile.Service, renderer message.Renderer, chatSvc *chat.Service, emailSvc email.Service, hub *ws.Hub, logger *slog.Logger, cfg config.WorkerConfig) Service {
	return Service{
		instances:  instances,
		users:      users,
		gateway:    gateway,
		reconciler: reconciler,
		renderer:   renderer,
		chat:       chatSvc,
		email:      emailSvc,
		hub:        hub,
		logger:     logger,
		cfg:        cfg,
	}
}

// Register wires every handler onto the consumer.
func (s Service) Register(consumer *queue.Consumer) {
	consumer.Handle(QueuePushNotify, s.HandlePushNotification)
	consumer.Handle(QueueContainerDied, s.handleContainerLifecycle(true))
	consumer.Handle(QueueContainerStarted, s.handleContainerLifecycle(false))
	consumer.Handle(QueueInstanceUpdated, s.HandleInstanceUpdated)
	consumer.Handle(QueueInstanceDeleted, s.HandleInstanceDeleted)
	consumer.Handle(QueueOrgPaymentAdded, s.handleOrgPaymentMethod(email.TemplatePaymentMethodAdded))
	consumer.Handle(QueueOrgPaymentRemoved, s.handleOrgPaymentMethod(email.TemplatePaymentMethodRemoved))
	consumer.Handle(QueueOrgTrialEnding, s.handleOrgTrial(email.TemplateTrialEnding))
	consumer.Handle(QueueOrgTrialEnded, s.handleOrgTrial(email.TemplateTrialEnded))
	consumer.Handle(QueueOrgUserAdded, s.HandleOrgUserAdded)
}

// publishOutcome pushes an outcome event to the operator stream.
func (s Service) publishOutcome(org, eventName, repo, branch string, state domain.LifecycleState) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{
		"event":     eventName,
		"repo":      repo,
		"branch":    branch,
		"state":     string(state),
		"org":       org,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	s.hub.Broadcast(org, payload)
}

func decode[T any](job queue.Envelope) (T, error) {
	var payload T
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
