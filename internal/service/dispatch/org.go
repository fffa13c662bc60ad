package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/CodeNow/pheidi-sub000/internal/domain"
	"github.com/CodeNow/pheidi-sub000/internal/queue"
	"github.com/CodeNow/pheidi-sub000/internal/repository"
	"github.com/CodeNow/pheidi-sub000/internal/service/email"
)

// handleOrgPaymentMethod builds the handler for payment-method added and
// removed events: email the payment method owner and nudge them in chat.
func (s Service) handleOrgPaymentMethod(templateID string) queue.Handler {
	return func(ctx context.Context, job queue.Envelope) error {
		payload, err := decodeOrgJob(job)
		if err != nil {
			return err
		}
		if payload.PaymentMethodOwner == nil || payload.PaymentMethodOwner.GithubID == 0 {
			return queue.Permanent(errors.New("organization job missing paymentMethodOwner.githubId"))
		}

		user, err := s.users.GetUserByGithubID(ctx, payload.PaymentMethodOwner.GithubID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("payment method owner unknown, skipping", "github_id", payload.PaymentMethodOwner.GithubID, "org", payload.Organization.Name)
				return nil
			}
			return err
		}

		if user.Email != "" {
			msg := email.Message{
				To:         []string{user.Email},
				TemplateID: templateID,
				Substitutions: map[string]string{
					"organization": payload.Organization.Name,
					"username":     user.Username,
				},
			}
			if err := s.email.Send(ctx, msg); err != nil {
				return err
			}
		}

		text := paymentMethodText(templateID, payload.Organization.Name)
		if err := s.chat.SendDM(ctx, "@"+user.Username, text); err != nil {
			s.logger.Warn("chat notification failed", "user", user.Username, "error", err)
		}
		return nil
	}
}

// handleOrgTrial builds the handler for trial ending/ended events: email
// every billing contact for the org.
func (s Service) handleOrgTrial(templateID string) queue.Handler {
	return func(ctx context.Context, job queue.Envelope) error {
		payload, err := decodeOrgJob(job)
		if err != nil {
			return err
		}

		emails, err := s.users.ListOrgBillingEmails(ctx, payload.Organization.ID)
		if err != nil {
			return err
		}
		if len(emails) == 0 {
			s.logger.Warn("org has no billing contacts", "org", payload.Organization.Name, "org_id", payload.Organization.ID)
			return nil
		}

		msg := email.Message{
			To:         emails,
			TemplateID: templateID,
			Substitutions: map[string]string{
				"organization": payload.Organization.Name,
				"orgId":        strconv.FormatInt(payload.Organization.ID, 10),
			},
		}
		return s.email.Send(ctx, msg)
	}
}

// HandleOrgUserAdded accepts the bot's org invitation and welcomes the user.
func (s Service) HandleOrgUserAdded(ctx context.Context, job queue.Envelope) error {
	payload, err := decodeOrgJob(job)
	if err != nil {
		return err
	}
	if payload.User == nil || payload.User.GithubID == 0 {
		return queue.Permanent(errors.New("organization job missing user.githubId"))
	}

	if err := s.gateway.AcceptOrgInvitation(ctx, payload.Organization.Name); err != nil {
		return s.consumeGatewayError(err, "org", payload.Organization.Name, "job_id", job.ID)
	}

	user, err := s.users.GetUserByGithubID(ctx, payload.User.GithubID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("added user unknown, skipping welcome", "github_id", payload.User.GithubID, "org", payload.Organization.Name)
			return nil
		}
		return err
	}
	text := "Welcome to " + payload.Organization.Name + " on Runnable! Your environments are ready."
	if err := s.chat.SendDM(ctx, "@"+user.Username, text); err != nil {
		s.logger.Warn("welcome message failed", "user", user.Username, "error", err)
	}
	return nil
}

func decodeOrgJob(job queue.Envelope) (domain.OrganizationJob, error) {
	payload, err := decode[domain.OrganizationJob](job)
	if err != nil {
		return payload, queue.Permanent(fmt.Errorf("malformed organization job: %w", err))
	}
	if payload.Organization.Name == "" {
		return payload, queue.Permanent(errors.New("organization job missing organization.name"))
	}
	return payload, nil
}

func paymentMethodText(templateID, orgName string) string {
	if templateID == email.TemplatePaymentMethodRemoved {
		return "Your payment method for " + orgName + " was removed. Add a new one to keep your environments running."
	}
	return "Thanks! Your payment method for " + orgName + " is all set."
}
