package workflow

import (
	"context"

	"go.uber.org/zap"

	"speciesdesk/pkg/domain"
)

// Delete runs the delete action for record. Ownership is checked before the
// prompt; a confirmer error counts as a "no".
func (c *Controller) Delete(ctx context.Context, record domain.Species, actingUser string, confirmer Confirmer) Outcome {
	if !record.OwnedBy(actingUser) {
		c.logger.Info("delete rejected", zap.String("species_id", record.ID), zap.String("acting_user", actingUser))
		c.notifier.Notify(failure(MsgDeleteNotOwner))
		return OutcomeUnauthorized
	}
	if confirmer == nil {
		return OutcomeDeclined
	}
	ok, err := confirmer.Confirm(ctx, PromptDelete)
	if err != nil {
		c.logger.Debug("delete confirmation failed", zap.String("species_id", record.ID), zap.Error(err))
		return OutcomeDeclined
	}
	if !ok {
		return OutcomeDeclined
	}
	if err := c.gateway.Delete(ctx, record.ID); err != nil {
		c.logger.Warn("species delete failed", zap.String("species_id", record.ID), zap.Error(err))
		c.notifier.Notify(failure(domain.ErrorMessage(err)))
		return OutcomeFailed
	}
	c.refresher.Refresh()
	return OutcomeSucceeded
}
