package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scholarshelf/internal/util"
	"scholarshelf/pkg/domain"
)

// SubmitRequest carries everything the sender supplies: the opaque receiver
// id, the receiver's display profile as the caller sees it, an optional
// message, the sender's own source reference and optional contact fields
// for the receiver block.
type SubmitRequest struct {
	ReceiverID    string
	Receiver      domain.Party
	Message       string
	Source        domain.Reference
	ReceiverEmail string
	ReceiverPhone string
}

// Submit builds an envelope from a deep copy of the source reference and
// appends it to the receiver's mailbox. Only transport success decides the
// outcome: the sender's own sanitized history record is written afterwards
// best-effort, and its failure is logged but never rolls back a delivery
// the receiver already has.
func (a *App) Submit(ctx context.Context, senderID string, req SubmitRequest) (domain.Envelope, error) {
	receiverID := strings.TrimSpace(req.ReceiverID)
	if receiverID == "" {
		return domain.Envelope{}, fmt.Errorf("receiver id required")
	}
	if req.Source.ID == "" {
		return domain.Envelope{}, fmt.Errorf("source reference required")
	}

	sender, err := a.profiles.Get(ctx, senderID)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("resolve sender profile: %w", err)
	}
	receiver := req.Receiver
	receiver.UserID = receiverID
	if req.ReceiverEmail != "" {
		receiver.Email = req.ReceiverEmail
	}
	if req.ReceiverPhone != "" {
		receiver.Phone = req.ReceiverPhone
	}

	env := domain.Envelope{
		ID:           util.NewID(),
		Snapshot:     req.Source.Snapshot.Clone(),
		Sender:       sender,
		Receiver:     receiver,
		Message:      req.Message,
		Status:       domain.ShareUnclaimed,
		OriginItemID: req.Source.ID,
		CreatedAt:    time.Now().UTC(),
	}

	if err := a.mailbox.Append(ctx, receiverID, env); err != nil {
		return domain.Envelope{}, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	if err := a.store.SaveSent(ctx, senderID, env.SentCopy()); err != nil {
		// The receiver already has the message; history stays
		// inconsistent until the sender resends or support repairs it.
		util.LoggerFromContext(ctx).Warn("sent history write failed after delivery",
			"message_id", env.ID, "sender_id", senderID, "err", err)
	}
	return env, nil
}
