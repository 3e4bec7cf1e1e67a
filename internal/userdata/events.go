package userdata

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/nfrund/roster/internal/pubsub"
)

// ChangedPayload names the user whose data changed.
type ChangedPayload struct {
	UserID string `json:"user_id"`
}

// ChangedEvent is published after a write that alters a user's bundle.
var ChangedEvent = pubsub.NewEvent[ChangedPayload](
	"userdata.changed",
	"The profile data of a user changed and cached bundles should be refetched",
)

// NotifyChanged publishes ChangedEvent for each affected user. actorID is the
// user who made the change.
func NotifyChanged(ctx context.Context, pub pubsub.Publisher, actorID string, userIDs ...string) error {
	var merr *multierror.Error
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if err := pubsub.Publish(ctx, pub, ChangedEvent, actorID, ChangedPayload{UserID: id}); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}
