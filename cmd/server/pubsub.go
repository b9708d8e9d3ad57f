package main

import (
	"context"

	"cloud.google.com/go/pubsub"
)

func newPubSubClient(ctx context.Context, projectID string) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, projectID)
}
