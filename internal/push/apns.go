package push

import (
	"context"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"github.com/emrecanisildak/diet/internal/config"
)

// APNsGateway sends alerts through Apple Push Notification service using
// token-based (.p8) authentication.
type APNsGateway struct {
	client *apns2.Client
	topic  string
}

// NewAPNsGateway loads the signing key and builds a client for the
// sandbox or production endpoint.
func NewAPNsGateway(cfg config.PushConfig) (*APNsGateway, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load apns key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Sandbox {
		client = client.Development()
	} else {
		client = client.Production()
	}

	return &APNsGateway{client: client, topic: cfg.BundleID}, nil
}

func (g *APNsGateway) SendPush(ctx context.Context, deviceToken, title, body string) error {
	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       g.topic,
		Payload:     payload.NewPayload().AlertTitle(title).AlertBody(body).Sound("default"),
	}

	res, err := g.client.PushWithContext(ctx, notification)
	if err != nil {
		return fmt.Errorf("apns request failed: %w", err)
	}
	if !res.Sent() {
		if res.StatusCode >= 500 {
			return fmt.Errorf("apns unavailable: %d %s", res.StatusCode, res.Reason)
		}
		return &RejectedError{StatusCode: res.StatusCode, Reason: res.Reason}
	}
	return nil
}
