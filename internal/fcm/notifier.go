// Package fcm sends battery-check reminders through Firebase Cloud Messaging.
package fcm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ErrCredentials wraps failures to build the messaging client from the
// configured credential file.
var ErrCredentials = errors.New("firebase credentials unusable")

// ErrDeliver wraps gateway rejections (invalid or unregistered token) and
// unreachable-gateway failures.
var ErrDeliver = errors.New("push delivery failed")

const eventBatteryCheckPrompt = "battery_check_prompt"

// sendClient is the slice of messaging.Client the notifier uses. Tests
// substitute a fake.
type sendClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Notifier sends templated battery-check prompts to single device tokens.
// The messaging client is built from the credential file on the first send
// and reused for the rest of the process. If construction fails, the notifier
// stays uninitialized and the next send tries again.
type Notifier struct {
	credPath string
	logger   *zap.Logger

	mu     sync.Mutex
	client sendClient
}

func NewNotifier(credPath string, logger *zap.Logger) *Notifier {
	return &Notifier{credPath: credPath, logger: logger}
}

func (n *Notifier) ensureClient(ctx context.Context) (sendClient, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.client != nil {
		return n.client, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(n.credPath))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentials, err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentials, err)
	}

	n.logger.Info("messaging client initialized",
		zap.String("credential_path", n.credPath),
	)

	n.client = client
	return n.client, nil
}

// Notify sends one battery-check prompt to a device token and returns the
// gateway's delivery receipt. Delivery failures are logged here and returned
// to the caller; nothing is swallowed.
func (n *Notifier) Notify(ctx context.Context, token, lockID string) (string, error) {
	client, err := n.ensureClient(ctx)
	if err != nil {
		n.logger.Error("messaging client initialization failed", zap.Error(err))
		return "", err
	}

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "Battery Check Needed",
			Body:  fmt.Sprintf("Your lock %s has not been checked recently.", lockID),
		},
		Data: map[string]string{
			"event":   eventBatteryCheckPrompt,
			"lock_id": lockID,
		},
	}

	receipt, err := client.Send(ctx, message)
	if err != nil {
		n.logger.Error("push delivery failed",
			zap.Error(err),
			zap.String("lock_id", lockID),
		)
		return "", fmt.Errorf("%w: %w", ErrDeliver, err)
	}

	return receipt, nil
}
