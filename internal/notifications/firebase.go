package notifications

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/richxcame/attendance-tracker/pkg/config"
	"google.golang.org/api/option"
)

// FCM accepts at most this many tokens per multicast
const maxMulticastTokens = 500

// FirebaseClient sends push notifications through Firebase Cloud Messaging
type FirebaseClient struct {
	client *messaging.Client
}

var _ PushSender = (*FirebaseClient)(nil)

// NewFirebaseClient initialises the Firebase app from a service account file
// or, when the path is empty, application default credentials.
func NewFirebaseClient(ctx context.Context, cfg config.FirebaseConfig) (*FirebaseClient, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	return &FirebaseClient{client: client}, nil
}

// SendMulticast sends the same notification to every token, in batches
func (f *FirebaseClient) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string, urgent bool) (*PushResult, error) {
	result := &PushResult{}
	var errs []error

	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := min(start+maxMulticastTokens, len(tokens))
		batch := tokens[start:end]

		resp, err := f.client.SendEachForMulticast(ctx, multicastMessage(batch, title, body, data, urgent))
		if err != nil {
			errs = append(errs, err)
			result.FailureCount += len(batch)
			continue
		}

		result.SuccessCount += resp.SuccessCount
		result.FailureCount += resp.FailureCount
		for i, r := range resp.Responses {
			if r.Success {
				continue
			}
			if messaging.IsUnregistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
				result.InvalidTokens = append(result.InvalidTokens, batch[i])
			}
		}
	}

	if result.SuccessCount == 0 && result.FailureCount > 0 {
		errs = append(errs, fmt.Errorf("push failed for all %d tokens", result.FailureCount))
		return result, errors.Join(errs...)
	}
	return result, nil
}

func multicastMessage(tokens []string, title, body string, data map[string]string, urgent bool) *messaging.MulticastMessage {
	androidPriority := "normal"
	apnsPriority := "5"
	if urgent {
		androidPriority = "high"
		apnsPriority = "10"
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   data,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: androidPriority,
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": apnsPriority},
		},
	}
}
