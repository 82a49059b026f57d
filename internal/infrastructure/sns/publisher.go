package sns

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-auth-web/internal/config"
)

// Account event kinds published to the topic.
const (
	EventAccountCreated = "account.created"
	EventPasswordReset  = "password.reset"
)

// Publisher emits account lifecycle events to an SNS topic. Consumers
// (audit pipelines, notification fan-out) subscribe to the topic; the
// application itself never reads it back.
type Publisher interface {
	Publish(ctx context.Context, event, userID, email string) error
}

type publisher struct {
	client   *sns.Client
	topicARN string
}

func NewPublisher(cfg *config.Config) (Publisher, error) {
	if cfg.SNSTopicARN == "" {
		return nil, fmt.Errorf("SNS_TOPIC_ARN not configured")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &publisher{client: sns.NewFromConfig(awsCfg), topicARN: cfg.SNSTopicARN}, nil
}

func (p *publisher) Publish(ctx context.Context, event, userID, email string) error {
	payload, err := json.Marshal(map[string]string{
		"event":       event,
		"user_id":     userID,
		"email":       email,
		"occurred_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	msg := string(payload)
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &p.topicARN,
		Message:  &msg,
	})
	return err
}
