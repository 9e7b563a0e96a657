// Package alert publishes operator alerts for failed runs to an SNS topic.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// RunFailure is the payload published when a run aborts.
type RunFailure struct {
	Job      string    `json:"job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// Publisher sends run-failure alerts to a single SNS topic.
type Publisher struct {
	client   *sns.Client
	topicARN string
}

// NewPublisher creates an SNS publisher for the given topic.
func NewPublisher(ctx context.Context, region, topicARN string) (*Publisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Publisher{
		client:   sns.NewFromConfig(cfg),
		topicARN: topicARN,
	}, nil
}

// RunFailed publishes one failure alert. Best effort: the caller logs any
// error here and still exits with the run's own failure.
func (p *Publisher) RunFailed(ctx context.Context, runErr error) (string, error) {
	payload, err := json.Marshal(RunFailure{
		Job:      "lockwatch",
		Error:    runErr.Error(),
		FailedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal alert: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String("lockwatch run failed"),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"job": {
				DataType:    aws.String("String"),
				StringValue: aws.String("lockwatch"),
			},
		},
	}

	result, err := p.client.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("publish alert: %w", err)
	}

	return *result.MessageId, nil
}
