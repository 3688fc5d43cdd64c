package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/shop-checkout/internal/money"
)

// SQSAPI is the subset of the SQS client used for publishing.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSNotifier publishes events to a queue consumed by the push gateway.
type SQSNotifier struct {
	client   SQSAPI
	queueURL string
}

// NewSQSNotifier returns a notifier bound to queueURL.
func NewSQSNotifier(client SQSAPI, queueURL string) *SQSNotifier {
	return &SQSNotifier{client: client, queueURL: queueURL}
}

// Notify implements Notifier.
func (n *SQSNotifier) Notify(ctx context.Context, e Event) error {
	body := string(EncodeEvent(e))
	_, err := n.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(body),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String(string(e.Kind))},
		},
	})
	if err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}

// EncodeEvent renders e as the JSON message body.
func EncodeEvent(e Event) []byte {
	var enc jx.Encoder
	enc.Obj(func(enc *jx.Encoder) {
		enc.Field("kind", func(enc *jx.Encoder) { enc.Str(string(e.Kind)) })
		enc.Field("order_id", func(enc *jx.Encoder) { enc.Str(e.OrderID.String()) })
		enc.Field("user_id", func(enc *jx.Encoder) { enc.Int64(e.UserID) })
		enc.Field("status", func(enc *jx.Encoder) { enc.Str(string(e.Status)) })
		enc.Field("total_amount", func(enc *jx.Encoder) { enc.Str(money.Format(e.Total)) })
		enc.Field("title", func(enc *jx.Encoder) { enc.Str(e.Title) })
		enc.Field("body", func(enc *jx.Encoder) { enc.Str(e.Body) })
	})
	return enc.Bytes()
}

// SQSConfig locates the queue.
type SQSConfig struct {
	Region string
	// Endpoint overrides the service endpoint, e.g. for LocalStack.
	Endpoint string
}

// NewSQSClient loads the default AWS credential chain and returns an SQS client.
func NewSQSClient(ctx context.Context, cfg SQSConfig) (*sqs.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
