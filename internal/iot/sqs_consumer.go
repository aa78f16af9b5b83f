package iot

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// MessageHandler xử lý body của một message. Trả lỗi để message được nhận lại sau visibility timeout.
type MessageHandler interface {
	HandleGateMessage(ctx context.Context, body string) error
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type SQSConsumer struct {
	sqsClient  sqsAPI
	queueURL   string
	handler    MessageHandler
	retryDelay time.Duration
}

func NewSQSConsumer(client *sqs.Client, queueURL string, handler MessageHandler) *SQSConsumer {
	return &SQSConsumer{
		sqsClient:  client,
		queueURL:   queueURL,
		handler:    handler,
		retryDelay: 5 * time.Second,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQS Consumer đang bắt đầu lắng nghe queue sự kiện cổng: %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQS Consumer: context cancelled, stopping.")
			return
		default:
		}

		if err := c.poll(ctx); err != nil {
			if ctx.Err() != nil {
				log.Println("SQS Consumer: context cancelled, stopping.")
				return
			}
			log.Printf("SQS Consumer: Lỗi khi nhận message: %v", err)
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				log.Println("SQS Consumer: context cancelled while waiting for retry.")
				return
			}
		}
	}
}

// poll nhận một lô message (long polling) và xóa các message xử lý thành công.
func (c *SQSConsumer) poll(ctx context.Context) error {
	result, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &c.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   60,
	})
	if err != nil {
		return err
	}
	if len(result.Messages) == 0 {
		return nil
	}

	log.Printf("SQS Consumer: Đã nhận %d message(s)", len(result.Messages))
	for _, message := range result.Messages {
		if message.Body == nil {
			log.Println("SQS Consumer: Nhận được message với body rỗng. Đang xóa...")
			c.deleteMessage(ctx, message.ReceiptHandle)
			continue
		}

		if err := c.handler.HandleGateMessage(ctx, *message.Body); err != nil {
			id := ""
			if message.MessageId != nil {
				id = *message.MessageId
			}
			log.Printf("SQS Consumer: Lỗi khi xử lý message ID %s: %v. Message sẽ được xử lý lại sau visibility timeout.", id, err)
			continue
		}
		c.deleteMessage(ctx, message.ReceiptHandle)
	}
	return nil
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		log.Println("SQS Consumer: Receipt handle rỗng, không thể xóa message.")
		return
	}
	_, delErr := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if delErr != nil {
		log.Printf("SQS Consumer: Lỗi khi xóa message: %v", delErr)
	}
}
