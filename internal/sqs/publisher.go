package sqs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/iyhunko/eco-consumo/internal/model"
)

const (
	// ActionCached is published when a product was fetched upstream and stored.
	ActionCached = "cached"
	// ActionRated is published when a custom evaluation was stored.
	ActionRated = "rated"
)

// PublisherAPI defines the SQS operations used by Publisher.
type PublisherAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher handles publishing messages to AWS SQS.
type Publisher struct {
	client   PublisherAPI
	queueURL string
}

// NewPublisher creates a new SQS Publisher with the given client and queue URL.
func NewPublisher(client PublisherAPI, queueURL string) *Publisher {
	return &Publisher{
		client:   client,
		queueURL: queueURL,
	}
}

// ProductMessage represents a message about a product event.
type ProductMessage struct {
	Action           string   `json:"action"`
	Barcode          string   `json:"barcode"`
	Name             string   `json:"name"`
	EcoScore         string   `json:"eco_score"`
	CustomEvaluation *float64 `json:"custom_evaluation,omitempty"`
}

// NewProductMessage builds the event for action on product.
func NewProductMessage(action string, product *model.Product) ProductMessage {
	return ProductMessage{
		Action:           action,
		Barcode:          product.Barcode,
		Name:             product.Name,
		EcoScore:         product.EcoScore,
		CustomEvaluation: product.CustomEvaluation,
	}
}

// PublishProductMessage publishes a product message to the SQS queue.
func (p *Publisher) PublishProductMessage(ctx context.Context, msg ProductMessage) error {
	messageBody, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(messageBody)),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	return nil
}
