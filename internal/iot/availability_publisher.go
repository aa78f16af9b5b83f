package iot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"parksmart/internal/domain"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
)

type mqttPublisher interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// AvailabilityPublisher đẩy số chỗ trống tới bảng hiển thị của từng bãi qua AWS IoT Core,
// topic "<prefix>/<lot_id>/availability".
type AvailabilityPublisher struct {
	client      mqttPublisher
	topicPrefix string
}

func NewAvailabilityPublisher(client *iotdataplane.Client, topicPrefix string) *AvailabilityPublisher {
	return &AvailabilityPublisher{client: client, topicPrefix: strings.TrimSuffix(topicPrefix, "/")}
}

func (p *AvailabilityPublisher) Topic(lotID int) string {
	return fmt.Sprintf("%s/%d/availability", p.topicPrefix, lotID)
}

func (p *AvailabilityPublisher) Publish(ctx context.Context, update domain.AvailabilityUpdate) error {
	payload, err := json.Marshal(update.ForMap())
	if err != nil {
		return fmt.Errorf("lỗi marshal payload số chỗ trống: %w", err)
	}

	topic := p.Topic(update.LotID)
	_, err = p.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(topic),
		Qos:     1,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("lỗi publish MQTT tới %s: %w", topic, err)
	}
	log.Printf("AvailabilityPublisher: Bãi %d còn %d chỗ -> %s", update.LotID, update.CurrentAvailable, topic)
	return nil
}
