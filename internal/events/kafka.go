// Package events publishes persisted predictions to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"dengue-platform/internal/models"
)

// Config holds Kafka producer settings
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// PredictionEvent is the message body for one stored prediction
type PredictionEvent struct {
	ID             int64              `json:"id"`
	ModelType      string             `json:"model_type"`
	ModelVersion   string             `json:"model_version"`
	Date           models.Date        `json:"date"`
	SubDistrict    string             `json:"sub_district,omitempty"`
	Temperature    models.Measurement `json:"temperature_min_celsius"`
	Humidity       models.Measurement `json:"humidity_avg_percentage"`
	Precipitation  models.Measurement `json:"precipitation_mm"`
	PredictedCases float64            `json:"predicted_cases"`
	IncidenceRate  *float64           `json:"incidence_rate,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// KafkaPublisher produces prediction events to a topic
type KafkaPublisher struct {
	writer *kafkago.Writer
}

// NewKafkaPublisher creates a producer for the configured topic
func NewKafkaPublisher(cfg Config) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: cfg.BatchTimeout,
	}
	return &KafkaPublisher{writer: w}
}

// Publish sends one message per prediction in a single WriteMessages call.
// Messages for one area share a key so they land on one partition in order.
func (p *KafkaPublisher) Publish(ctx context.Context, predictions []*models.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(predictions))
	for i, pred := range predictions {
		msg, err := serializeToMessage(pred)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d prediction events: %w", len(msgs), err)
	}
	return nil
}

// Close flushes pending messages and closes the producer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func toEvent(p *models.Prediction) PredictionEvent {
	e := PredictionEvent{
		ID:             p.ID,
		ModelType:      p.ModelType,
		ModelVersion:   p.ModelVersion,
		Date:           models.Date(p.Date),
		Temperature:    models.MeasurementFromPtr(p.TemperatureMinCelsius),
		Humidity:       models.MeasurementFromPtr(p.HumidityAvgPercentage),
		Precipitation:  models.MeasurementFromPtr(p.PrecipitationMM),
		PredictedCases: p.PredictedCases,
		IncidenceRate:  p.IncidenceRate,
		CreatedAt:      p.CreatedAt,
	}
	if p.SubDistrict != nil {
		e.SubDistrict = *p.SubDistrict
	}
	return e
}

// messageKey partitions by sub-district, or by model type for district-wide rows
func messageKey(p *models.Prediction) string {
	if p.SubDistrict != nil && *p.SubDistrict != "" {
		return *p.SubDistrict
	}
	return p.ModelType
}

func serializeToMessage(p *models.Prediction) (kafkago.Message, error) {
	data, err := json.Marshal(toEvent(p))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(p)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "model_type", Value: []byte(p.ModelType)},
			{Key: "model_version", Value: []byte(p.ModelVersion)},
		},
	}, nil
}
