package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaWriter описывает часть *kafka.Writer, нужную для публикации.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Event описывает событие уведомления, публикуемое в Kafka.
type Event struct {
	EventID string    `json:"event_id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Kafka публикует уведомления как JSON-события.
type Kafka struct {
	writer KafkaWriter
	logger *zap.Logger
}

// NewKafkaWriter создаёт writer для списка брокеров через запятую. Пустой список даёт nil.
func NewKafkaWriter(brokersCSV, topic string) *kafka.Writer {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil
	}

	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

// NewKafka создаёт уведомитель поверх writer.
func NewKafka(w KafkaWriter, logger *zap.Logger) *Kafka {
	return &Kafka{writer: w, logger: logger}
}

func (k *Kafka) Success(ctx context.Context, msg string) { k.publish(ctx, LevelSuccess, msg) }

func (k *Kafka) Error(ctx context.Context, msg string) { k.publish(ctx, LevelError, msg) }

func (k *Kafka) publish(ctx context.Context, level Level, msg string) {
	ev := Event{
		EventID: uuid.NewString(),
		Level:   level,
		Message: msg,
		Time:    time.Now().UTC(),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		k.logger.Warn("encode notification event", zap.Error(err))
		return
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(level), Value: data, Time: ev.Time})
	if err != nil {
		k.logger.Warn("kafka notification failed", zap.String("event", ev.EventID), zap.Error(err))
	}
}
