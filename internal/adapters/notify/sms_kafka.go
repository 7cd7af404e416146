package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const DefaultSMSTopic = "sms.accepted"

// MessageWriter is the part of *kafka.Writer the SMS sender needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// SMSRequest is the payload the messaging gateway consumes.
type SMSRequest struct {
	MessageID string    `json:"message_id"`
	To        string    `json:"to"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// KafkaSMSSender hands customer SMS to the messaging gateway through Kafka.
// A successful write means the gateway accepted the message, not that the
// handset received it.
type KafkaSMSSender struct {
	w      MessageWriter
	source string
	now    func() time.Time
}

// NewKafkaWriter builds a synchronous writer so each send reports its own error.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultSMSTopic
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}
}

func NewKafkaSMSSender(w MessageWriter) *KafkaSMSSender {
	return &KafkaSMSSender{w: w, source: "route-dispatch", now: time.Now}
}

// SendSMS publishes one message keyed by phone number and returns its id.
func (s *KafkaSMSSender) SendSMS(ctx context.Context, phone, text string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", fmt.Errorf("send sms: empty phone number")
	}

	req := SMSRequest{
		MessageID: uuid.NewString(),
		To:        phone,
		Message:   text,
		Source:    s.source,
		CreatedAt: s.now().UTC(),
	}
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("send sms: marshal payload: %w", err)
	}

	err = s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(phone),
		Value: b,
		Time:  req.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("send sms to %s: %w", phone, err)
	}
	return req.MessageID, nil
}
