package feed

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "papertrader/internal/errors"
	"papertrader/internal/logging"
	"papertrader/internal/models"
)

// NATSConfig configures the NATS price source.
type NATSConfig struct {
	URL     string
	Subject string
	Name    string
}

// DefaultNATSConfig returns the default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:     nats.DefaultURL,
		Subject: "prices.>",
		Name:    "papertrader",
	}
}

// TickMessage is the JSON body of a price message.
type TickMessage struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// DecodeTick parses a price message.
func DecodeTick(data []byte) (models.Tick, error) {
	var msg TickMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.Tick{}, apperrors.Wrap(err, "decode tick")
	}
	if msg.Symbol == "" {
		return models.Tick{}, apperrors.NewValidationError("symbol", msg.Symbol, "is required")
	}
	if !msg.Price.IsPositive() {
		return models.Tick{}, &apperrors.ValidationError{Field: "price", Value: msg.Price, Message: "must be greater than zero", Err: apperrors.ErrInvalidPrice}
	}
	return models.Tick{Symbol: msg.Symbol, Price: msg.Price, Timestamp: msg.Timestamp}, nil
}

// EncodeTick builds a price message for tick.
func EncodeTick(tick models.Tick) ([]byte, error) {
	return json.Marshal(TickMessage{Symbol: tick.Symbol, Price: tick.Price, Timestamp: tick.Timestamp})
}

// NATSSource subscribes to a NATS subject and publishes decoded ticks to a
// Consumer.
type NATSSource struct {
	conn     *nats.Conn
	sub      *nats.Subscription
	consumer *Consumer
	log      zerolog.Logger
}

// ConnectNATS connects to cfg.URL and subscribes to cfg.Subject.
func ConnectNATS(cfg NATSConfig, consumer *Consumer, logger zerolog.Logger) (*NATSSource, error) {
	log := logging.WithComponent(logger, "nats")

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, apperrors.Wrapf(err, "connect %s", cfg.URL)
	}

	s := &NATSSource{conn: conn, consumer: consumer, log: log}
	s.sub, err = conn.Subscribe(cfg.Subject, s.handle)
	if err != nil {
		conn.Close()
		return nil, apperrors.Wrapf(err, "subscribe %s", cfg.Subject)
	}

	log.Info().Str("subject", cfg.Subject).Str("url", cfg.URL).Msg("Subscribed to prices")
	return s, nil
}

// handle runs on the subscription goroutine, one message at a time.
func (s *NATSSource) handle(msg *nats.Msg) {
	tick, err := DecodeTick(msg.Data)
	if err != nil {
		s.log.Warn().Err(err).Str("subject", msg.Subject).Msg("Dropping invalid price message")
		return
	}
	if err := s.consumer.Publish(tick); err != nil {
		s.log.Debug().Err(err).Msg("Consumer closed")
	}
}

// Close unsubscribes and closes the connection.
func (s *NATSSource) Close() {
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	s.conn.Close()
}
