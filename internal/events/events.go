// Package events carries ingest notifications between the watcher and the API
// over NATS.
package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultSubject is used when EVENTS_SUBJECT is not configured.
const DefaultSubject = "hazard.alerts.ingested"

// Ingested announces that new or changed alerts were written to the store.
type Ingested struct {
	Count  int       `json:"count"`
	Source string    `json:"source"`
	At     time.Time `json:"at"`
}

// Bus publishes and subscribes to Ingested events on one subject.
type Bus struct {
	conn    *nats.Conn
	subject string
}

// Connect dials NATS. name identifies the client in server monitoring.
func Connect(url, subject, name string) (*Bus, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connect nats %s", url)
	}
	log.Info().Str("url", url).Str("subject", subject).Msg("NATS connection established")
	return &Bus{conn: conn, subject: subject}, nil
}

// PublishIngested sends ev and flushes so short-lived publishers do not drop it.
func (b *Bus) PublishIngested(ev Ingested) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(b.subject, payload); err != nil {
		return errors.Wrap(err, "publish ingested event")
	}
	return b.conn.FlushTimeout(5 * time.Second)
}

// OnIngested invokes handler for every well-formed event on the subject.
func (b *Bus) OnIngested(handler func(Ingested)) (*nats.Subscription, error) {
	return b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		ev, err := DecodeIngested(msg.Data)
		if err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping malformed ingest event")
			return
		}
		handler(ev)
	})
}

// DecodeIngested parses an event payload.
func DecodeIngested(data []byte) (Ingested, error) {
	var ev Ingested
	if err := json.Unmarshal(data, &ev); err != nil {
		return Ingested{}, errors.Wrap(err, "decode ingested event")
	}
	return ev, nil
}

// Close drains the connection, falling back to an immediate close.
func (b *Bus) Close() {
	if b == nil || b.conn == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
		b.conn.Close()
	}
}
