package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/gametimer/go/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // How long to keep alerts
	DuplicateWindow time.Duration // Window for duplicate detection
	PublishTimeout  time.Duration
	QueueSize       int
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "TIMER_ALERTS",
		SubjectPrefix:   "timer.alerts",
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
		PublishTimeout:  2 * time.Second,
		QueueSize:       64,
	}
}

// JetStreamPublisher publishes alerts to a JetStream stream for out-of-process
// collaborators such as the audio player. Notify only enqueues; Run publishes.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
	queue  chan models.Alert
}

func NewJetStreamPublisher(cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.Name("gametimer-alerts"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultJetStreamConfig().QueueSize
	}
	p := &JetStreamPublisher{
		nc:     nc,
		js:     js,
		config: cfg,
		queue:  make(chan models.Alert, cfg.QueueSize),
	}

	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Timer alerts for audio and notification collaborators",
		Subjects:    []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		Storage:     jetstream.MemoryStorage,
		Replicas:    1,
		Duplicates:  p.config.DuplicateWindow,
	}

	stream, err := p.js.Stream(ctx, p.config.StreamName)
	if err != nil {
		if _, err = p.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().
			Str("stream", p.config.StreamName).
			Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !isStreamConfigEqual(info.Config, sc) {
		if _, err = p.js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().
			Str("stream", p.config.StreamName).
			Msg("updated JetStream stream")
	}
	return nil
}

// Notify queues an alert for publishing, dropping it if the queue is full.
func (p *JetStreamPublisher) Notify(alert models.Alert) {
	select {
	case p.queue <- alert:
	default:
		log.Warn().
			Str("alert_id", alert.ID.String()).
			Str("timer_id", alert.TimerID).
			Msg("alert queue full, dropping alert")
	}
}

// Run publishes queued alerts until ctx is done.
func (p *JetStreamPublisher) Run(ctx context.Context) error {
	log.Info().Str("stream", p.config.StreamName).Msg("alert publisher started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("alert publisher shutting down")
			return nil
		case alert := <-p.queue:
			pubCtx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
			if err := p.Publish(pubCtx, alert); err != nil {
				log.Error().
					Err(err).
					Str("alert_id", alert.ID.String()).
					Msg("failed to publish alert")
			}
			cancel()
		}
	}
}

func (p *JetStreamPublisher) Publish(ctx context.Context, alert models.Alert) error {
	subject := fmt.Sprintf("%s.%s", p.config.SubjectPrefix, alert.Kind)

	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Alert-Kind": []string{string(alert.Kind)},
			"Timer-ID":   []string{alert.TimerID},
			"Alert-ID":   []string{alert.ID.String()},
		},
	},
		jetstream.WithMsgID(alert.ID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("alert_id", alert.ID.String()).
		Uint64("sequence", ack.Sequence).
		Msg("published alert")

	return nil
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

func isStreamConfigEqual(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		a.MaxAge == b.MaxAge &&
		a.Storage == b.Storage &&
		a.Duplicates == b.Duplicates
}
