package stream

import (
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/model"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"
)

// RunHandler processes a run directory received from the intake subject.
type RunHandler func(dir string)

// Intake subscribes to run requests on NATS.
type Intake struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	closed  chan struct{}
}

// NewIntake connects to the configured NATS server.
func NewIntake(cfg config.StreamConfig) (*Intake, error) {
	closed := make(chan struct{})
	nc, err := nats.Connect(cfg.NATSURL, nats.ClosedHandler(func(*nats.Conn) { close(closed) }))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Intake{nc: nc, subject: cfg.RunSubject, closed: closed}, nil
}

// Start subscribes to the run subject and passes every decoded request to handler.
func (i *Intake) Start(handler RunHandler) error {
	sub, err := i.nc.Subscribe(i.subject, func(msg *nats.Msg) {
		dir, err := DecodeRunRequest(msg.Data)
		if err != nil {
			log.Printf("Error decoding run request: %v", err)
			return
		}
		handler(dir)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to '%s': %w", i.subject, err)
	}
	i.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for run requests...", i.subject)
	return nil
}

// Close drains the subscription and the connection. It returns once every
// pending run request went through the handler and the connection is closed.
func (i *Intake) Close() {
	if i.nc == nil {
		return
	}
	if err := i.nc.Drain(); err != nil {
		log.Printf("Error draining NATS intake: %v", err)
		i.nc.Close()
	}
	<-i.closed
	log.Println("NATS intake connection closed.")
}

// Publisher sends run requests and report summaries to NATS.
type Publisher struct {
	nc            *nats.Conn
	runSubject    string
	reportSubject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.StreamConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, runSubject: cfg.RunSubject, reportSubject: cfg.ReportSubject}, nil
}

// SubmitRun asks the engine to analyze a run directory.
func (p *Publisher) SubmitRun(dir string) error {
	data, err := EncodeRunRequest(dir)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.runSubject, data)
}

// PublishReport serializes a report summary to protobuf and publishes it.
func (p *Publisher) PublishReport(report *model.RunReport) error {
	s, err := ReportStruct(report)
	if err != nil {
		return fmt.Errorf("failed to build report struct: %w", err)
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.reportSubject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
