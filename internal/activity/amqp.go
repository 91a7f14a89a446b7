package activity

import (
	"context"
	"time"

	"github.com/Azure/go-amqp"
)

type sender interface {
	Send(ctx context.Context, msg *amqp.Message, opts *amqp.SendOptions) error
}

// AMQPRecorder publishes events to an AMQP 1.0 queue. A session and sender
// are opened per event.
type AMQPRecorder struct {
	conn       *amqp.Conn
	queue      string
	openSender func(ctx context.Context) (sender, func(), error)
}

func DialAMQP(ctx context.Context, url, queue string) (*AMQPRecorder, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := amqp.Dial(dialCtx, url, &amqp.ConnOptions{IdleTimeout: 30 * time.Second})
	if err != nil {
		return nil, err
	}
	return NewAMQPRecorder(conn, queue), nil
}

func NewAMQPRecorder(conn *amqp.Conn, queue string) *AMQPRecorder {
	r := &AMQPRecorder{conn: conn, queue: queue}
	r.openSender = r.sessionSender
	return r
}

func (r *AMQPRecorder) sessionSender(ctx context.Context) (sender, func(), error) {
	session, err := r.conn.NewSession(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	s, err := session.NewSender(ctx, r.queue, nil)
	if err != nil {
		_ = session.Close(ctx)
		return nil, nil, err
	}
	return s, func() {
		_ = s.Close(ctx)
		_ = session.Close(ctx)
	}, nil
}

func (r *AMQPRecorder) Record(ctx context.Context, event Event) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	s, closeFn, err := r.openSender(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return s.Send(ctx, msg, nil)
}

func (r *AMQPRecorder) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

func toMessage(event Event) (*amqp.Message, error) {
	body, err := encode(event)
	if err != nil {
		return nil, err
	}
	contentType := "application/json"
	subject := event.Name
	return &amqp.Message{
		Data: [][]byte{body},
		Properties: &amqp.MessageProperties{
			ContentType: &contentType,
			Subject:     &subject,
		},
	}, nil
}
