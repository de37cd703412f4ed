package mq

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/domain/task"
)

func TestEncodeDecode(t *testing.T) {
	caller := entity.Caller{UserID: "u-1", TenantID: "tenant-1", Roles: []string{"director"}}
	original := task.NewTask(task.OperationUpdate, "t-1", caller, entity.Document{
		task.KeyNextStatusCode: "approved",
	})

	msg, err := Encode(original)
	require.NoError(t, err)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, original.ID, msg.MessageId)
	assert.Equal(t, "update", msg.Type)
	assert.Equal(t, "ticket.update", RoutingKey(original))

	decoded, err := Decode(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.TicketID, decoded.TicketID)
	assert.Equal(t, caller.Roles, decoded.Caller.Roles)
	assert.Equal(t, "approved", decoded.Payload.GetString(task.KeyNextStatusCode))
}

func TestDecodeRejectsUnknownOperation(t *testing.T) {
	_, err := Decode([]byte(`{"id":"x","operation":"archive"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{`))
	assert.Error(t, err)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(apperr.Conflict("lost update")))
	assert.True(t, IsPermanent(fmt.Errorf("wrapped: %w", apperr.Forbidden("role"))))
	assert.False(t, IsPermanent(errors.New("database is locked")))
}

func TestConfigDeadLetterTopology(t *testing.T) {
	cfg := Config{Exchange: "aflo", Queue: "aflo.tickets"}
	assert.Equal(t, "aflo.dlx", cfg.DeadLetterExchange())
	assert.Equal(t, "aflo.tickets.dead", cfg.DeadLetterQueue())
	assert.Equal(t, "aflo.dlx", cfg.QueueArgs()["x-dead-letter-exchange"])
}

// recordingAcker captures how a delivery was settled
type recordingAcker struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (r *recordingAcker) Ack(tag uint64, multiple bool) error {
	r.acked = true
	return nil
}

func (r *recordingAcker) Nack(tag uint64, multiple, requeue bool) error {
	r.nacked = true
	r.requeue = requeue
	return nil
}

func (r *recordingAcker) Reject(tag uint64, requeue bool) error {
	return r.Nack(tag, false, requeue)
}

func TestConsumerHandleSettlement(t *testing.T) {
	tk := task.NewTask(task.OperationUpdate, "t-1", entity.Caller{UserID: "u-1"}, entity.Document{})
	msg, err := Encode(tk)
	require.NoError(t, err)

	tests := []struct {
		name        string
		body        []byte
		redelivered bool
		handlerErr  error
		wantAck     bool
		wantRequeue bool
	}{
		{name: "success", body: msg.Body, wantAck: true},
		{name: "rejected task", body: msg.Body, handlerErr: apperr.Conflict("lost update"), wantAck: true},
		{name: "first failure requeues", body: msg.Body, handlerErr: errors.New("database is locked"), wantRequeue: true},
		{name: "second failure dead-letters", body: msg.Body, redelivered: true, handlerErr: errors.New("database is locked")},
		{name: "undecodable", body: []byte(`{`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acker := &recordingAcker{}
			c := &Consumer{deadLetter: "aflo.tickets.dead", logger: zap.NewNop()}
			delivery := amqp091.Delivery{Acknowledger: acker, Body: tt.body, Redelivered: tt.redelivered}

			c.handle(context.Background(), delivery, func(ctx context.Context, got *task.Task) error {
				assert.Equal(t, tk.ID, got.ID)
				return tt.handlerErr
			})

			assert.Equal(t, tt.wantAck, acker.acked)
			assert.Equal(t, !tt.wantAck, acker.nacked)
			assert.Equal(t, tt.wantRequeue, acker.requeue)
		})
	}
}

func TestConsumerLogsDeadLetteredTask(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	tk := task.NewTask(task.OperationCreate, "t-9", entity.Caller{UserID: "u-1"}, entity.Document{})
	msg, err := Encode(tk)
	require.NoError(t, err)

	c := &Consumer{deadLetter: "aflo.tickets.dead", logger: zap.New(core)}
	delivery := amqp091.Delivery{Acknowledger: &recordingAcker{}, Body: msg.Body, Redelivered: true}
	c.handle(context.Background(), delivery, func(ctx context.Context, got *task.Task) error {
		return errors.New("connection reset")
	})

	entries := logs.FilterMessage("Task dead-lettered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, tk.ID, entries[0].ContextMap()["task_id"])
	assert.Equal(t, "aflo.tickets.dead", entries[0].ContextMap()["queue"])
}
