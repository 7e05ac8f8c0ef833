package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"sacco/events"
	"sacco/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func TestEventStreamer_PublishWrapsEventInEnvelope(t *testing.T) {
	publisher := new(MockMessagePublisher)
	streamer := NewEventStreamer(publisher)
	streamer.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	event := events.TransactionSettledEvent{
		TransactionID: 7,
		Reference:     "ref-7",
		TxType:        models.TransactionTypeC2B,
		Purpose:       models.TransactionPurposeSavings,
		Status:        models.TransactionStatusSuccess,
		Amount:        decimal.RequireFromString("1000.00"),
	}

	var sent []byte
	publisher.On("Publish", mock.Anything, "sacco.transaction_settled", mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(2).([]byte) }).
		Return(nil)

	require.NoError(t, streamer.Publish(context.Background(), event))

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(sent, &envelope))
	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, "transaction_settled", envelope.EventType)
	assert.Equal(t, "sacco", envelope.SourceService)
	assert.True(t, envelope.Timestamp.Equal(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))

	var payload events.TransactionSettledEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, int64(7), payload.TransactionID)
	assert.Equal(t, models.TransactionStatusSuccess, payload.Status)
	assert.True(t, payload.Amount.Equal(decimal.RequireFromString("1000")))
	publisher.AssertExpectations(t)
}

func TestEventStreamer_PublishError(t *testing.T) {
	publisher := new(MockMessagePublisher)
	streamer := NewEventStreamer(publisher)

	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("no responders"))

	err := streamer.Publish(context.Background(), events.GuarantorExpiredEvent{GuarantorID: 1})

	assert.Error(t, err)
}

func TestEventStreamer_RegisterForwardsBusEvents(t *testing.T) {
	publisher := new(MockMessagePublisher)
	streamer := NewEventStreamer(publisher)
	bus := events.NewBus()
	streamer.Register(bus)

	delivered := make(chan string, 1)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { delivered <- args.String(1) }).
		Return(nil)

	bus.Emit(context.Background(), events.GuarantorExpiredEvent{GuarantorID: 1, LoanID: 2, MemberID: 3})

	select {
	case subject := <-delivered:
		assert.Equal(t, "sacco.guarantor_expired", subject)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not streamed")
	}
}

func TestSubjects(t *testing.T) {
	subjects := Subjects()

	assert.Len(t, subjects, len(events.AllEventTypes()))
	assert.Contains(t, subjects, "sacco.loan_status_changed")
	for _, s := range subjects {
		assert.Regexp(t, `^sacco\.[a-z_]+$`, s)
	}
}
