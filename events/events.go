package events

import (
	"context"
	"sync"

	"sacco/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeSavingsBalanceChanged EventType = "savings_balance_changed"
	EventTypeContributionRecorded  EventType = "contribution_recorded"
	EventTypeLoanStatusChanged     EventType = "loan_status_changed"
	EventTypeGuarantorResponded    EventType = "guarantor_responded"
	EventTypeGuarantorExpired      EventType = "guarantor_expired"
	EventTypeTransactionInitiated  EventType = "transaction_initiated"
	EventTypeTransactionSettled    EventType = "transaction_settled"
	EventTypePensionCredited       EventType = "pension_credited"
	EventTypeInterestApplied       EventType = "interest_applied"
)

// AllEventTypes lists every event type the core raises
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeSavingsBalanceChanged,
		EventTypeContributionRecorded,
		EventTypeLoanStatusChanged,
		EventTypeGuarantorResponded,
		EventTypeGuarantorExpired,
		EventTypeTransactionInitiated,
		EventTypeTransactionSettled,
		EventTypePensionCredited,
		EventTypeInterestApplied,
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// SavingsBalanceChangedEvent represents a savings balance change that occurred
type SavingsBalanceChangedEvent struct {
	MemberID         int64                    `json:"member_id"`
	SavingsAccountID int64                    `json:"savings_account_id"`
	OldBalance       decimal.Decimal          `json:"old_balance"`
	NewBalance       decimal.Decimal          `json:"new_balance"`
	ChangeAmount     decimal.Decimal          `json:"change_amount"`
	ChangeType       models.BalanceChangeType `json:"change_type"`
}

func (e SavingsBalanceChangedEvent) Type() EventType {
	return EventTypeSavingsBalanceChanged
}

// ContributionRecordedEvent represents a contribution split between savings and pension
type ContributionRecordedEvent struct {
	ContributionID    int64           `json:"contribution_id"`
	MemberID          int64           `json:"member_id"`
	ContributedAmount decimal.Decimal `json:"contributed_amount"`
	PensionAmount     decimal.Decimal `json:"pension_amount"`
	VSLAAmount        decimal.Decimal `json:"vsla_amount"`
}

func (e ContributionRecordedEvent) Type() EventType {
	return EventTypeContributionRecorded
}

// LoanStatusChangedEvent represents a loan workflow transition
type LoanStatusChangedEvent struct {
	LoanID    int64             `json:"loan_id"`
	MemberID  int64             `json:"member_id"`
	OldStatus models.LoanStatus `json:"old_status"`
	NewStatus models.LoanStatus `json:"new_status"`
}

func (e LoanStatusChangedEvent) Type() EventType {
	return EventTypeLoanStatusChanged
}

// GuarantorRespondedEvent represents a guarantor approving or rejecting a loan
type GuarantorRespondedEvent struct {
	GuarantorID int64                  `json:"guarantor_id"`
	LoanID      int64                  `json:"loan_id"`
	MemberID    int64                  `json:"member_id"`
	Status      models.GuarantorStatus `json:"status"`
}

func (e GuarantorRespondedEvent) Type() EventType {
	return EventTypeGuarantorResponded
}

// GuarantorExpiredEvent represents a guarantor request that timed out
type GuarantorExpiredEvent struct {
	GuarantorID int64 `json:"guarantor_id"`
	LoanID      int64 `json:"loan_id"`
	MemberID    int64 `json:"member_id"`
}

func (e GuarantorExpiredEvent) Type() EventType {
	return EventTypeGuarantorExpired
}

// TransactionInitiatedEvent represents a transaction opened against the gateway
type TransactionInitiatedEvent struct {
	TransactionID int64                     `json:"transaction_id"`
	Reference     string                    `json:"reference"`
	TxType        models.TransactionType    `json:"transaction_type"`
	Purpose       models.TransactionPurpose `json:"purpose"`
	Amount        decimal.Decimal           `json:"amount"`
}

func (e TransactionInitiatedEvent) Type() EventType {
	return EventTypeTransactionInitiated
}

// TransactionSettledEvent represents a transaction reaching a terminal status
type TransactionSettledEvent struct {
	TransactionID int64                     `json:"transaction_id"`
	Reference     string                    `json:"reference"`
	TxType        models.TransactionType    `json:"transaction_type"`
	Purpose       models.TransactionPurpose `json:"purpose"`
	Status        models.TransactionStatus  `json:"status"`
	Amount        decimal.Decimal           `json:"amount"`
}

func (e TransactionSettledEvent) Type() EventType {
	return EventTypeTransactionSettled
}

// PensionCreditedEvent represents a confirmed pension transfer
type PensionCreditedEvent struct {
	MemberID       int64           `json:"member_id"`
	ContributionID int64           `json:"contribution_id"`
	Amount         decimal.Decimal `json:"amount"`
}

func (e PensionCreditedEvent) Type() EventType {
	return EventTypePensionCredited
}

// InterestAppliedEvent represents a completed daily interest run
type InterestAppliedEvent struct {
	RunID            int64           `json:"run_id"`
	TotalInterest    decimal.Decimal `json:"total_interest"`
	AccountsAffected int             `json:"accounts_affected"`
}

func (e InterestAppliedEvent) Type() EventType {
	return EventTypeInterestApplied
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make([]Handler, 0)
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on main event bus")
}

// SubscribeAll adds a handler for every event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes() {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on main event bus")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			log.WithFields(log.Fields{
				"eventType":    event.Type(),
				"handlerIndex": handlerIndex,
			}).Debug("Calling event handler")
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits

type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Flush emits pending events, called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events from transactional bus to main event bus")

	// Handlers outlive the request, so they must not inherit its cancellation
	eventCtx := context.Background()

	for _, ev := range b.pending {
		log.WithFields(log.Fields{
			"eventType": ev.Type(),
		}).Debug("Emitting event to main event bus")
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	log.Debug("All pending events flushed, transactional bus cleared")
	return nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
