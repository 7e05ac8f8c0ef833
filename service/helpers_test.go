package service

import (
	"time"

	"sacco/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// decimalEq matches a decimal argument by value rather than representation
func decimalEq(s string) interface{} {
	want := money(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func eventOfType(eventType events.EventType) interface{} {
	return mock.MatchedBy(func(e events.Event) bool { return e.Type() == eventType })
}

func newMockFactory(uow *MockUnitOfWork) *MockUnitOfWorkFactory {
	factory := new(MockUnitOfWorkFactory)
	factory.On("Create").Return(uow)
	return factory
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
