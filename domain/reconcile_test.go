package domain

import (
	"testing"
	"time"

	"sacco/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		timedOut bool
		want     models.TransactionStatus
	}{
		{"success", 0, false, models.TransactionStatusSuccess},
		{"cancelled by user", 1032, false, models.TransactionStatusFailed},
		{"insufficient funds", 1, false, models.TransactionStatusFailed},
		{"unreachable", 1037, false, models.TransactionStatusTimeout},
		{"request expired", 1019, false, models.TransactionStatusTimeout},
		{"queue timeout url", 0, true, models.TransactionStatusTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeStatus(tt.code, tt.timedOut))
		})
	}
}

func TestSettleTransaction(t *testing.T) {
	now := time.Now()
	tx := &models.Transaction{ID: 1, Reference: "ref-1", Status: models.TransactionStatusProcessing}

	settled, err := SettleTransaction(tx, models.TransactionStatusSuccess, 0, "ok", now)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, settled.Status)
	assert.Equal(t, 0, *settled.ResultCode)
	assert.Equal(t, "ok", *settled.ResultDesc)
	assert.Equal(t, &now, settled.CompletedAt)
	assert.Equal(t, models.TransactionStatusProcessing, tx.Status, "input must not be mutated")

	_, err = SettleTransaction(settled, models.TransactionStatusFailed, 1, "late", now)
	assert.True(t, IsConflict(err))

	_, err = SettleTransaction(tx, models.TransactionStatusProcessing, 0, "", now)
	assert.True(t, IsValidation(err))
}

func TestMatchesCallback(t *testing.T) {
	corr := "AG_20260101_0001"
	tx := &models.Transaction{Reference: "ref-1", CorrelationID: &corr, Type: models.TransactionTypeC2B}

	tests := []struct {
		name string
		cb   models.GatewayCallback
		want bool
	}{
		{"both match", models.GatewayCallback{Type: models.TransactionTypeC2B, Reference: "ref-1", CorrelationID: corr}, true},
		{"reference only", models.GatewayCallback{Type: models.TransactionTypeC2B, Reference: "ref-1"}, true},
		{"correlation only", models.GatewayCallback{Type: models.TransactionTypeC2B, CorrelationID: corr}, true},
		{"wrong type", models.GatewayCallback{Type: models.TransactionTypeB2C, Reference: "ref-1"}, false},
		{"wrong reference", models.GatewayCallback{Type: models.TransactionTypeC2B, Reference: "ref-2", CorrelationID: corr}, false},
		{"wrong correlation", models.GatewayCallback{Type: models.TransactionTypeC2B, Reference: "ref-1", CorrelationID: "other"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesCallback(tx, tt.cb))
		})
	}

	unbound := &models.Transaction{Reference: "ref-1", Type: models.TransactionTypeC2B}
	assert.True(t, MatchesCallback(unbound, models.GatewayCallback{Type: models.TransactionTypeC2B, Reference: "ref-1", CorrelationID: "new"}))
}
