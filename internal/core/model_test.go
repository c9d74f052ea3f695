package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusOutOfStock, StatusFor(0, 5))
	assert.Equal(t, StatusLowStock, StatusFor(5, 5), "at the threshold counts as low")
	assert.Equal(t, StatusLowStock, StatusFor(1, 5))
	assert.Equal(t, StatusNormal, StatusFor(6, 5))
	assert.Equal(t, StatusNormal, StatusFor(1, 0))
	assert.Equal(t, StatusOutOfStock, StatusFor(0, 0))
}

func TestNextStatus_PreservesDiscontinued(t *testing.T) {
	assert.Equal(t, StatusDiscontinued, NextStatus(StatusDiscontinued, 100, 5))
	assert.Equal(t, StatusDiscontinued, NextStatus(StatusDiscontinued, 0, 5))
	assert.Equal(t, StatusNormal, NextStatus(StatusLowStock, 100, 5))
	assert.Equal(t, StatusOutOfStock, NextStatus(StatusNormal, 0, 5))
}

func TestItemTotalValue(t *testing.T) {
	item := Item{Price: decimal.RequireFromString("9.50"), Stock: 32}
	assert.True(t, item.TotalValue().Equal(decimal.RequireFromString("304")))

	empty := Item{Price: decimal.RequireFromString("9.50"), Stock: 0}
	assert.True(t, empty.TotalValue().IsZero())
}

func TestOperationKind(t *testing.T) {
	for _, k := range []OperationKind{OpIn, OpOut, OpTransfer, OpAdjust, OpCheck} {
		assert.True(t, k.Valid(), string(k))
		assert.NotEmpty(t, k.Label())
	}
	assert.False(t, OperationKind("restock").Valid())
}
