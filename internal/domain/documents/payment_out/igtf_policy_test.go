package payment_out

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIGTFPolicy_Default(t *testing.T) {
	p, err := NewIGTFPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultIGTFPolicy, p.String())

	for _, m := range Methods {
		applies, err := p.Applies(m, "VES")
		require.NoError(t, err)
		assert.True(t, applies, m)
	}
}

func TestIGTFPolicy_ForeignCurrencyOnly(t *testing.T) {
	p := MustIGTFPolicy(`method in ['CASH_USD', 'ZELLE', 'TRANSFER_USD'] || currency == 'EUR'`)

	tests := []struct {
		method   Method
		currency string
		want     bool
	}{
		{MethodZelle, "USD", true},
		{MethodCashUSD, "USD", true},
		{MethodPagoMovil, "VES", false},
		{MethodTransferVES, "EUR", true},
	}
	for _, tt := range tests {
		applies, err := p.Applies(tt.method, tt.currency)
		require.NoError(t, err)
		assert.Equal(t, tt.want, applies, "%s/%s", tt.method, tt.currency)
	}
}

func TestIGTFPolicy_Invalid(t *testing.T) {
	_, err := NewIGTFPolicy(`method ==`)
	assert.Error(t, err)

	_, err = NewIGTFPolicy(`method`)
	assert.ErrorContains(t, err, "must return bool")

	_, err = NewIGTFPolicy(`unknown_var == 1`)
	assert.Error(t, err)
}

func TestMethod_Valid(t *testing.T) {
	assert.True(t, MethodPagoMovil.Valid())
	assert.False(t, Method("CHEQUE").Valid())
}
