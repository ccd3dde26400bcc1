package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/core/apperror"
	"procurement/internal/core/id"
)

func validate(t *testing.T, obj any) error {
	t.Helper()
	SetupValidator()
	return binding.Validator.ValidateStruct(obj)
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	appErr := BindingError("invalid request body", err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	fields, ok := appErr.Details["fields"].(map[string]string)
	require.True(t, ok, "details: %v", appErr.Details)
	return fields
}

func TestDecimalRules(t *testing.T) {
	line := func(qty, price string) OrderLineRequest {
		return OrderLineRequest{
			ProductID: id.New().String(),
			Quantity:  decimal.RequireFromString(qty),
			UnitPrice: decimal.RequireFromString(price),
		}
	}

	cases := []struct {
		name    string
		line    OrderLineRequest
		invalid []string
	}{
		{"valid", line("1.5", "0"), nil},
		{"zero quantity", line("0", "10"), []string{"lines[0].quantity"}},
		{"negative quantity", line("-2", "10"), []string{"lines[0].quantity"}},
		{"negative price", line("3", "-0.01"), []string{"lines[0].unitPrice"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := CreatePurchaseOrderRequest{SupplierID: id.New().String(), Lines: []OrderLineRequest{tc.line}}
			err := validate(t, &req)
			if tc.invalid == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			fields := fieldsOf(t, err)
			for _, f := range tc.invalid {
				assert.Contains(t, fields, f)
			}
			assert.Len(t, fields, len(tc.invalid))
		})
	}
}

func TestOptionalDecimalPointer(t *testing.T) {
	negative := decimal.NewFromInt(-1)
	req := AllocatePaymentRequest{
		Method: "ZELLE",
		Bills:  []BillAllocationRequest{{BillID: id.New().String(), AmountApplied: decimal.NewFromInt(5)}},
	}
	assert.NoError(t, validate(t, &req))

	req.ExchangeRate = &negative
	err := validate(t, &req)
	require.Error(t, err)
	assert.Equal(t, "must be a decimal greater than zero", fieldsOf(t, err)["exchangeRate"])
}

func TestEnumAndRequiredMessages(t *testing.T) {
	req := AllocatePaymentRequest{Method: "CHEQUE"}
	err := validate(t, &req)
	require.Error(t, err)

	fields := fieldsOf(t, err)
	assert.Equal(t, "must be one of: CASH_USD CASH_VES ZELLE TRANSFER_VES TRANSFER_USD PAGO_MOVIL", fields["method"])
	assert.Equal(t, "is required", fields["bills"])
}

func TestBindingError_NonValidationError(t *testing.T) {
	appErr := BindingError("invalid request body", assert.AnError)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, assert.AnError.Error(), appErr.Details["error"])
}

func TestParseID(t *testing.T) {
	want := id.New()
	got, err := ParseID("orderId", want.String())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseID("orderId", "42")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	opt, err := ParseOptionalID("billId", "")
	require.NoError(t, err)
	assert.Nil(t, opt)
}

func TestListQuery_Filter(t *testing.T) {
	f := ListQuery{Search: "  toner ", Limit: 0}.Filter()
	assert.Equal(t, "toner", f.Search)
	assert.Positive(t, f.Limit)
}
