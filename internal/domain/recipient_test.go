package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRecipient(t *testing.T) {
	common := RecipientDetails{Name: "Ada", Email: "ada@example.com", Country: "GB"}

	withDest := func(d Destination) RecipientDetails {
		r := common
		r.Destination = d
		return r
	}

	tests := []struct {
		name        string
		details     RecipientDetails
		method      DeliveryMethod
		wantMissing []string
		wantErr     error
	}{
		{
			name:    "bank complete without bank name",
			details: withDest(BankDestination{AccountNumber: "12345678"}),
			method:  DeliveryMethodBank,
		},
		{
			name:        "bank with only name",
			details:     RecipientDetails{Name: "Ada", Destination: BankDestination{}},
			method:      DeliveryMethodBank,
			wantMissing: []string{"email", "country", "accountNumber"},
		},
		{
			name:    "card complete",
			details: withDest(CardDestination{CardNumber: "4111111111111111", ExpiryDate: "12/29", CVV: "123"}),
			method:  DeliveryMethodCard,
		},
		{
			name:        "card missing expiry and cvv",
			details:     withDest(CardDestination{CardNumber: "4111111111111111"}),
			method:      DeliveryMethodCard,
			wantMissing: []string{"expiryDate", "cvv"},
		},
		{
			name:        "cash missing id number",
			details:     withDest(CashDestination{PickupLocation: "Lagos Central"}),
			method:      DeliveryMethodCash,
			wantMissing: []string{"idNumber"},
		},
		{
			name:        "whitespace counts as missing",
			details:     withDest(CashDestination{PickupLocation: "  ", IDNumber: "A1"}),
			method:      DeliveryMethodCash,
			wantMissing: []string{"pickupLocation"},
		},
		{
			name:        "destination of another method",
			details:     withDest(BankDestination{AccountNumber: "12345678"}),
			method:      DeliveryMethodCash,
			wantMissing: []string{"pickupLocation", "idNumber"},
		},
		{
			name:        "nil destination",
			details:     common,
			method:      DeliveryMethodCard,
			wantMissing: []string{"cardNumber", "expiryDate", "cvv"},
		},
		{
			name:    "unknown method",
			details: common,
			method:  DeliveryMethod("pigeon"),
			wantErr: ErrInvalidDeliveryMethod,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRecipient(tc.details, tc.method)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			if tc.wantMissing == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrMissingFields)
			var mf *MissingFieldsError
			require.True(t, errors.As(err, &mf))
			assert.Equal(t, tc.wantMissing, mf.Fields)
		})
	}
}

func TestRecipientDetails_JSON(t *testing.T) {
	in := RecipientDetails{
		Name:        "Ada",
		Email:       "ada@example.com",
		Country:     "GB",
		Destination: CardDestination{CardNumber: "4111111111111111", ExpiryDate: "12/29", CVV: "123"},
	}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"method":"card"`)

	var out RecipientDetails
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestCardDestination_Masked(t *testing.T) {
	masked := CardDestination{CardNumber: "4111 1111 1111 1234", ExpiryDate: "12/29", CVV: "123"}.Masked()
	assert.Equal(t, "************1234", masked.CardNumber)
	assert.Empty(t, masked.CVV)
}
