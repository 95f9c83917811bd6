package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
	"github.com/josh-kwaku/transferpro-backend/internal/repository/memory"
)

func setupRecipientTest(t *testing.T) (*RecipientService, uuid.UUID) {
	t.Helper()
	users := memory.NewUserStore()
	user := domain.User{
		ID:        uuid.New(),
		Email:     "alice@example.com",
		Name:      "Alice",
		Status:    domain.UserStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	users.Add(user)
	return NewRecipientService(memory.NewRecipientStore(), users), user.ID
}

func cashDetails() domain.RecipientDetails {
	return domain.RecipientDetails{
		Name:        "Bob Smith",
		Email:       "bob@example.com",
		Country:     "MX",
		Destination: domain.CashDestination{PickupLocation: "Mexico City", IDNumber: "ID-42"},
	}
}

func TestRecipientService_Save(t *testing.T) {
	ctx := context.Background()
	svc, userID := setupRecipientTest(t)

	tests := []struct {
		name       string
		req        SaveRecipientRequest
		wantErr    error
		wantFields []string
	}{
		{
			name: "valid defaults nickname to name",
			req:  SaveRecipientRequest{UserID: userID, DeliveryMethod: domain.DeliveryMethodCash, Details: cashDetails()},
		},
		{
			name:    "unknown user",
			req:     SaveRecipientRequest{UserID: uuid.New(), DeliveryMethod: domain.DeliveryMethodCash, Details: cashDetails()},
			wantErr: domain.ErrNotFound,
		},
		{
			name:       "method mismatch",
			req:        SaveRecipientRequest{UserID: userID, DeliveryMethod: domain.DeliveryMethodBank, Details: cashDetails()},
			wantErr:    domain.ErrMissingFields,
			wantFields: []string{"accountNumber"},
		},
		{
			name:    "invalid method",
			req:     SaveRecipientRequest{UserID: userID, DeliveryMethod: "pigeon", Details: cashDetails()},
			wantErr: domain.ErrInvalidDeliveryMethod,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := svc.Save(ctx, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.wantFields != nil {
					var mf *domain.MissingFieldsError
					require.True(t, errors.As(err, &mf))
					assert.Equal(t, tt.wantFields, mf.Fields)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Bob Smith", rec.Nickname)
			assert.Equal(t, domain.DeliveryMethodCash, rec.DeliveryMethod)
		})
	}
}

func TestRecipientService_Ownership(t *testing.T) {
	ctx := context.Background()
	svc, userID := setupRecipientTest(t)

	rec, err := svc.Save(ctx, SaveRecipientRequest{
		UserID:         userID,
		Nickname:       "Bob (cash)",
		DeliveryMethod: domain.DeliveryMethodCash,
		Details:        cashDetails(),
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, userID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob (cash)", got.Nickname)

	stranger := uuid.New()
	_, err = svc.Get(ctx, stranger, rec.ID)
	assert.ErrorIs(t, err, domain.ErrRecipientNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, stranger, rec.ID), domain.ErrRecipientNotFound)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, userID, rec.ID))
	list, err = svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
