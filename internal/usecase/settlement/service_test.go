package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/infrastructure/parking"
	"github.com/frontandrew/parklane/internal/pkg/logger"
)

type stubClient struct {
	parking.Client

	calculateFee     func(ctx context.Context, plate string) (*domain.FeeQuote, error)
	sessionPlateByQR func(ctx context.Context, qrToken string) (string, error)
	validateRFID     func(ctx context.Context, rfidNumber, plate string) (*domain.RFIDValidation, error)
	pay              func(ctx context.Context, method domain.PaymentMethod, sessionID int64, operator, rfidTag string) (*domain.Settlement, error)

	rfidCalls int
}

func (c *stubClient) CalculateFee(ctx context.Context, plate string) (*domain.FeeQuote, error) {
	return c.calculateFee(ctx, plate)
}

func (c *stubClient) SessionPlateByQR(ctx context.Context, qrToken string) (string, error) {
	return c.sessionPlateByQR(ctx, qrToken)
}

func (c *stubClient) ValidateRFID(ctx context.Context, rfidNumber, plate string) (*domain.RFIDValidation, error) {
	c.rfidCalls++
	return c.validateRFID(ctx, rfidNumber, plate)
}

func (c *stubClient) Pay(ctx context.Context, method domain.PaymentMethod, sessionID int64, operator, rfidTag string) (*domain.Settlement, error) {
	return c.pay(ctx, method, sessionID, operator, rfidTag)
}

func testQuote() *domain.FeeQuote {
	return &domain.FeeQuote{
		SessionID: 42,
		Plate:     "CAV-8537",
		EntryTime: time.Now().Add(-2 * time.Hour),
		ExitTime:  time.Now(),
		FeeLKR:    300,
	}
}

func TestService_QuoteByQR(t *testing.T) {
	client := &stubClient{
		sessionPlateByQR: func(ctx context.Context, qrToken string) (string, error) {
			assert.Equal(t, "token-1", qrToken)
			return "CAV-8537", nil
		},
		calculateFee: func(ctx context.Context, plate string) (*domain.FeeQuote, error) {
			assert.Equal(t, "CAV-8537", plate)
			return testQuote(), nil
		},
	}

	svc := NewService(client, "operator-1", logger.NewNoop())
	quote, err := svc.QuoteByQR(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), quote.SessionID)
	assert.Equal(t, 300.0, quote.FeeLKR)
}

func TestService_SettleCash(t *testing.T) {
	client := &stubClient{
		pay: func(ctx context.Context, method domain.PaymentMethod, sessionID int64, operator, rfidTag string) (*domain.Settlement, error) {
			assert.Equal(t, domain.PaymentCash, method)
			assert.Equal(t, int64(42), sessionID)
			assert.Equal(t, "operator-1", operator)
			return &domain.Settlement{SessionID: sessionID, PaymentMethod: method, FeeLKR: 300, PaidAt: time.Now()}, nil
		},
	}

	svc := NewService(client, "operator-1", logger.NewNoop())
	settlement, err := svc.Settle(context.Background(), testQuote(), domain.PaymentCash, "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCash, settlement.PaymentMethod)
}

func TestService_SettlePreconditions(t *testing.T) {
	svc := NewService(&stubClient{}, "operator-1", logger.NewNoop())

	_, err := svc.Settle(context.Background(), nil, domain.PaymentCash, "")
	assert.ErrorIs(t, err, domain.ErrNoFeeQuote)

	_, err = svc.Settle(context.Background(), testQuote(), domain.PaymentMethod("bitcoin"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)
}

func TestService_RFIDValidationCache(t *testing.T) {
	validation := &domain.RFIDValidation{
		RFIDNumber:  "TAG-1",
		PlateNumber: "CAV-8537",
		FullName:    "K. Perera",
		ValidatedAt: time.Now(),
	}
	client := &stubClient{
		validateRFID: func(ctx context.Context, rfidNumber, plate string) (*domain.RFIDValidation, error) {
			return validation, nil
		},
	}

	svc := NewService(client, "operator-1", logger.NewNoop())

	_, err := svc.ValidateRFID(context.Background(), "TAG-1", "CAV-8537")
	require.NoError(t, err)
	require.Equal(t, 1, client.rfidCalls)

	// Повторная проверка той же пары берётся из кеша
	_, err = svc.ValidateRFID(context.Background(), "TAG-1", "CAV-8537")
	require.NoError(t, err)
	assert.Equal(t, 1, client.rfidCalls)

	// Другой номер кешем не покрывается
	_, err = svc.ValidateRFID(context.Background(), "TAG-1", "CAW-1111")
	require.NoError(t, err)
	assert.Equal(t, 2, client.rfidCalls)

	// Сброс кеша заставляет проверять заново
	svc.InvalidateRFID()
	_, err = svc.ValidateRFID(context.Background(), "TAG-1", "CAV-8537")
	require.NoError(t, err)
	assert.Equal(t, 3, client.rfidCalls)
}

func TestService_SettleRFIDRequiresValidation(t *testing.T) {
	paid := false
	client := &stubClient{
		validateRFID: func(ctx context.Context, rfidNumber, plate string) (*domain.RFIDValidation, error) {
			return &domain.RFIDValidation{RFIDNumber: rfidNumber, PlateNumber: plate, ValidatedAt: time.Now()}, nil
		},
		pay: func(ctx context.Context, method domain.PaymentMethod, sessionID int64, operator, rfidTag string) (*domain.Settlement, error) {
			paid = true
			assert.Equal(t, "TAG-1", rfidTag)
			return &domain.Settlement{SessionID: sessionID, PaymentMethod: method, PaidAt: time.Now()}, nil
		},
	}

	svc := NewService(client, "operator-1", logger.NewNoop())

	// Без предварительной проверки метки оплата отклоняется
	_, err := svc.Settle(context.Background(), testQuote(), domain.PaymentRFID, "TAG-1")
	assert.ErrorIs(t, err, domain.ErrRFIDNotValidated)
	assert.False(t, paid)

	_, err = svc.ValidateRFID(context.Background(), "TAG-1", "CAV-8537")
	require.NoError(t, err)

	settlement, err := svc.Settle(context.Background(), testQuote(), domain.PaymentRFID, "TAG-1")
	require.NoError(t, err)
	assert.True(t, paid)
	assert.Equal(t, 300.0, settlement.FeeLKR, "сумма берётся из расчёта, если бэкенд её не вернул")

	// Успешная оплата сбрасывает кеш проверки
	_, err = svc.Settle(context.Background(), testQuote(), domain.PaymentRFID, "TAG-1")
	assert.ErrorIs(t, err, domain.ErrRFIDNotValidated)
}

func TestService_SettleValidationForDifferentPlate(t *testing.T) {
	client := &stubClient{
		validateRFID: func(ctx context.Context, rfidNumber, plate string) (*domain.RFIDValidation, error) {
			return &domain.RFIDValidation{RFIDNumber: rfidNumber, PlateNumber: plate, ValidatedAt: time.Now()}, nil
		},
	}

	svc := NewService(client, "operator-1", logger.NewNoop())
	_, err := svc.ValidateRFID(context.Background(), "TAG-1", "CAW-1111")
	require.NoError(t, err)

	// Метка проверена для другого номера: оплата текущей сессии запрещена
	_, err = svc.Settle(context.Background(), testQuote(), domain.PaymentRFID, "TAG-1")
	assert.ErrorIs(t, err, domain.ErrRFIDNotValidated)
}
