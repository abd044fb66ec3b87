package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/config"
	"github.com/Freeeeeet/medbook/internal/model"
	"github.com/Freeeeeet/medbook/internal/notify"
)

func TestBuild_MemoryStore(t *testing.T) {
	cfg := &config.Config{
		UseMemoryStore: true,
		PaymentHoldTTL: 15 * time.Minute,
	}

	c, err := Build(context.Background(), cfg, prometheus.NewRegistry(), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Pool)

	doctor, err := c.Doctors.RegisterDoctor(context.Background(), &model.Doctor{FullName: "Dr. Watson"})
	require.NoError(t, err)

	got, err := c.Doctors.GetDoctor(context.Background(), doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PolicyModerate, got.CancellationPolicy)

	expired, err := c.Bookings.ExpireStaleHolds(context.Background())
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestNewNotifier(t *testing.T) {
	n, err := newNotifier(&config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &notify.LogNotifier{}, n)
}

func TestLogRefunder(t *testing.T) {
	r := NewLogRefunder(zap.NewNop())
	assert.NoError(t, r.Refund(context.Background(), &model.Booking{ID: 1}, 5000))
}
