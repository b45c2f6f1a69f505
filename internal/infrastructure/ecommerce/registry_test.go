package ecommerce

import (
	"testing"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryFromConfig(t *testing.T) {
	t.Run("only enabled channels", func(t *testing.T) {
		r, err := NewRegistryFromConfig(config.ChannelsConfig{
			Naver:   config.NaverConfig{Enabled: true, AccessToken: "t"},
			Coupang: config.CoupangConfig{Enabled: false},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, []channel.Channel{channel.Naver}, r.Channels())

		sink, err := r.InvoiceSink(channel.Naver)
		require.NoError(t, err)
		assert.Equal(t, channel.Naver, sink.Channel())

		_, err = r.OrderSource(channel.Coupang)
		assert.ErrorIs(t, err, integration.ErrChannelNotConfigured)
		_, err = r.StockPusher(channel.Cafe24)
		assert.ErrorIs(t, err, integration.ErrChannelNotConfigured)
	})

	t.Run("misconfigured channel fails", func(t *testing.T) {
		_, err := NewRegistryFromConfig(config.ChannelsConfig{
			Cafe24: config.Cafe24Config{Enabled: true, MallID: "shop"},
		}, nil)
		assert.ErrorIs(t, err, ErrCafe24ConfigMissingToken)
	})

	t.Run("every channel", func(t *testing.T) {
		r, err := NewRegistryFromConfig(config.ChannelsConfig{
			Cafe24:  config.Cafe24Config{Enabled: true, MallID: "shop", AccessToken: "t"},
			Naver:   config.NaverConfig{Enabled: true, AccessToken: "t"},
			Coupang: config.CoupangConfig{Enabled: true, VendorID: "v", AccessKey: "a", SecretKey: "s"},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, channel.All(), r.Channels())
	})
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"cafe24 shape", `{"error":{"code":422,"message":"already shipped"}}`, "already shipped"},
		{"naver shape", `{"code":"X","message":"bad token","timestamp":"t"}`, "bad token"},
		{"string error", `{"error":"invalid_grant"}`, "invalid_grant"},
		{"plain text", `gateway timeout`, "gateway timeout"},
		{"empty", ``, "empty response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage([]byte(tt.body)))
		})
	}
}
