package integration

import (
	"testing"
	"time"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptionMapping(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		m, err := NewOptionMapping(channel.Naver, "1001", "OPT-1", "SKU-1")
		require.NoError(t, err)
		assert.NotEmpty(t, m.ID)
		assert.Zero(t, m.ChannelStock)
		assert.Nil(t, m.LastSyncAt)
	})

	tests := []struct {
		name    string
		ch      channel.Channel
		product string
		option  string
		sku     string
		want    error
	}{
		{"bad channel", "gmarket", "1", "2", "3", ErrMappingInvalidChannel},
		{"no product", channel.Naver, " ", "2", "3", ErrMappingInvalidProduct},
		{"no option", channel.Naver, "1", "", "3", ErrMappingInvalidOption},
		{"no sku", channel.Naver, "1", "2", "", ErrMappingInvalidSKU},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOptionMapping(tt.ch, tt.product, tt.option, tt.sku)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOptionMapping_RecordPush(t *testing.T) {
	m, err := NewOptionMapping(channel.Cafe24, "P1", "P1000A", "SKU")
	require.NoError(t, err)

	at := time.Now()
	m.RecordPush(7, at)
	assert.Equal(t, 7, m.ChannelStock)
	require.NotNil(t, m.LastSyncAt)
	assert.Equal(t, at, *m.LastSyncAt)

	u := m.StockUpdate(3)
	assert.Equal(t, StockUpdate{ProductNo: "P1", OptionID: "P1000A", SKU: "SKU", Quantity: 3}, u)
}
