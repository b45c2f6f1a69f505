package ecommerce

import (
	"fmt"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Registry holds the configured channel adapters
type Registry struct {
	sinks   map[channel.Channel]integration.InvoiceSink
	pushers map[channel.Channel]integration.StockPusher
	sources map[channel.Channel]integration.OrderSource
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sinks:   make(map[channel.Channel]integration.InvoiceSink),
		pushers: make(map[channel.Channel]integration.StockPusher),
		sources: make(map[channel.Channel]integration.OrderSource),
	}
}

// Register adds an adapter under every port it implements
func (r *Registry) Register(adapter interface{ Channel() channel.Channel }) {
	ch := adapter.Channel()
	if s, ok := adapter.(integration.InvoiceSink); ok {
		r.sinks[ch] = s
	}
	if p, ok := adapter.(integration.StockPusher); ok {
		r.pushers[ch] = p
	}
	if s, ok := adapter.(integration.OrderSource); ok {
		r.sources[ch] = s
	}
}

// InvoiceSink returns the invoice sink of a channel
func (r *Registry) InvoiceSink(ch channel.Channel) (integration.InvoiceSink, error) {
	if s, ok := r.sinks[ch]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", integration.ErrChannelNotConfigured, ch)
}

// StockPusher returns the stock pusher of a channel
func (r *Registry) StockPusher(ch channel.Channel) (integration.StockPusher, error) {
	if p, ok := r.pushers[ch]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", integration.ErrChannelNotConfigured, ch)
}

// OrderSource returns the order source of a channel
func (r *Registry) OrderSource(ch channel.Channel) (integration.OrderSource, error) {
	if s, ok := r.sources[ch]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", integration.ErrChannelNotConfigured, ch)
}

// Channels lists the channels with at least one adapter, in canonical order
func (r *Registry) Channels() []channel.Channel {
	var out []channel.Channel
	for _, ch := range channel.All() {
		_, sink := r.sinks[ch]
		_, pusher := r.pushers[ch]
		_, source := r.sources[ch]
		if sink || pusher || source {
			out = append(out, ch)
		}
	}
	return out
}

// NewRegistryFromConfig builds the adapters of every enabled channel.
// A misconfigured channel fails startup.
func NewRegistryFromConfig(cfg config.ChannelsConfig, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := NewRegistry()

	if cfg.Cafe24.Enabled {
		a, err := NewCafe24Adapter(&Cafe24Config{
			MallID:      cfg.Cafe24.MallID,
			AccessToken: cfg.Cafe24.AccessToken,
			APIVersion:  cfg.Cafe24.APIVersion,
			BaseURL:     cfg.Cafe24.BaseURL,
			ShopNo:      cfg.Cafe24.ShopNo,
			RateLimit:   cfg.Cafe24.RateLimit,
			Timeout:     cfg.Cafe24.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		r.Register(a)
	}
	if cfg.Naver.Enabled {
		a, err := NewNaverAdapter(&NaverConfig{
			AccessToken: cfg.Naver.AccessToken,
			BaseURL:     cfg.Naver.BaseURL,
			RateLimit:   cfg.Naver.RateLimit,
			Timeout:     cfg.Naver.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		r.Register(a)
	}
	if cfg.Coupang.Enabled {
		a, err := NewCoupangAdapter(&CoupangConfig{
			VendorID:  cfg.Coupang.VendorID,
			AccessKey: cfg.Coupang.AccessKey,
			SecretKey: cfg.Coupang.SecretKey,
			BaseURL:   cfg.Coupang.BaseURL,
			RateLimit: cfg.Coupang.RateLimit,
			Timeout:   cfg.Coupang.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		r.Register(a)
	}

	logger.Info("Channel adapters configured", zap.Int("channels", len(r.Channels())))
	return r, nil
}

// Ensure Registry implements integration.Registry
var _ integration.Registry = (*Registry)(nil)
