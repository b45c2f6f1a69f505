// Package integration manages the links between channel listings and
// internal SKUs.
package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// OptionMappingService maintains channel option mappings. The allocation
// scheduler reads them to know which channel options carry which SKU.
type OptionMappingService struct {
	repo   integration.OptionMappingRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewOptionMappingService creates a new OptionMappingService
func NewOptionMappingService(repo integration.OptionMappingRepository, logger *zap.Logger) *OptionMappingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OptionMappingService{repo: repo, logger: logger, now: time.Now}
}

// List returns the mappings of one channel
func (s *OptionMappingService) List(ctx context.Context, channelName string) ([]OptionMappingResponse, error) {
	ch, err := channel.Parse(channelName)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage(err.Error())
	}
	ms, err := s.repo.FindByChannel(ctx, ch)
	if err != nil {
		return nil, err
	}
	out := make([]OptionMappingResponse, 0, len(ms))
	for i := range ms {
		out = append(out, ToOptionMappingResponse(&ms[i]))
	}
	return out, nil
}

// Upsert creates the mapping of a channel option, or repoints an existing
// one at a new product or SKU. The recorded channel stock is kept.
func (s *OptionMappingService) Upsert(ctx context.Context, req OptionMappingRequest) (*OptionMappingResponse, error) {
	ch, err := channel.Parse(req.Channel)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage(err.Error())
	}
	fresh, err := integration.NewOptionMapping(ch,
		strings.TrimSpace(req.ProductNo),
		strings.TrimSpace(req.OptionID),
		strings.TrimSpace(req.SKU),
	)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage(err.Error())
	}

	existing, err := s.repo.FindByChannel(ctx, ch)
	if err != nil {
		return nil, err
	}
	m := fresh
	for i := range existing {
		if existing[i].OptionID == fresh.OptionID {
			m = &existing[i]
			m.ProductNo = fresh.ProductNo
			m.SKU = fresh.SKU
			m.UpdatedAt = s.now()
			break
		}
	}

	if err := s.repo.Save(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Debug("Option mapping saved",
		zap.String("channel", string(ch)),
		zap.String("option_id", m.OptionID),
		zap.String("sku", m.SKU),
	)
	resp := ToOptionMappingResponse(m)
	return &resp, nil
}

// UpsertBatch upserts every mapping independently
func (s *OptionMappingService) UpsertBatch(ctx context.Context, reqs []OptionMappingRequest) *shared.BatchResult {
	result := shared.NewBatchResult(len(reqs))
	for _, req := range reqs {
		key := fmt.Sprintf("%s:%s", req.Channel, req.OptionID)
		if _, err := s.Upsert(ctx, req); err != nil {
			var de *shared.DomainError
			if errors.As(err, &de) {
				result.AddFailure(key, de.Message)
			} else {
				result.AddFailure(key, err.Error())
			}
			continue
		}
		result.AddSuccess(key, "")
	}
	s.logger.Info("Option mappings imported",
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", result.FailCount),
	)
	return result
}
