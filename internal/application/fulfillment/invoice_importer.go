package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	csvimport "github.com/omnisync/backend/internal/infrastructure/import"
	"go.uber.org/zap"
)

// Row validation messages
const (
	MsgInsufficientColumns = "insufficient columns"
	MsgOrderNoMissing      = "order number missing"
	MsgCarrierMissing      = "carrier code missing"
	MsgTrackingFormat      = "tracking number format error"
)

// RowResult is the validation verdict for one import row
type RowResult struct {
	Row          int      `json:"row"`
	IsValid      bool     `json:"isValid"`
	Errors       []string `json:"errors"`
	OrderKey     string   `json:"orderKey,omitempty"`
	CarrierValue string   `json:"carrierValue,omitempty"`
	CarrierLabel string   `json:"carrierLabel,omitempty"`
	TrackingNo   string   `json:"trackingNo,omitempty"`
}

// Entry converts a valid row into an invoice entry
func (r RowResult) Entry() InvoiceEntry {
	return InvoiceEntry{OrderKey: r.OrderKey, Carrier: r.CarrierValue, TrackingNo: r.TrackingNo}
}

// ImportResult is the outcome of one import upload
type ImportResult struct {
	ArchiveKey   string              `json:"archiveKey,omitempty"`
	TotalRows    int                 `json:"totalRows"`
	ValidCount   int                 `json:"validCount"`
	InvalidCount int                 `json:"invalidCount"`
	Rows         []RowResult         `json:"rows"`
	Applied      *shared.BatchResult `json:"applied,omitempty"`
}

// OrderResolver finds the order an import row refers to
type OrderResolver interface {
	Resolve(ctx context.Context, ref string) (*order.UnifiedOrder, error)
}

// BatchWriter writes validated entries
type BatchWriter interface {
	WriteBatch(ctx context.Context, entries []InvoiceEntry) *shared.BatchResult
}

// Archiver keeps a copy of every uploaded payload
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) (string, error)
}

// Importer parses and validates tracking-number uploads
type Importer struct {
	orders   OrderResolver
	carriers *carrier.Registry
	writer   BatchWriter
	archive  Archiver
	logger   *zap.Logger
	now      func() time.Time
}

// NewImporter creates a new Importer. archive may be nil.
func NewImporter(orders OrderResolver, carriers *carrier.Registry, writer BatchWriter, archive Archiver, logger *zap.Logger) *Importer {
	if carriers == nil {
		carriers = carrier.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		orders:   orders,
		carriers: carriers,
		writer:   writer,
		archive:  archive,
		logger:   logger,
		now:      time.Now,
	}
}

// Validate checks every parsed line. Row numbers follow the file, so a
// header shifts data rows to start at 2.
func (im *Importer) Validate(ctx context.Context, sheet *csvimport.Sheet) []RowResult {
	out := make([]RowResult, 0, len(sheet.Lines))
	for _, line := range sheet.Lines {
		out = append(out, im.validateLine(ctx, line))
	}
	return out
}

func (im *Importer) validateLine(ctx context.Context, line csvimport.Line) RowResult {
	res := RowResult{Row: line.Number, Errors: make([]string, 0)}
	if len(line.Cells) < 3 {
		res.Errors = append(res.Errors, MsgInsufficientColumns)
		return res
	}
	orderRef := strings.TrimSpace(line.Cells[0])
	carrierIn := strings.TrimSpace(line.Cells[1])
	tracking := csvimport.StripSpaces(line.Cells[2])

	if orderRef == "" {
		res.Errors = append(res.Errors, MsgOrderNoMissing)
	} else if o, err := im.orders.Resolve(ctx, orderRef); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			res.Errors = append(res.Errors, MsgOrderNotFound)
		} else {
			res.Errors = append(res.Errors, err.Error())
		}
	} else {
		res.OrderKey = o.Key().String()
	}

	if carrierIn == "" {
		res.Errors = append(res.Errors, MsgCarrierMissing)
	} else if c, ok := im.carriers.Resolve(carrierIn); ok {
		res.CarrierValue = c.Value
		res.CarrierLabel = c.Label
	} else {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", MsgInvalidCarrier, carrierIn))
	}

	switch {
	case tracking == "":
		res.Errors = append(res.Errors, MsgTrackingMissing)
	case !csvimport.LooksLikeTrackingNo(tracking):
		res.Errors = append(res.Errors, MsgTrackingFormat)
	default:
		res.TrackingNo = tracking
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

// Import parses and validates an upload. The raw payload is archived first.
// With apply set, the valid rows are written through the invoice saga.
func (im *Importer) Import(ctx context.Context, data []byte, apply bool) (*ImportResult, error) {
	result := &ImportResult{}
	if im.archive != nil {
		name := fmt.Sprintf("%s.csv", im.now().In(shared.KST).Format("20060102-150405.000000000"))
		key, err := im.archive.Archive(ctx, name, data)
		if err != nil {
			// archive failures are logged only
			im.logger.Warn("Failed to archive invoice import", zap.Error(err))
		} else {
			result.ArchiveKey = key
		}
	}

	sheet, err := csvimport.Parse(data)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage(err.Error())
	}

	result.Rows = im.Validate(ctx, sheet)
	result.TotalRows = len(result.Rows)
	var entries []InvoiceEntry
	for _, r := range result.Rows {
		if r.IsValid {
			result.ValidCount++
			entries = append(entries, r.Entry())
		} else {
			result.InvalidCount++
		}
	}

	if apply && len(entries) > 0 {
		result.Applied = im.writer.WriteBatch(ctx, entries)
	}

	im.logger.Info("Invoice import processed",
		zap.Int("rows", result.TotalRows),
		zap.Int("valid", result.ValidCount),
		zap.Int("invalid", result.InvalidCount),
		zap.Bool("apply", apply),
	)
	return result, nil
}

// SampleCSV returns an upload template listing the accepted carrier values
func (im *Importer) SampleCSV() string {
	var b strings.Builder
	b.WriteString("주문번호,택배사코드,송장번호\n")
	b.WriteString(csvimport.CommentPrefix + " 택배사코드: ")
	for i, c := range im.carriers.All() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s (%s)", c.Value, c.Label)
	}
	b.WriteString("\n")
	b.WriteString("ORD-SAMPLE-001,cj,1234567890123\n")
	b.WriteString("ORD-SAMPLE-002,lotte,9876543210987\n")
	return b.String()
}
