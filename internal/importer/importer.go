package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"order-fulfillment/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// requiredColumns must appear in the header row; description and available are optional.
var requiredColumns = []string{"sku", "name", "price"}

// CSVImporter reads a catalog CSV (sku,name,description,price,available) and
// upserts products by SKU.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
	logger      *zap.Logger
}

func NewCSVImporter(r io.Reader, repo ProductWriter, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
		logger:      logger,
	}
}

// Run upserts every row and returns the number of products written. It stops
// at the first invalid row; rows before it stay imported.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("missing %q column", col)
		}
	}

	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line, _ := i.reader.FieldPos(0)

		p, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if p == nil {
			continue
		}
		if _, err := i.productRepo.Upsert(ctx, *p); err != nil {
			return imported, fmt.Errorf("upsert product %q: %w", p.SKU, err)
		}
		imported++
		i.logger.Debug("product imported", zap.String("sku", p.SKU), zap.String("price", p.Price.StringFixed(2)))
	}
	return imported, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// parseRow returns nil for blank lines.
func parseRow(record []string, index map[string]int) (*domain.Product, error) {
	sku := pick(record, index, "sku")
	name := pick(record, index, "name")
	priceStr := pick(record, index, "price")
	if sku == "" && name == "" && priceStr == "" {
		return nil, nil
	}
	if sku == "" || name == "" || priceStr == "" {
		return nil, fmt.Errorf("%w: sku, name and price are required", domain.ErrInvalidInput)
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("%w: price %q for %s", domain.ErrInvalidInput, priceStr, sku)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: negative price for %s", domain.ErrInvalidInput, sku)
	}

	available := true
	if raw := pick(record, index, "available"); raw != "" {
		available, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: available %q for %s", domain.ErrInvalidInput, raw, sku)
		}
	}

	return &domain.Product{
		SKU:         sku,
		Name:        name,
		Description: pick(record, index, "description"),
		Price:       price.Round(2),
		Available:   available,
	}, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
