// Package csvstore reads cleaned transaction exports from CSV files.
package csvstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
)

// Encodings understood by the store.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin1"
)

// Accepted spellings of each required column, compared after normalisation.
var columnAliases = map[string][]string{
	"date":     {"invoicedate", "date", "invoice_date"},
	"product":  {"stockcode", "productkey", "product_key", "sku"},
	"quantity": {"quantity", "qty"},
	"price":    {"unitprice", "unit_price", "price"},
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02",
	"02/01/2006 15:04",
	"2/1/2006 15:04",
	"02/01/2006",
	"2/1/2006",
}

// TransactionStore loads cleaned transactions from a CSV file.
type TransactionStore struct {
	path     string
	encoding string
	logger   zerolog.Logger
}

// NewTransactionStore returns a store for path. encoding is utf-8 or latin1.
func NewTransactionStore(path, encoding string) *TransactionStore {
	return &TransactionStore{
		path:     path,
		encoding: strings.ToLower(strings.TrimSpace(encoding)),
		logger:   log.Logger.With().Str("component", "csvstore").Logger(),
	}
}

// ListTransactions reads every valid row of the file.
func (s *TransactionStore) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transactions file %s: %w", s.path, err)
	}
	defer f.Close()

	r, err := decoder(f, s.encoding)
	if err != nil {
		return nil, err
	}
	txs, skipped, err := Parse(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions file %s: %w", s.path, err)
	}
	if skipped > 0 {
		s.logger.Warn().Str("path", s.path).Int("skipped", skipped).Msg("Skipped malformed transaction rows")
	}
	s.logger.Info().Str("path", s.path).Int("rows", len(txs)).Msg("Loaded transactions")
	return txs, nil
}

func decoder(r io.Reader, encoding string) (io.Reader, error) {
	switch encoding {
	case "", EncodingUTF8, "utf8":
		return skipBOM(r), nil
	case EncodingLatin1, "iso-8859-1", "latin-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if peeked, err := br.Peek(3); err == nil && bytes.Equal(peeked, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	return br
}

// Parse reads transactions from CSV with a header row. Extra columns are ignored;
// rows whose required fields cannot be parsed are skipped and counted.
func Parse(ctx context.Context, r io.Reader) ([]domain.Transaction, int, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("transactions CSV is empty")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, 0, err
	}

	var (
		txs     []domain.Transaction
		skipped int
	)
	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		tx, ok := parseRecord(record, idx)
		if !ok {
			skipped++
			continue
		}
		txs = append(txs, tx)
	}
	return txs, skipped, nil
}

func columnIndex(header []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[normalize(name)] = i
	}
	idx := make(map[string]int, len(columnAliases))
	for field, aliases := range columnAliases {
		found := false
		for _, alias := range aliases {
			if i, ok := byName[normalize(alias)]; ok {
				idx[field] = i
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("required column %q not found in header %v", aliases[0], header)
		}
	}
	return idx, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
}

func parseRecord(record []string, idx map[string]int) (domain.Transaction, bool) {
	field := func(name string) string {
		i := idx[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	date, ok := parseDate(field("date"))
	if !ok {
		return domain.Transaction{}, false
	}
	quantity, err := strconv.ParseFloat(field("quantity"), 64)
	if err != nil || quantity != float64(int(quantity)) {
		return domain.Transaction{}, false
	}
	price, err := strconv.ParseFloat(field("price"), 64)
	if err != nil {
		return domain.Transaction{}, false
	}
	key := field("product")
	if key == "" {
		return domain.Transaction{}, false
	}
	return domain.Transaction{
		InvoiceDate: date,
		ProductKey:  key,
		Quantity:    int(quantity),
		UnitPrice:   price,
	}, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
