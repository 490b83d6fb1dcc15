package currency

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
)

//go:embed meta.csv
var metaCSV string

const columns = 8

// LoadCurrencyMetaCSV loads currency metadata from a CSV file or embedded content.
// If path is empty, it uses the embedded CSV content.
func LoadCurrencyMetaCSV(path string) ([]core.CurrencyMeta, error) {
	var r io.Reader

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	} else {
		r = strings.NewReader(metaCSV)
	}

	return parseCurrencyMetaCSV(r)
}

func parseCurrencyMetaCSV(r io.Reader) ([]core.CurrencyMeta, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("invalid CSV format: empty file")
	}
	if len(records[0]) < columns {
		return nil, fmt.Errorf(
			"invalid CSV format: expected at least %d columns, got %d",
			columns, len(records[0]),
		)
	}

	metas := make([]core.CurrencyMeta, 0, len(records)-1)
	for _, rec := range records[1:] {
		// malformed rows are skipped
		if len(rec) < columns {
			continue
		}
		code, err := core.ParseCode(rec[0])
		if err != nil {
			continue
		}
		decimals, err := strconv.Atoi(strings.TrimSpace(rec[4]))
		if err != nil || decimals < 0 {
			decimals = core.DefaultDecimals
		}
		metas = append(metas, core.CurrencyMeta{
			Code:     code,
			Name:     rec[1],
			Type:     parseType(rec[2]),
			Symbol:   rec[3],
			Decimals: decimals,
			Country:  rec[5],
			Region:   rec[6],
			Active:   strings.EqualFold(strings.TrimSpace(rec[7]), "true"),
		})
	}
	return metas, nil
}

func parseType(s string) core.CurrencyType {
	switch core.CurrencyType(strings.ToLower(strings.TrimSpace(s))) {
	case core.CurrencyFiat:
		return core.CurrencyFiat
	case core.CurrencyCrypto:
		return core.CurrencyCrypto
	default:
		return core.CurrencyUnknown
	}
}
