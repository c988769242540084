package odds

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseBook reads market prices as CSV rows of market,selection,odds where the
// selection joins runner ids with "-", for example:
//
//	win,3,4.8
//	quinella,3-7,12.5
//
// A header row starting with "market" is skipped.
func ParseBook(r io.Reader) ([]Selection, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var book []Selection
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return book, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read odds: %w", err)
		}
		if line == 1 && strings.EqualFold(record[0], "market") {
			continue
		}

		market := Market(strings.ToLower(strings.TrimSpace(record[0])))
		size, _, err := market.size()
		if err != nil {
			return nil, fmt.Errorf("odds line %d: %w", line, err)
		}
		ids := strings.Split(strings.TrimSpace(record[1]), "-")
		if len(ids) != size {
			return nil, fmt.Errorf("odds line %d: %s needs %d runners, got %q", line, market, size, record[1])
		}
		price, err := ParseOdds(record[2])
		if err != nil {
			return nil, fmt.Errorf("odds line %d: %w", line, err)
		}
		book = append(book, Selection{Market: market, IDs: ids, Odds: price})
	}
}
