// Package dataset loads the read-only reference tables: the compatibility
// templates and the product catalog.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/models"
)

// header indexes a CSV header row by column name.
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(row))
	for i, name := range row {
		h[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	return h, nil
}

func (h header) require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := h[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (h header) get(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

// ParseCompatibility reads compatibility rows. Each clothing group has a
// category column named after the group and a "<Group> Color RGB" column;
// groups absent from the header are treated as empty for every row. Row
// indices follow file order.
func ParseCompatibility(r io.Reader) ([]models.CompatibilityRow, error) {
	const op = "parse compatibility dataset"

	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, errs.WrapDataIntegrity(op, err)
	}
	if err := h.require("Usage"); err != nil {
		return nil, errs.WrapDataIntegrity(op, err)
	}

	var rows []models.CompatibilityRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.WrapDataIntegrity(op, err)
		}

		row := models.CompatibilityRow{
			Index: len(rows),
			Slots: make(map[models.ClothingGroup]models.Slot, len(models.Groups)),
			Usage: h.get(rec, "Usage"),
		}
		for _, g := range models.Groups {
			slot := models.Slot{Category: h.get(rec, string(g))}
			if raw := h.get(rec, g.ColorColumn()); raw != "" {
				c, err := models.ParseColor(raw)
				if err != nil {
					return nil, errs.DataIntegrity(op, "line %d: %s: %v", line, g.ColorColumn(), err)
				}
				slot.Color, slot.HasColor = c, true
			}
			if slot.Category != "" || slot.HasColor {
				row.Slots[g] = slot
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseCatalog reads catalog items. An id that is not an integer is a
// data-integrity error.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	const op = "parse catalog dataset"

	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, errs.WrapDataIntegrity(op, err)
	}
	if err := h.require("id", "gender", "articleType"); err != nil {
		return nil, errs.WrapDataIntegrity(op, err)
	}

	var items []models.CatalogItem
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.WrapDataIntegrity(op, err)
		}

		id, err := parseID(h.get(rec, "id"))
		if err != nil {
			return nil, errs.DataIntegrity(op, "line %d: %v", line, err)
		}
		items = append(items, models.CatalogItem{
			ClothID: id,
			Gender:  h.get(rec, "gender"),
			Season:  h.get(rec, "season"),
			Usage:   h.get(rec, "usage"),
			Color:   h.get(rec, "baseColour"),
			Type:    h.get(rec, "articleType"),
			Name:    h.get(rec, "productDisplayName"),
			URL:     h.get(rec, "url"),
		})
	}
	return NewCatalog(items)
}

// parseID accepts integral ids, including the "15970.0" form spreadsheets
// export.
func parseID(s string) (int, error) {
	if id, err := strconv.Atoi(s); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("item id %q is not an integer", s)
	}
	return int(f), nil
}
