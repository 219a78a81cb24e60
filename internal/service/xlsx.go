package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	clientsSheet      = "Clients"
	transactionsSheet = "Transactions"
)

type clientRow struct {
	Line     int
	Name     string
	Phone    string
	ShopID   string
	ShopName string
}

// readClientSheet читает первый лист: строка заголовков, затем данные.
// Полностью пустые строки пропускаются.
func readClientSheet(r io.Reader) ([]clientRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errf(domain.ErrBadParams, "not an xlsx file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errf(domain.ErrBadParams, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.TrimSpace(h)] = i
	}
	get := func(row []string, names ...string) string {
		for _, n := range names {
			i, ok := col[n]
			if !ok || i >= len(row) {
				continue
			}
			if v := strings.TrimSpace(row[i]); v != "" {
				return v
			}
		}
		return ""
	}

	out := make([]clientRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		cr := clientRow{
			Line:     i + 2,
			Name:     get(row, "Client Name"),
			Phone:    get(row, "Phone Number"),
			ShopID:   get(row, "ShopID", "Shop ID"),
			ShopName: get(row, "Shop Name"),
		}
		if cr.Name == "" || cr.Phone == "" || (cr.ShopID == "" && cr.ShopName == "") {
			return nil, errf(domain.ErrBadParams, "row %d: each row must have Client Name, Phone Number, and Shop Name/ShopID", cr.Line)
		}
		out = append(out, cr)
	}
	return out, nil
}

func writeClientSheet(w io.Writer, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", clientsSheet); err != nil {
		return err
	}
	header := []any{"Branch", "Client Name", "Phone Number"}
	if err := writeTable(f, clientsSheet, header, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(clientsSheet, "A", "C", 24); err != nil {
		return err
	}
	return f.Write(w)
}

var transactionHeader = []any{
	"Shop", "Client Name", "Phone Number", "Date/Time", "Invoice No.", "Comment",
	"Product Invoice File Name", "Product Purchased Invoice File Name",
	"Purchased Item", "Variant", "Amount", "Money",
}

// число колонок уровня покупки: при нескольких позициях они объединяются по вертикали
const purchaseLevelCols = 8

// writePurchaseSheet раскладывает покупки по строке на позицию.
func writePurchaseSheet(w io.Writer, list []domain.Purchase) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return err
	}

	var (
		rows   [][]any
		merges [][2]int // первая и последняя строка данных покупки
	)
	for _, p := range list {
		items := p.Purchases
		if len(items) == 0 {
			items = []domain.LineItem{{}}
		}
		first := len(rows)
		for i, it := range items {
			row := make([]any, 0, len(transactionHeader))
			if i == 0 {
				shop := p.ShopName
				if shop == "" {
					shop = p.BranchID
				}
				dt := p.DateTime
				if dt == "" {
					dt = p.DateTimeISO
				}
				row = append(row, shop, p.ClientName, p.PhoneNumber, dt, p.InvoiceNumber, p.Comment,
					p.InvoiceFileName, p.PurchasedInvoiceFileName)
			} else {
				row = append(row, "", "", "", "", "", "", "", "")
			}
			row = append(row, it.PurchasedItem, combineVariant(it), it.Amount, it.Money)
			rows = append(rows, row)
		}
		if len(items) > 1 {
			merges = append(merges, [2]int{first, len(rows) - 1})
		}
	}

	if err := writeTable(f, transactionsSheet, transactionHeader, rows); err != nil {
		return err
	}
	for _, m := range merges {
		for c := 1; c <= purchaseLevelCols; c++ {
			top, _ := excelize.CoordinatesToCellName(c, m[0]+2)
			bottom, _ := excelize.CoordinatesToCellName(c, m[1]+2)
			if err := f.MergeCell(transactionsSheet, top, bottom); err != nil {
				return err
			}
		}
	}
	widths := []struct {
		from, to string
		width    float64
	}{
		{"A", "C", 28}, {"D", "D", 26}, {"E", "E", 16}, {"F", "H", 28},
		{"I", "J", 20}, {"K", "L", 16},
	}
	for _, cw := range widths {
		if err := f.SetColWidth(transactionsSheet, cw.from, cw.to, cw.width); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// combineVariant: "v1, v2", если заданы оба варианта.
func combineVariant(it domain.LineItem) string {
	v1, v2 := strings.TrimSpace(it.Variant), strings.TrimSpace(it.Variant2)
	switch {
	case v1 != "" && v2 != "":
		return v1 + ", " + v2
	case v1 != "":
		return v1
	default:
		return v2
	}
}

// writeTable пишет жирный заголовок и строки данных начиная с A2.
func writeTable(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}
