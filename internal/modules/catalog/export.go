package catalog

import (
	"io"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx"
)

var exportHeaders = []string{
	"ID", "Nom", "Slug", "Catégorie", "Matière", "Prix de base", "Prix final",
	"Remise active", "Stock", "Tailles", "Ventes", "Vues", "Actif", "Créé le",
}

func writeWorkbook(w io.Writer, views []*JewelView) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Bijoux")
	if err != nil {
		return err
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, v := range views {
		row := sheet.AddRow()
		row.AddCell().SetValue(v.ID.String())
		row.AddCell().SetValue(v.Name)
		row.AddCell().SetValue(v.Slug)
		row.AddCell().SetValue(v.CategorySlug)
		row.AddCell().SetValue(v.Material)
		row.AddCell().SetFloat(v.Price.Base)
		row.AddCell().SetFloat(v.Price.Final)
		row.AddCell().SetBool(v.Price.DiscountActive)
		row.AddCell().SetInt(v.TotalStock())
		row.AddCell().SetValue(formatSizes(v.Sizes))
		row.AddCell().SetInt(v.SalesCount)
		row.AddCell().SetInt(v.ViewCount)
		row.AddCell().SetBool(v.IsActive)
		row.AddCell().SetValue(v.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return file.Write(w)
}

// formatSizes renders sizes as "52:3, 54:0", the same shape the admin form accepts.
func formatSizes(sizes []SizeStock) string {
	parts := make([]string, 0, len(sizes))
	for _, s := range sizes {
		parts = append(parts, s.Size+":"+strconv.Itoa(s.Stock))
	}
	return strings.Join(parts, ", ")
}

// ParseSizes reads "52:3, 54:2" (commas or new lines) into size stocks.
func ParseSizes(raw string) ([]SizeStock, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' || r == ';' })
	out := make([]SizeStock, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		label, qty, ok := strings.Cut(f, ":")
		if !ok {
			label, qty = f, "0"
		}
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil {
			return nil, ErrInvalid
		}
		out = append(out, SizeStock{Size: strings.TrimSpace(label), Stock: n})
	}
	return out, nil
}
