package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCX returns the body paragraphs followed by each table as "TABLA:" and one
// " | "-joined line per row.
func DOCX(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open docx %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat docx %s: %w", path, err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("parse docx %s: %w", path, err)
	}
	paragraphs, tables := bodyText(doc.Document.Body.Items)
	return renderDocument(paragraphs, tables), nil
}

type table [][]string

// bodyText splits the top-level body into paragraph texts and table cells.
// Paragraphs inside tables belong to their cell, not to the body.
func bodyText(items []interface{}) ([]string, []table) {
	var (
		paragraphs []string
		tables     []table
	)
	for _, item := range items {
		switch it := item.(type) {
		case *docx.Paragraph:
			if text := it.String(); strings.TrimSpace(text) != "" {
				paragraphs = append(paragraphs, text)
			}
		case *docx.Table:
			var tbl table
			for _, tr := range it.TableRows {
				row := make([]string, 0, len(tr.TableCells))
				for _, tc := range tr.TableCells {
					lines := make([]string, 0, len(tc.Paragraphs))
					for _, p := range tc.Paragraphs {
						lines = append(lines, p.String())
					}
					row = append(row, strings.TrimSpace(strings.Join(lines, "\n")))
				}
				tbl = append(tbl, row)
			}
			tables = append(tables, tbl)
		}
	}
	return paragraphs, tables
}

func renderDocument(paragraphs []string, tables []table) string {
	parts := append([]string(nil), paragraphs...)
	for _, tbl := range tables {
		parts = append(parts, "\nTABLA:")
		for _, row := range tbl {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				if c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) > 0 {
				parts = append(parts, strings.Join(cells, " | "))
			}
		}
		parts = append(parts, separator)
	}
	return strings.Join(parts, "\n")
}
