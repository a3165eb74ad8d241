package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// Extracted is the text pulled from one document.
type Extracted struct {
	Content  string
	Metadata map[string]string
}

// Extract reads a file and returns its plain text. The format is chosen
// by extension; anything unrecognized is treated as UTF-8 text.
func Extract(ctx context.Context, path string) (*Extracted, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(ctx, path)
	case ".docx":
		return extractDocx(path)
	case ".xlsx":
		return extractXlsx(ctx, path)
	default:
		return extractText(path)
	}
}

func extractText(path string) (*Extracted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return &Extracted{
		Content:  string(data),
		Metadata: map[string]string{"type": "text"},
	}, nil
}

func extractPDF(ctx context.Context, path string) (*Extracted, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat pdf: %w", err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pdf: %w", err)
	}

	var parts []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}

	return &Extracted{
		Content: strings.Join(parts, "\n\n"),
		Metadata: map[string]string{
			"type":  "pdf",
			"pages": fmt.Sprintf("%d", reader.NumPage()),
		},
	}, nil
}

func extractDocx(path string) (*Extracted, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return &Extracted{
		Content:  doc.Editable().GetContent(),
		Metadata: map[string]string{"type": "docx"},
	}, nil
}

// maxCellsPerSheet bounds extraction from dense spreadsheets.
const maxCellsPerSheet = 1000

func extractXlsx(ctx context.Context, path string) (*Extracted, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var parts []string
	for _, sheetName := range sheets {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}

		var sb strings.Builder
		sb.WriteString("Sheet: " + sheetName + "\n")
		cells := 0
		for _, row := range rows {
			if cells >= maxCellsPerSheet {
				sb.WriteString("... (truncated)\n")
				break
			}
			var fields []string
			for _, cell := range row {
				if text := strings.TrimSpace(cell); text != "" {
					fields = append(fields, text)
					cells++
				}
			}
			if len(fields) > 0 {
				sb.WriteString(strings.Join(fields, "\t") + "\n")
			}
		}
		parts = append(parts, strings.TrimSpace(sb.String()))
	}

	return &Extracted{
		Content: strings.Join(parts, "\n\n"),
		Metadata: map[string]string{
			"type":   "xlsx",
			"sheets": fmt.Sprintf("%d", len(sheets)),
		},
	}, nil
}
