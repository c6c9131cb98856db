// package formatter provides functions to export listening history to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// ExportToCSV converts a HistoryExport to CSV format with columns: PlayedAt, Title, Artists, Album, Duration, Rating, Review
func ExportToCSV(export *models.HistoryExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"PlayedAt", "Title", "Artists", "Album", "Duration", "Rating", "Review"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range export.Entries {
		record := []string{
			entry.PlayedAt,
			entry.TrackName,
			strings.Join(entry.Artists, "; "),
			entry.Album,
			strconv.Itoa(entry.DurationMS),
			ratingString(entry.Rating),
			reviewString(entry.Review),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a HistoryExport to Markdown format
func ExportToMarkdown(export *models.HistoryExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Listening History: %s\n\n", export.Username))
	buf.WriteString(fmt.Sprintf("**Generated**: %s\n", export.GeneratedAt.Format("2006-01-02 15:04")))
	buf.WriteString(fmt.Sprintf("**Entries**: %d\n\n", len(export.Entries)))

	buf.WriteString("## Tracks\n\n")
	for i, entry := range export.Entries {
		duration := shared.FormatDuration(entry.DurationMS)
		albumPart := ""
		if entry.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", entry.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, entry.Artist(), entry.TrackName, albumPart, duration))
		if entry.Rating != nil {
			buf.WriteString(fmt.Sprintf("   - Rating: %.2f/5\n", *entry.Rating))
		}
		if entry.Review != nil {
			buf.WriteString(fmt.Sprintf("   - Review: %s\n", *entry.Review))
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a HistoryExport to plain text format
func ExportToText(export *models.HistoryExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("History: %s\n", export.Username))
	buf.WriteString(fmt.Sprintf("Entries: %d\n\n", len(export.Entries)))

	for i, entry := range export.Entries {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, entry.Artist(), entry.TrackName))
		if entry.Rating != nil {
			buf.WriteString(fmt.Sprintf("   Rating: %.2f\n", *entry.Rating))
		}
	}

	return buf.Bytes(), nil
}

// CSVExportResult contains the paths of the files a CSV export produced.
type CSVExportResult struct {
	HistoryFile  string
	MetadataFile string
}

// WriteCSVExport exports history to {base}_history.csv alongside a
// {base}_metadata.json describing the export.
//
// Defaults to the username as the base filename.
func WriteCSVExport(export *models.HistoryExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Username
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	historyFile := baseFilepath + "_history.csv"
	if err := os.WriteFile(historyFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadata := struct {
		Username    string `json:"username"`
		GeneratedAt string `json:"generated_at"`
		Entries     int    `json:"entries"`
	}{export.Username, export.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"), len(export.Entries)}

	metadataJSON, err := shared.MarshalJSON(metadata, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		HistoryFile:  historyFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports history to Markdown at the given path.
//
// Defaults to {username}_history.md as the filename.
func WriteMarkdownExport(export *models.HistoryExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_history.md", export.Username)
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}

// WriteTextExport exports history to plain text format.
//
// Defaults to {username}_history.txt as the filename.
func WriteTextExport(export *models.HistoryExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_history.txt", export.Username)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}

// WriteJSONExport exports history as indented JSON.
//
// Defaults to {username}_history.json as the filename.
func WriteJSONExport(export *models.HistoryExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_history.json", export.Username)
	}

	data, err := shared.MarshalJSON(export, true)
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return filepath, nil
}

func ratingString(r *float64) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', 2, 64)
}

func reviewString(r *string) string {
	if r == nil {
		return ""
	}
	return *r
}
