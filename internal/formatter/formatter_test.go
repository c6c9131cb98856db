package formatter_test

import (
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/encore/internal/formatter"
	"github.com/desertthunder/encore/internal/models"
	tu "github.com/desertthunder/encore/internal/testing"
)

func sampleExport() *models.HistoryExport {
	rating := 4.5
	review := "late-night favorite"
	return &models.HistoryExport{
		Username:    "maria",
		GeneratedAt: time.Date(2026, 8, 30, 21, 15, 0, 0, time.UTC),
		Entries: []models.HistoryEntry{
			{
				TrackID:    "t1",
				PlayedAt:   "2026-08-30T20:58:00Z",
				TrackName:  "Pink Moon",
				Artists:    []string{"Nick Drake"},
				Album:      "Pink Moon",
				DurationMS: 125000,
				Rating:     &rating,
				Review:     &review,
			},
			{
				TrackID:    "t2",
				PlayedAt:   "2026-08-30T20:54:00Z",
				TrackName:  "Holocene",
				Artists:    []string{"Bon Iver", "Sean Carey"},
				Album:      "Bon Iver, Bon Iver",
				DurationMS: 337000,
			},
		},
	}
}

func TestExportToCSV(t *testing.T) {
	data, err := formatter.ExportToCSV(sampleExport())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	t.Run("headers", func(t *testing.T) {
		want := []string{"PlayedAt", "Title", "Artists", "Album", "Duration", "Rating", "Review"}
		for i, col := range want {
			if records[0][i] != col {
				t.Errorf("header %d: expected %s, got %s", i, col, records[0][i])
			}
		}
	})

	t.Run("annotated row", func(t *testing.T) {
		row := records[1]
		if row[1] != "Pink Moon" {
			t.Errorf("unexpected title %s", row[1])
		}
		if row[5] != "4.50" {
			t.Errorf("expected rating 4.50, got %s", row[5])
		}
		if row[6] != "late-night favorite" {
			t.Errorf("unexpected review %s", row[6])
		}
	})

	t.Run("multiple artists joined", func(t *testing.T) {
		if records[2][2] != "Bon Iver; Sean Carey" {
			t.Errorf("unexpected artists cell %s", records[2][2])
		}
	})

	t.Run("unrated row has empty annotation cells", func(t *testing.T) {
		if records[2][5] != "" || records[2][6] != "" {
			t.Errorf("expected empty rating/review, got %q %q", records[2][5], records[2][6])
		}
	})
}

func TestExportToMarkdown(t *testing.T) {
	data, err := formatter.ExportToMarkdown(sampleExport())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	md := string(data)

	if !strings.Contains(md, "# Listening History: maria") {
		t.Error("missing title heading")
	}
	if !strings.Contains(md, "1. Nick Drake - Pink Moon (Pink Moon) [2:05]") {
		t.Errorf("missing formatted entry line in:\n%s", md)
	}
	if !strings.Contains(md, "- Rating: 4.50/5") {
		t.Error("missing rating line")
	}
	if !strings.Contains(md, "- Review: late-night favorite") {
		t.Error("missing review line")
	}
	if strings.Contains(md, "2. Bon Iver - Holocene (Bon Iver, Bon Iver) [5:37]\n   - Rating") {
		t.Error("unrated entry must not carry a rating line")
	}
}

func TestExportToText(t *testing.T) {
	data, err := formatter.ExportToText(sampleExport())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	text := string(data)

	if !strings.Contains(text, "History: maria") {
		t.Error("missing header")
	}
	if !strings.Contains(text, "Entries: 2") {
		t.Error("missing entry count")
	}
	if !strings.Contains(text, "1. Nick Drake - Pink Moon") {
		t.Error("missing entry line")
	}
	if !strings.Contains(text, "Rating: 4.50") {
		t.Error("missing rating line")
	}
}

func TestWriteExports(t *testing.T) {
	t.Run("CSV pair with explicit base path", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "out")

		result, err := formatter.WriteCSVExport(sampleExport(), base)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, result.HistoryFile)
		tu.AssertFileExists(t, result.MetadataFile)

		if result.HistoryFile != base+"_history.csv" {
			t.Errorf("unexpected history path %s", result.HistoryFile)
		}

		metadata := tu.MustReadFile(t, result.MetadataFile)
		if !strings.Contains(metadata, `"username": "maria"`) {
			t.Errorf("metadata missing username:\n%s", metadata)
		}
		if !strings.Contains(metadata, `"entries": 2`) {
			t.Errorf("metadata missing entry count:\n%s", metadata)
		}
	})

	t.Run("markdown defaults to the username", func(t *testing.T) {
		wd := tu.MustGetwd(t)
		tu.MustChdir(t, t.TempDir())
		defer tu.MustChdir(t, wd)

		path, err := formatter.WriteMarkdownExport(sampleExport(), "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if path != "maria_history.md" {
			t.Errorf("unexpected path %s", path)
		}
		tu.AssertFileExists(t, path)
	})

	t.Run("text export", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.txt")

		got, err := formatter.WriteTextExport(sampleExport(), path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != path {
			t.Errorf("unexpected path %s", got)
		}
		if !strings.Contains(tu.MustReadFile(t, path), "History: maria") {
			t.Error("written file missing header")
		}
	})

	t.Run("JSON export round-trips entries", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.json")

		if _, err := formatter.WriteJSONExport(sampleExport(), path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, `"track_id": "t1"`) {
			t.Errorf("missing entry in:\n%s", content)
		}
		if !strings.Contains(content, `"rating": 4.5`) {
			t.Errorf("missing rating in:\n%s", content)
		}
	})
}
