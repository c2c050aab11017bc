// package formatter renders playlist results and history as tables, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Format names accepted by [Render] and [WriteExport].
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// ParseFormat validates a --format flag value; empty means text.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatText, "txt":
		return FormatText, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, markdown, csv or json)", shared.ErrInvalidFlag, s)
	}
}

// ExportToCSV converts a PlaylistResult to CSV format with columns: Position, Track, URI
func ExportToCSV(result *models.PlaylistResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "Track", "URI"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range result.Tracks {
		if err := writer.Write([]string{strconv.Itoa(i + 1), track.Raw, track.URI}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistResult to Markdown with a link to the playlist
func ExportToMarkdown(result *models.PlaylistResult) ([]byte, error) {
	var buf bytes.Buffer

	if !result.Success {
		fmt.Fprintf(&buf, "# No playlist for %q\n\n%s\n", result.Mood, result.Message)
		return buf.Bytes(), nil
	}

	fmt.Fprintf(&buf, "# %s\n\n", result.Name)
	fmt.Fprintf(&buf, "**Mood**: %s\n", result.Mood)
	fmt.Fprintf(&buf, "**Tracks**: %d of %d suggested\n", result.TrackCount, result.Requested)
	if result.URL != "" {
		fmt.Fprintf(&buf, "**Listen**: [Open in Spotify](%s)\n", result.URL)
	}

	buf.WriteString("\n## Tracks\n\n")
	for i, track := range result.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, track.Raw)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistResult to plain text format
func ExportToText(result *models.PlaylistResult) ([]byte, error) {
	var buf bytes.Buffer

	if !result.Success {
		fmt.Fprintf(&buf, "No playlist created for %q: %s\n", result.Mood, result.Message)
		return buf.Bytes(), nil
	}

	fmt.Fprintf(&buf, "Playlist: %s\n", result.Name)
	fmt.Fprintf(&buf, "Mood: %s\n", result.Mood)
	if result.URL != "" {
		fmt.Fprintf(&buf, "URL: %s\n", result.URL)
	}
	fmt.Fprintf(&buf, "Tracks: %d/%d\n\n", result.TrackCount, result.Requested)

	for i, track := range result.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, track.Raw)
	}

	return buf.Bytes(), nil
}

// Render converts result into the named format.
func Render(result *models.PlaylistResult, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(result)
	case FormatMarkdown:
		return ExportToMarkdown(result)
	case FormatJSON:
		return []byte(shared.MarshalJSON(result) + "\n"), nil
	default:
		return ExportToText(result)
	}
}

// WriteExport renders result in format and writes it to path.
func WriteExport(result *models.PlaylistResult, path, format string) error {
	if path == "" {
		return fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}

	data, err := Render(result, format)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// TracksTable renders resolved tracks as a rounded table.
func TracksTable(tracks []models.ResolvedTrack) string {
	rows := make([][]string, len(tracks))
	for i, t := range tracks {
		rows[i] = []string{strconv.Itoa(i + 1), t.Raw, t.URI}
	}
	return renderTable([]string{"#", "Track", "URI"}, rows, []text.Align{text.AlignRight})
}

// HistoryTable renders playlist history, newest first, as a rounded table.
func HistoryTable(records []*models.PlaylistRecord) string {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			strconv.Itoa(r.Sequence()),
			r.CreatedAt().Local().Format(time.DateTime),
			r.Mood(),
			r.Name(),
			strconv.Itoa(r.TrackCount()),
			r.URL(),
		}
	}
	return renderTable(
		[]string{"#", "Created", "Mood", "Name", "Tracks", "URL"},
		rows,
		[]text.Align{text.AlignRight, text.AlignLeft, text.AlignLeft, text.AlignLeft, text.AlignRight},
	)
}

// HistoryToCSV converts playlist history to CSV with columns: Sequence, Created, Mood, Name, Tracks, SpotifyID, URL
func HistoryToCSV(records []*models.PlaylistRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Sequence", "Created", "Mood", "Name", "Tracks", "SpotifyID", "URL"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range records {
		record := []string{
			strconv.Itoa(r.Sequence()),
			r.CreatedAt().UTC().Format(time.RFC3339),
			r.Mood(),
			r.Name(),
			strconv.Itoa(r.TrackCount()),
			r.SpotifyID(),
			r.URL(),
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

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
