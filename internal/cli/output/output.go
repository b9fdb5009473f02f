package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/cli/client"
)

// Out is where tables are written; tests swap it for a buffer.
var Out io.Writer = os.Stdout

// JSON prints v as indented JSON.
func JSON(v any) {
	enc := json.NewEncoder(Out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
}

func FileTable(files []client.File) {
	if len(files) == 0 {
		fmt.Fprintln(Out, "No files found.")
		return
	}

	w := newTable()
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tTYPE\tSTATUS\tROWS\tUPLOADED")
	for _, f := range files {
		rows := "-"
		if f.RowCount > 0 {
			rows = fmt.Sprintf("%d", f.RowCount)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.OriginalName, FormatSize(f.Size), shortMIME(f.MimeType), f.Status, rows, RelativeTime(f.CreatedAt))
	}
	w.Flush()
}

func FileDetail(f client.File) {
	w := newTable()
	fmt.Fprintf(w, "Name:\t%s\n", f.OriginalName)
	fmt.Fprintf(w, "ID:\t%s\n", f.ID)
	fmt.Fprintf(w, "Type:\t%s\n", f.MimeType)
	fmt.Fprintf(w, "Size:\t%s\n", FormatSize(f.Size))
	fmt.Fprintf(w, "Status:\t%s (%d%%)\n", f.Status, f.ProcessingProgress)
	if f.ErrorMessage != nil {
		fmt.Fprintf(w, "Error:\t%s\n", *f.ErrorMessage)
	}
	if f.RowCount > 0 {
		fmt.Fprintf(w, "Rows:\t%d\n", f.RowCount)
	}
	if f.Description != "" {
		fmt.Fprintf(w, "Description:\t%s\n", f.Description)
	}
	if len(f.Tags) > 0 {
		fmt.Fprintf(w, "Tags:\t%s\n", strings.Join(f.Tags, ", "))
	}
	fmt.Fprintf(w, "Public:\t%v\n", f.IsPublic)
	fmt.Fprintf(w, "Downloads:\t%d\n", f.DownloadCount)
	fmt.Fprintf(w, "Owner:\t%s\n", f.OwnerID)
	fmt.Fprintf(w, "Uploaded:\t%s\n", f.CreatedAt.Format(time.RFC3339))
	w.Flush()
}

func ChartTable(charts []client.Chart) {
	if len(charts) == 0 {
		fmt.Fprintln(Out, "No charts found.")
		return
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tTITLE\tTYPE\tPOINTS\tSERIES\tUPDATED")
	for _, c := range charts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			c.ID, c.Title, c.ChartType, len(c.Data.Labels), len(c.Data.Datasets), RelativeTime(c.UpdatedAt))
	}
	w.Flush()
}

// ChartDetail prints a chart's series as label/value columns.
func ChartDetail(c client.Chart) {
	fmt.Fprintf(Out, "%s (%s)\n", c.Title, c.ChartType)
	if c.ID != "" {
		fmt.Fprintf(Out, "ID: %s\n", c.ID)
	}
	w := newTable()
	header := []string{"LABEL"}
	for _, ds := range c.Data.Datasets {
		header = append(header, strings.ToUpper(ds.Label))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for i, label := range c.Data.Labels {
		row := []string{label}
		for _, ds := range c.Data.Datasets {
			if i < len(ds.Data) {
				row = append(row, formatNumber(ds.Data[i]))
			}
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

func NotificationTable(items []client.Notification) {
	if len(items) == 0 {
		fmt.Fprintln(Out, "No notifications.")
		return
	}
	w := newTable()
	fmt.Fprintln(w, "ID\t \tPRIORITY\tTITLE\tRECEIVED")
	for _, n := range items {
		marker := "*"
		if n.Read {
			marker = " "
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", n.ID, marker, n.Priority, n.Title, RelativeTime(n.CreatedAt))
	}
	w.Flush()
}

func UserInfo(u client.User) {
	w := newTable()
	fmt.Fprintf(w, "Name:\t%s\n", u.Name)
	fmt.Fprintf(w, "Email:\t%s\n", u.Email)
	fmt.Fprintf(w, "Role:\t%s\n", u.Role)
	fmt.Fprintf(w, "ID:\t%s\n", u.ID)
	if u.LastLogin != nil {
		fmt.Fprintf(w, "Last login:\t%s\n", u.LastLogin.Format(time.RFC3339))
	}
	w.Flush()
}

func VersionInfo(cliVersion string, server *client.VersionInfo) {
	fmt.Fprintf(Out, "excelctl %s\n", cliVersion)
	if server == nil {
		fmt.Fprintln(Out, "server: unreachable")
		return
	}
	fmt.Fprintf(Out, "server %s (api %s)\n", server.Version, server.APIVersion)
}

// FormatSize converts bytes to a human-readable string.
func FormatSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// RelativeTime formats a timestamp relative to now (e.g. "2h ago").
func RelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.2f", f)
}

var mimeShortNames = map[string]string{
	"text/csv": "csv",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "xlsx",
	"application/vnd.ms-excel":                                          "xls",
	"application/json":                                                  "json",
}

func shortMIME(mime string) string {
	if short, ok := mimeShortNames[mime]; ok {
		return short
	}
	parts := strings.Split(mime, "/")
	if len(parts) == 2 {
		return parts[1]
	}
	return mime
}
