package audit

import (
	"bufio"
	"io"
	"strings"
	"time"
)

// ExportHeader is the fixed column order consumed by downstream tooling.
const ExportHeader = "ID,User ID,Verification Type,Action,Status,IP Address,User Agent,Performed By,Created At"

const exportTimeLayout = "2006-01-02T15:04:05.000Z07:00"

var freeTextReplacer = strings.NewReplacer(",", ";", "\r\n", " ", "\n", " ", "\r", " ")

// sanitize replaces delimiters instead of quoting them; the export format is
// not RFC 4180 and consumers split on raw commas.
func sanitize(s string) string {
	return freeTextReplacer.Replace(s)
}

// FormatTimestamp renders t as ISO-8601 UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(exportTimeLayout)
}

// WriteCSV renders entries in export format, header first.
func WriteCSV(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(ExportHeader + "\n"); err != nil {
		return err
	}
	for _, e := range entries {
		performedBy := ""
		if e.PerformedBy != nil {
			performedBy = e.PerformedBy.String()
		}
		fields := []string{
			e.ID.String(),
			e.UserID.String(),
			sanitize(string(e.VerificationType)),
			sanitize(string(e.Action)),
			sanitize(string(e.Status)),
			sanitize(e.IPAddress),
			sanitize(e.UserAgent),
			performedBy,
			FormatTimestamp(e.CreatedAt),
		}
		if _, err := bw.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
