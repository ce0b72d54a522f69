// Package debugcsv implements the reference CSV file grammar: a plain
// UTF-8, RFC 4180 file with a header row. It is the adapter used in
// development and for banks that accept free-form CSV presentments.
package debugcsv

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/southtrip/caravel/internal/directdebit/format"
)

const adapterName = "csv"

var outboundHeader = []string{
	"external_reference",
	"attempt_id",
	"charge_id",
	"agency_id",
	"scheduled_for",
	"amount_ars",
	"holder_name",
	"holder_tax_id",
	"cbu_last4",
}

var inboundColumns = []string{
	"external_reference",
	"result",
	"amount_ars",
	"paid_reference",
	"rejection_code",
	"rejection_reason",
}

type Factory struct{}

func (Factory) Name() string { return adapterName }

func (Factory) New(cfg format.AdapterConfig) (format.Adapter, error) {
	return &Adapter{channel: cfg.Channel}, nil
}

type Adapter struct {
	channel string
}

func (a *Adapter) Name() string { return adapterName }

func (a *Adapter) ContentType() string { return "text/csv" }

func (a *Adapter) BuildPresentment(businessDate time.Time, rows []format.PresentmentRow, meta format.BuildMeta) (string, []byte, error) {
	if len(rows) == 0 {
		return "", nil, format.ErrNoRows
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	if err := w.Write(outboundHeader); err != nil {
		return "", nil, err
	}
	for _, row := range rows {
		record := []string{
			row.ExternalReference,
			row.AttemptID.String(),
			row.ChargeID.String(),
			row.AgencyID.String(),
			row.ScheduledFor.UTC().Format("2006-01-02"),
			format.FormatAmount(row.AmountARS),
			row.HolderName,
			row.HolderTaxID,
			row.CBULast4,
		}
		if err := w.Write(record); err != nil {
			return "", nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, err
	}

	fileName := fmt.Sprintf("debit-%s-%s.csv", businessDate.UTC().Format("20060102"), meta.BatchID)
	return fileName, buf.Bytes(), nil
}

func (a *Adapter) ParseResponse(data []byte) ([]format.ParsedRecord, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, format.ErrEmptyInput
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	type physicalLine struct {
		no   int
		text string
	}
	var lines []physicalLine
	for lineNo := 1; scanner.Scan(); lineNo++ {
		lines = append(lines, physicalLine{no: lineNo, text: strings.TrimRight(scanner.Text(), "\r")})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var (
		records []format.ParsedRecord
		columns map[string]int
	)
	for i := 0; i < len(lines); {
		line := lines[i]
		if strings.TrimSpace(line.text) == "" {
			i++
			continue
		}
		if columns == nil {
			idx, err := parseHeader(line.text)
			if err != nil {
				return nil, err
			}
			columns = idx
			i++
			continue
		}

		// A quoted field may carry the record onto the following lines.
		last := i
		logical := line.text
		for quoteOpen(logical) && last+1 < len(lines) {
			last++
			logical += "\n" + lines[last].text
		}

		fields, err := splitRecord(logical)
		if err != nil {
			// The assembled record is unparseable. Fault only the first
			// physical line; the rest are retried on their own.
			records = append(records, format.ParsedRecord{
				LineNo:          line.no,
				Result:          format.ResultError,
				Raw:             line.text,
				RejectionReason: err.Error(),
			})
			i++
			continue
		}
		records = append(records, parseRecord(line.no, logical, fields, columns))
		i = last + 1
	}
	if columns == nil {
		return nil, format.ErrMissingHeader
	}
	return records, nil
}

func parseHeader(line string) (map[string]int, error) {
	fields, err := splitRecord(line)
	if err != nil {
		return nil, format.ErrMissingHeader
	}
	idx := make(map[string]int, len(fields))
	for i, name := range fields {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range inboundColumns {
		if _, ok := idx[required]; !ok {
			return nil, format.ErrMissingHeader
		}
	}
	return idx, nil
}

func parseRecord(lineNo int, raw string, fields []string, columns map[string]int) format.ParsedRecord {
	rec := format.ParsedRecord{LineNo: lineNo, Result: format.ResultError, Raw: raw}

	field := func(name string) string {
		i := columns[name]
		if i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	rawRef := field("external_reference")
	rec.ExternalReference = format.CanonicalReference(rawRef)
	rec.RawHash = format.RowHash(rawRef)
	rec.PaidReference = field("paid_reference")
	rec.RejectionCode = field("rejection_code")
	rec.RejectionReason = field("rejection_reason")

	switch strings.ToUpper(field("result")) {
	case "PAID":
		amount, err := format.ParseAmount(field("amount_ars"))
		if err != nil {
			rec.RejectionReason = "unparseable amount"
			return rec
		}
		rec.Result = format.ResultPaid
		rec.AmountARS = amount
	case "REJECTED":
		rec.Result = format.ResultRejected
		if amount, err := format.ParseAmount(field("amount_ars")); err == nil {
			rec.AmountARS = amount
		}
	}
	return rec
}

// splitRecord parses one logical CSV record in isolation so a malformed row
// cannot abort the surrounding file.
func splitRecord(record string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(record))
	r.FieldsPerRecord = -1
	return r.Read()
}

// quoteOpen reports whether a record fragment ends inside a quoted field.
// Escaped quotes come in pairs, so an odd count means the field is still
// open and the record continues on the next line.
func quoteOpen(s string) bool {
	return strings.Count(s, `"`)%2 == 1
}
