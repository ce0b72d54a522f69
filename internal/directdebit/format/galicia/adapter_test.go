package galicia

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/southtrip/caravel/internal/directdebit/format"
)

func newAdapter(t *testing.T) format.Adapter {
	t.Helper()
	adapter, err := Factory{}.New(format.AdapterConfig{Channel: "GALICIA"})
	if err != nil {
		t.Fatal(err)
	}
	return adapter
}

func sampleRows() []format.PresentmentRow {
	scheduled := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	return []format.PresentmentRow{
		{
			ExternalReference: "DD-1001",
			ScheduledFor:      scheduled,
			AmountARS:         decimal.RequireFromString("1000.00"),
			HolderName:        "Viajes Sur SA",
			HolderTaxID:       "30-11111111-1",
			CBULast4:          "4321",
		},
		{
			ExternalReference: "DD-1002",
			ScheduledFor:      scheduled,
			AmountARS:         decimal.RequireFromString("2500.50"),
			HolderName:        "Compañía Andina SRL",
			HolderTaxID:       "30-22222222-2",
			CBULast4:          "8765",
		},
	}
}

func TestBuildPresentmentLayout(t *testing.T) {
	adapter := newAdapter(t)
	businessDate := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	meta := format.BuildMeta{BatchID: 42, Channel: "GALICIA"}

	fileName, data, err := adapter.BuildPresentment(businessDate, sampleRows(), meta)
	if err != nil {
		t.Fatal(err)
	}
	if fileName != "galicia-20250108-42.txt" {
		t.Fatalf("fileName = %q", fileName)
	}
	if !bytes.HasSuffix(data, []byte("\r\n")) {
		t.Fatal("file must be CRLF terminated")
	}

	lines := strings.Split(strings.TrimRight(string(data), "\r\n"), "\r\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want H + 2 D + T", len(lines))
	}

	header := lines[0]
	if header[0] != 'H' || !strings.Contains(header, "20250108") {
		t.Fatalf("header = %q", header)
	}
	if !strings.HasSuffix(header, fmt.Sprintf("%019d", 42)) {
		t.Fatalf("header batch id field = %q", header)
	}

	for _, line := range lines[1:3] {
		if line[0] != 'D' {
			t.Fatalf("detail line = %q", line)
		}
		if n := utf8.RuneCountInString(line); n != 91 {
			t.Fatalf("detail line is %d runes, want 91: %q", n, line)
		}
	}
	if !strings.Contains(lines[1], "000000000100000") {
		t.Fatalf("first detail amount field missing: %q", lines[1])
	}
	if !strings.Contains(lines[2], "000000000250050") {
		t.Fatalf("second detail amount field missing: %q", lines[2])
	}

	wantTrailer := fmt.Sprintf("T%07d%017d", 2, 350050)
	if lines[3] != wantTrailer {
		t.Fatalf("trailer = %q, want %q", lines[3], wantTrailer)
	}
}

func TestBuildPresentmentDeterministic(t *testing.T) {
	adapter := newAdapter(t)
	businessDate := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	meta := format.BuildMeta{BatchID: 42, Channel: "GALICIA"}

	_, first, err := adapter.BuildPresentment(businessDate, sampleRows(), meta)
	if err != nil {
		t.Fatal(err)
	}
	_, second, err := adapter.BuildPresentment(businessDate, sampleRows(), meta)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("identical input must produce identical bytes")
	}
}

func TestBuildPresentmentAmountBounds(t *testing.T) {
	adapter := newAdapter(t)
	businessDate := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)

	rows := sampleRows()[:1]
	rows[0].AmountARS = decimal.RequireFromString("99999999999999.99")
	if _, _, err := adapter.BuildPresentment(businessDate, rows, format.BuildMeta{BatchID: 1}); err != format.ErrInvalidAmount {
		t.Fatalf("oversized amount: err = %v, want ErrInvalidAmount", err)
	}

	rows[0].AmountARS = decimal.RequireFromString("-1.00")
	if _, _, err := adapter.BuildPresentment(businessDate, rows, format.BuildMeta{BatchID: 1}); err != format.ErrInvalidAmount {
		t.Fatalf("negative amount: err = %v, want ErrInvalidAmount", err)
	}

	if _, _, err := adapter.BuildPresentment(businessDate, nil, format.BuildMeta{BatchID: 1}); err != format.ErrNoRows {
		t.Fatalf("no rows: err = %v, want ErrNoRows", err)
	}
}

func detailLine(ref, code, centavos, rest string) string {
	return "D" + padRight(ref, refWidth) + code + centavos + rest
}

func TestParseResponse(t *testing.T) {
	adapter := newAdapter(t)
	input := "HGALICIA         202501080000000000000000042\r\n" +
		detailLine("DD-1001", "00", "000000000100000", "OP-778899") + "\r\n" +
		detailLine("DD-1002", "30", "000000000250050", padRight("", paidRefWidth)+"cuenta cerrada") + "\r\n" +
		fmt.Sprintf("T%07d%017d", 2, 350050) + "\r\n"

	records, err := adapter.ParseResponse([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	paid := records[0]
	if paid.Result != format.ResultPaid || paid.ExternalReference != "DD-1001" {
		t.Fatalf("paid record = %+v", paid)
	}
	if !paid.AmountARS.Equal(decimal.RequireFromString("1000.00")) {
		t.Fatalf("paid amount = %s", paid.AmountARS)
	}
	if paid.PaidReference != "OP-778899" {
		t.Fatalf("paid reference = %q", paid.PaidReference)
	}
	if paid.RawHash != format.RowHash("DD-1001") {
		t.Fatal("raw hash must track the echoed reference")
	}

	rejected := records[1]
	if rejected.Result != format.ResultRejected || rejected.RejectionCode != "30" {
		t.Fatalf("rejected record = %+v", rejected)
	}
	if rejected.RejectionReason != "cuenta cerrada" {
		t.Fatalf("rejection reason = %q", rejected.RejectionReason)
	}
	if rejected.PaidReference != "" {
		t.Fatalf("rejected row kept a paid reference: %q", rejected.PaidReference)
	}
	if !rejected.AmountARS.Equal(decimal.RequireFromString("2500.50")) {
		t.Fatalf("rejected amount = %s", rejected.AmountARS)
	}
}

func TestParseResponseMalformedLinesIsolated(t *testing.T) {
	adapter := newAdapter(t)
	input := "HGALICIA         202501080000000000000000042\n" +
		detailLine("DD-1001", "00", "000000000100000", "OP-1") + "\n" +
		"DSHORT\n" +
		detailLine("DD-1003", "00", "NOTANUMBER12345", "") + "\n" +
		"XGARBAGE\n"

	records, err := adapter.ParseResponse([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if records[0].Result != format.ResultPaid {
		t.Fatalf("record 0 = %+v", records[0])
	}
	if records[1].Result != format.ResultError || records[1].RejectionReason != "short record" {
		t.Fatalf("record 1 = %+v", records[1])
	}
	if records[2].Result != format.ResultError || records[2].RejectionReason != "unparseable amount" {
		t.Fatalf("record 2 = %+v", records[2])
	}
	if records[3].Result != format.ResultError || records[3].RejectionReason != "unknown record type" {
		t.Fatalf("record 3 = %+v", records[3])
	}
	for _, rec := range records[1:] {
		if rec.Raw == "" {
			t.Fatalf("error record lost its raw line: %+v", rec)
		}
	}
}

func TestParseResponseHeaderAndInputErrors(t *testing.T) {
	adapter := newAdapter(t)
	if _, err := adapter.ParseResponse(nil); err != format.ErrEmptyInput {
		t.Fatalf("empty input: err = %v", err)
	}
	if _, err := adapter.ParseResponse([]byte("  \r\n \r\n")); err != format.ErrEmptyInput {
		t.Fatalf("blank input: err = %v", err)
	}
	input := detailLine("DD-1001", "00", "000000000100000", "") + "\r\n"
	if _, err := adapter.ParseResponse([]byte(input)); err != format.ErrMissingHeader {
		t.Fatalf("headerless input: err = %v", err)
	}
}

func TestParseResponseToleratesBOM(t *testing.T) {
	adapter := newAdapter(t)
	input := "\xef\xbb\xbfHGALICIA         202501080000000000000000042\r\n" +
		detailLine("DD-1001", "00", "000000000100000", "OP-1") + "\r\n"

	records, err := adapter.ParseResponse([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Result != format.ResultPaid {
		t.Fatalf("records = %+v", records)
	}
}

func TestParseResponseRejectedShortTailKeepsReason(t *testing.T) {
	adapter := newAdapter(t)
	input := "HGALICIA         202501080000000000000000042\r\n" +
		detailLine("DD-1002", "30", "000000000250050", "sin fondos") + "\r\n"

	records, err := adapter.ParseResponse([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rejected := records[0]
	if rejected.Result != format.ResultRejected || rejected.RejectionCode != "30" {
		t.Fatalf("record = %+v", rejected)
	}
	if rejected.RejectionReason != "sin fondos" {
		t.Fatalf("rejection reason = %q, want the unpadded tail", rejected.RejectionReason)
	}
	if rejected.PaidReference != "" {
		t.Fatalf("rejected row kept a paid reference: %q", rejected.PaidReference)
	}
}
