// Package galicia implements the Banco Galicia office-banking debit layout:
// fixed-width ASCII records, one per line, CRLF terminated. An H record
// opens the file, D records carry one debit each with the amount in
// zero-padded centavos, and a T trailer carries row count and total.
package galicia

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/southtrip/caravel/internal/directdebit/format"
)

const adapterName = "galicia"

const (
	refWidth      = 20
	taxIDWidth    = 13
	amountWidth   = 15
	holderWidth   = 30
	paidRefWidth  = 16
	resultPaid    = "00"
	detailMinLen  = 1 + refWidth + 2 + amountWidth
	trailerFormat = "T%07d%017d"
)

type Factory struct{}

func (Factory) Name() string { return adapterName }

func (Factory) New(cfg format.AdapterConfig) (format.Adapter, error) {
	return &Adapter{channel: cfg.Channel}, nil
}

type Adapter struct {
	channel string
}

func (a *Adapter) Name() string { return adapterName }

func (a *Adapter) ContentType() string { return "text/plain" }

func (a *Adapter) BuildPresentment(businessDate time.Time, rows []format.PresentmentRow, meta format.BuildMeta) (string, []byte, error) {
	if len(rows) == 0 {
		return "", nil, format.ErrNoRows
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "H%s%s%019d\r\n",
		padRight(a.channel, 16),
		businessDate.UTC().Format("20060102"),
		int64(meta.BatchID),
	)

	var total int64
	for _, row := range rows {
		centavos, err := toCentavos(row.AmountARS)
		if err != nil {
			return "", nil, err
		}
		total += centavos
		fmt.Fprintf(&buf, "D%s%s%s%0*d%s%s\r\n",
			padRight(row.ExternalReference, refWidth),
			padRight(row.CBULast4, 4),
			padRight(row.HolderTaxID, taxIDWidth),
			amountWidth, centavos,
			row.ScheduledFor.UTC().Format("20060102"),
			padRight(row.HolderName, holderWidth),
		)
	}
	fmt.Fprintf(&buf, trailerFormat+"\r\n", len(rows), total)

	fileName := fmt.Sprintf("galicia-%s-%s.txt", businessDate.UTC().Format("20060102"), meta.BatchID)
	return fileName, buf.Bytes(), nil
}

// ParseResponse reads the bank's result layout: D records with the echoed
// reference, a two-digit result code ("00" means debited, anything else is
// a rejection), the amount in centavos, the bank operation number and a
// free-text reason. H and T records are skipped.
func (a *Adapter) ParseResponse(data []byte) ([]format.ParsedRecord, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, format.ErrEmptyInput
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		records   []format.ParsedRecord
		sawHeader bool
		lineNo    int
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !sawHeader {
			if line[0] != 'H' {
				return nil, format.ErrMissingHeader
			}
			sawHeader = true
			continue
		}
		switch line[0] {
		case 'T':
			continue
		case 'D':
			records = append(records, parseDetail(lineNo, line))
		default:
			records = append(records, format.ParsedRecord{
				LineNo:          lineNo,
				Result:          format.ResultError,
				Raw:             line,
				RejectionReason: "unknown record type",
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, format.ErrMissingHeader
	}
	return records, nil
}

func parseDetail(lineNo int, line string) format.ParsedRecord {
	rec := format.ParsedRecord{LineNo: lineNo, Result: format.ResultError, Raw: line}
	if len(line) < detailMinLen {
		rec.RejectionReason = "short record"
		return rec
	}

	rawRef := strings.TrimSpace(line[1 : 1+refWidth])
	rec.ExternalReference = format.CanonicalReference(rawRef)
	rec.RawHash = format.RowHash(rawRef)

	code := line[1+refWidth : 1+refWidth+2]
	amountField := line[1+refWidth+2 : detailMinLen]
	centavos, err := strconv.ParseInt(strings.TrimSpace(amountField), 10, 64)
	if err != nil {
		rec.RejectionReason = "unparseable amount"
		return rec
	}
	rec.AmountARS = decimal.New(centavos, -2)

	rest := line[detailMinLen:]
	if code == resultPaid {
		rec.Result = format.ResultPaid
		if len(rest) > paidRefWidth {
			rest = rest[:paidRefWidth]
		}
		rec.PaidReference = strings.TrimSpace(rest)
		return rec
	}

	rec.Result = format.ResultRejected
	rec.RejectionCode = code
	// No paid reference applies to a rejected debit; when the bank skips
	// the padded operation-number column the whole tail is the reason.
	reason := rest
	if len(reason) > paidRefWidth {
		reason = reason[paidRefWidth:]
	}
	rec.RejectionReason = strings.TrimSpace(reason)
	return rec
}

func toCentavos(amount decimal.Decimal) (int64, error) {
	centavos := amount.Shift(2).Round(0)
	if centavos.IsNegative() || len(centavos.String()) > amountWidth {
		return 0, format.ErrInvalidAmount
	}
	return centavos.IntPart(), nil
}

// padRight space-pads to width, truncating on overflow. Widths are rune
// counts so accented holder names keep their columns aligned.
func padRight(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}
