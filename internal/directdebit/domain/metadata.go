package domain

import (
	"encoding/json"
	"strconv"
	"strings"

	"gorm.io/datatypes"
)

// Metadata keys written on inbound batches. Readers go through ImportMeta;
// nothing reads the map ad hoc.
const (
	metaKeyMatchedRows  = "matched_rows"
	metaKeyFiscalIssued = "fiscal_issued"
	metaKeyFiscalFailed = "fiscal_failed"
)

// ImportMeta is the documented shape of an inbound batch's metadata. It
// carries the parts of the import summary that have no dedicated column, so
// a duplicate re-upload can return the stored result verbatim.
type ImportMeta struct {
	MatchedRows  int
	FiscalIssued int
	FiscalFailed int
}

// ToMap renders the metadata for storage.
func (m ImportMeta) ToMap() datatypes.JSONMap {
	return datatypes.JSONMap{
		metaKeyMatchedRows:  m.MatchedRows,
		metaKeyFiscalIssued: m.FiscalIssued,
		metaKeyFiscalFailed: m.FiscalFailed,
	}
}

// ImportMetaFromMap reads stored metadata. Missing or malformed keys read
// as zero; values survive a JSON round trip as float64 or json.Number.
func ImportMetaFromMap(meta datatypes.JSONMap) ImportMeta {
	return ImportMeta{
		MatchedRows:  readMetaInt(meta, metaKeyMatchedRows),
		FiscalIssued: readMetaInt(meta, metaKeyFiscalIssued),
		FiscalFailed: readMetaInt(meta, metaKeyFiscalFailed),
	}
}

func readMetaInt(meta datatypes.JSONMap, key string) int {
	if meta == nil {
		return 0
	}
	value, ok := meta[key]
	if !ok {
		return 0
	}
	switch typed := value.(type) {
	case float64:
		return int(typed)
	case float32:
		return int(typed)
	case int:
		return typed
	case int64:
		return int(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err == nil {
			return int(parsed)
		}
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(typed))
		if err == nil {
			return parsed
		}
	}
	return 0
}
