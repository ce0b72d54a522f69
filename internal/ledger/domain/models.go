package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// LedgerEntryDirection is the side a line posts to.
type LedgerEntryDirection string

const (
	LedgerEntryDirectionDebit  LedgerEntryDirection = "debit"
	LedgerEntryDirectionCredit LedgerEntryDirection = "credit"
)

const (
	SourceTypeDirectDebitCollection = "direct_debit_collection"
)

const (
	AccountCodeAccountsReceivable = "accounts_receivable"
	AccountCodeCashClearing       = "cash_clearing"
)

// LedgerAccount is one agency-scoped account in the chart. The collection
// poster creates accounts on first use; (agency_id, code) is unique.
type LedgerAccount struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	AgencyID  snowflake.ID `gorm:"not null;index;uniqueIndex:ux_ledger_accounts_agency_code,priority:1"`
	Code      string       `gorm:"type:text;not null;uniqueIndex:ux_ledger_accounts_agency_code,priority:2"`
	Name      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LedgerAccount) TableName() string { return "ledger_accounts" }

// LedgerEntry is the immutable header of one financial event. SourceType
// and SourceID point back at what caused the posting, a collected charge
// in this engine's case.
type LedgerEntry struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	AgencyID   snowflake.ID `gorm:"not null;index"`
	SourceType string       `gorm:"type:text;not null;index"`
	SourceID   snowflake.ID `gorm:"not null;index"`
	Currency   string       `gorm:"type:text;not null"`
	OccurredAt time.Time    `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }

// LedgerEntryLine is one side of a posting. Amounts are non-negative; the
// direction carries the sign.
type LedgerEntryLine struct {
	ID            snowflake.ID         `gorm:"primaryKey"`
	LedgerEntryID snowflake.ID         `gorm:"not null;index"`
	AccountID     snowflake.ID         `gorm:"not null;index"`
	Direction     LedgerEntryDirection `gorm:"type:text;not null"`
	Amount        decimal.Decimal      `gorm:"type:numeric(18,2);not null"`
	CreatedAt     time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LedgerEntryLine) TableName() string { return "ledger_entry_lines" }
