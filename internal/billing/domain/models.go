// Package domain contains the billing entities shared with the wider back
// office. The direct-debit engine mutates their status fields but never
// creates or deletes these rows.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Agency is a travel-agency client of the back office. Charges, cycles and
// mandates hang off it.
type Agency struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex"`
	TaxID     string       `gorm:"type:text;not null"`
	IsDefault bool         `gorm:"not null;default:false"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Agency) TableName() string { return "agencies" }

// ChargeStatus tracks collection progress for a charge.
type ChargeStatus string

const (
	ChargeStatusReady      ChargeStatus = "READY"
	ChargeStatusPending    ChargeStatus = "PENDING"
	ChargeStatusProcessing ChargeStatus = "PROCESSING"
	ChargeStatusPastDue    ChargeStatus = "PAST_DUE"
	ChargeStatusPaid       ChargeStatus = "PAID"
)

// ReconciliationStatus reports whether a charge has been matched to a bank
// response row.
type ReconciliationStatus string

const (
	ReconciliationUnmatched ReconciliationStatus = "UNMATCHED"
	ReconciliationMatched   ReconciliationStatus = "MATCHED"
)

// Charge is the billable amount an agency owes for a cycle.
// amount_ars_paid is only set when status is PAID.
type Charge struct {
	ID                   snowflake.ID         `gorm:"primaryKey"`
	AgencyID             snowflake.ID         `gorm:"not null;index"`
	CycleID              *snowflake.ID        `gorm:"index"`
	Status               ChargeStatus         `gorm:"type:text;not null;default:'READY'"`
	AmountARSDue         decimal.Decimal      `gorm:"type:numeric(18,2);not null"`
	AmountARSPaid        *decimal.Decimal     `gorm:"type:numeric(18,2)"`
	PaidAt               *time.Time           `gorm:"column:paid_at"`
	PaidReference        *string              `gorm:"type:text"`
	ReconciliationStatus ReconciliationStatus `gorm:"type:text;not null;default:'UNMATCHED'"`
	CreatedAt            time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt            time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Charge) TableName() string { return "charges" }

// BillingCycleStatus tracks the lifecycle of a billing period.
type BillingCycleStatus string

const (
	BillingCycleStatusOpen BillingCycleStatus = "OPEN"
	BillingCycleStatusDue  BillingCycleStatus = "DUE"
	BillingCycleStatusPaid BillingCycleStatus = "PAID"
)

// BillingCycle is the period a charge belongs to. It transitions to PAID
// when its charge is collected.
type BillingCycle struct {
	ID          snowflake.ID       `gorm:"primaryKey"`
	AgencyID    snowflake.ID       `gorm:"not null;index"`
	PeriodStart time.Time          `gorm:"not null"`
	PeriodEnd   time.Time          `gorm:"not null"`
	Status      BillingCycleStatus `gorm:"type:text;not null;default:'OPEN'"`
	PaidAt      *time.Time         `gorm:"column:paid_at"`
	CreatedAt   time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingCycle) TableName() string { return "billing_cycles" }

// AttemptStatus tracks one scheduled collection attempt.
type AttemptStatus string

const (
	AttemptStatusPending    AttemptStatus = "PENDING"
	AttemptStatusProcessing AttemptStatus = "PROCESSING"
	AttemptStatusPaid       AttemptStatus = "PAID"
	AttemptStatusRejected   AttemptStatus = "REJECTED"
	AttemptStatusCanceled   AttemptStatus = "CANCELED"
)

// IsTerminal reports whether no further transition is allowed.
func (s AttemptStatus) IsTerminal() bool {
	switch s {
	case AttemptStatusPaid, AttemptStatusRejected, AttemptStatusCanceled:
		return true
	default:
		return false
	}
}

// CollectionAttempt is one scheduled try to collect a charge via a channel.
// At most one attempt per charge is non-terminal at a time; attempt_no
// strictly increases per charge.
type CollectionAttempt struct {
	ID                snowflake.ID  `gorm:"primaryKey"`
	ChargeID          snowflake.ID  `gorm:"not null;index"`
	Channel           string        `gorm:"type:text;not null;index"`
	Status            AttemptStatus `gorm:"type:text;not null;default:'PENDING';index"`
	ScheduledFor      time.Time     `gorm:"not null;index"`
	ExternalReference *string       `gorm:"type:text;index"`
	AttemptNo         int           `gorm:"not null;default:1"`
	ProcessedAt       *time.Time    `gorm:"column:processed_at"`
	RejectionCode     *string       `gorm:"type:text"`
	RejectionReason   *string       `gorm:"type:text"`
	PaidReference     *string       `gorm:"type:text"`
	CreatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CollectionAttempt) TableName() string { return "collection_attempts" }

// MandateStatus tracks a direct-debit authorization.
type MandateStatus string

const (
	MandateStatusActive    MandateStatus = "ACTIVE"
	MandateStatusSuspended MandateStatus = "SUSPENDED"
	MandateStatusRevoked   MandateStatus = "REVOKED"
)

// DebitMandate is an agency's standing authorization to debit its account
// on a channel. Holder fields feed the presentment file.
type DebitMandate struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	AgencyID    snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_debit_mandates_agency_channel,priority:1"`
	Channel     string        `gorm:"type:text;not null;uniqueIndex:ux_debit_mandates_agency_channel,priority:2"`
	Status      MandateStatus `gorm:"type:text;not null;default:'ACTIVE'"`
	HolderName  string        `gorm:"type:text;not null"`
	HolderTaxID string        `gorm:"type:text;not null"`
	CBU         string        `gorm:"type:text;not null"`
	RevokedAt   *time.Time    `gorm:"column:revoked_at"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (DebitMandate) TableName() string { return "debit_mandates" }
