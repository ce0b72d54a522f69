// Package seed bootstraps demo data for local development. Production
// deployments keep BOOTSTRAP_SEED_DEMO_AGENCY off.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingdomain "github.com/southtrip/caravel/internal/billing/domain"
	"gorm.io/gorm"
)

const (
	demoAgencyName  = "Viajes del Sur"
	demoAgencySlug  = "demo-viajes-sur"
	demoAgencyTaxID = "30-71234567-8"
	demoHolderName  = "Viajes del Sur SA"
	demoCBU         = "2850590940090418135201"
)

// EnsureDemoAgency seeds one agency with an active mandate and a pending
// collection attempt so a fresh deployment can present a batch immediately.
func EnsureDemoAgency(db *gorm.DB, channel string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agency, err := ensureDemoAgencyTx(ctx, tx, node)
		if err != nil {
			return err
		}
		if err := ensureDemoMandateTx(ctx, tx, node, agency.ID, channel); err != nil {
			return err
		}
		return ensureDemoChargeTx(ctx, tx, node, agency.ID, channel)
	})
}

func ensureDemoAgencyTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (billingdomain.Agency, error) {
	var agency billingdomain.Agency
	err := tx.WithContext(ctx).Where("slug = ?", demoAgencySlug).First(&agency).Error
	if err == nil {
		return agency, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return agency, err
	}
	now := time.Now().UTC()
	agency = billingdomain.Agency{
		ID:        node.Generate(),
		Name:      demoAgencyName,
		Slug:      demoAgencySlug,
		TaxID:     demoAgencyTaxID,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&agency).Error; err != nil {
		return agency, err
	}
	return agency, nil
}

func ensureDemoMandateTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, agencyID snowflake.ID, channel string) error {
	var mandate billingdomain.DebitMandate
	err := tx.WithContext(ctx).
		Where("agency_id = ? AND channel = ?", agencyID, channel).
		First(&mandate).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	now := time.Now().UTC()
	mandate = billingdomain.DebitMandate{
		ID:          node.Generate(),
		AgencyID:    agencyID,
		Channel:     channel,
		Status:      billingdomain.MandateStatusActive,
		HolderName:  demoHolderName,
		HolderTaxID: demoAgencyTaxID,
		CBU:         demoCBU,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return tx.WithContext(ctx).Create(&mandate).Error
}

// ensureDemoChargeTx creates the current cycle, its charge and the first
// collection attempt, scheduled yesterday so it is eligible right away.
func ensureDemoChargeTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, agencyID snowflake.ID, channel string) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&billingdomain.Charge{}).
		Where("agency_id = ?", agencyID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	cycle := billingdomain.BillingCycle{
		ID:          node.Generate(),
		AgencyID:    agencyID,
		PeriodStart: periodStart,
		PeriodEnd:   periodStart.AddDate(0, 1, 0),
		Status:      billingdomain.BillingCycleStatusDue,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(&cycle).Error; err != nil {
		return err
	}

	charge := billingdomain.Charge{
		ID:                   node.Generate(),
		AgencyID:             agencyID,
		CycleID:              &cycle.ID,
		Status:               billingdomain.ChargeStatusPending,
		AmountARSDue:         decimal.NewFromInt(125000),
		ReconciliationStatus: billingdomain.ReconciliationUnmatched,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := tx.WithContext(ctx).Create(&charge).Error; err != nil {
		return err
	}

	attempt := billingdomain.CollectionAttempt{
		ID:           node.Generate(),
		ChargeID:     charge.ID,
		Channel:      channel,
		Status:       billingdomain.AttemptStatusPending,
		ScheduledFor: now.AddDate(0, 0, -1),
		AttemptNo:    1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return tx.WithContext(ctx).Create(&attempt).Error
}
