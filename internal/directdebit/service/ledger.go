package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	ledgerdomain "github.com/southtrip/caravel/internal/ledger/domain"
)

// postCollectionTx records a collected charge as a balanced double entry:
// cash clearing is debited and accounts receivable credited for the paid
// amount. Runs inside the caller's row transaction so the posting and the
// status change commit or roll back together.
func (s *Service) postCollectionTx(
	ctx context.Context,
	tx *gorm.DB,
	agencyID snowflake.ID,
	chargeID snowflake.ID,
	amount decimal.Decimal,
	occurredAt time.Time,
) error {
	cashID, err := s.ensureLedgerAccountTx(ctx, tx, agencyID, ledgerdomain.AccountCodeCashClearing, "Cash / Clearing", occurredAt)
	if err != nil {
		return err
	}
	arID, err := s.ensureLedgerAccountTx(ctx, tx, agencyID, ledgerdomain.AccountCodeAccountsReceivable, "Accounts Receivable", occurredAt)
	if err != nil {
		return err
	}

	lines := []ledgerdomain.LedgerEntryLine{
		{AccountID: cashID, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: amount},
		{AccountID: arID, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: amount},
	}

	return s.ledgerSvc.CreateEntryTx(
		ctx,
		tx,
		agencyID,
		ledgerdomain.SourceTypeDirectDebitCollection,
		chargeID,
		"ARS",
		occurredAt,
		lines,
	)
}

func (s *Service) ensureLedgerAccountTx(ctx context.Context, tx *gorm.DB, agencyID snowflake.ID, code string, name string, now time.Time) (snowflake.ID, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, ledgerdomain.ErrInvalidAccount
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ledgerdomain.ErrInvalidAccount
	}

	var accountID snowflake.ID
	if err := tx.WithContext(ctx).Raw(
		`SELECT id
		 FROM ledger_accounts
		 WHERE agency_id = ? AND code = ?`,
		agencyID,
		code,
	).Scan(&accountID).Error; err != nil {
		return 0, err
	}
	if accountID != 0 {
		return accountID, nil
	}

	newID := s.genID.Generate()
	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO ledger_accounts (id, agency_id, code, name, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (agency_id, code) DO NOTHING`,
		newID,
		agencyID,
		code,
		name,
		now,
	).Error; err != nil {
		return 0, err
	}

	if err := tx.WithContext(ctx).Raw(
		`SELECT id
		 FROM ledger_accounts
		 WHERE agency_id = ? AND code = ?`,
		agencyID,
		code,
	).Scan(&accountID).Error; err != nil {
		return 0, err
	}
	if accountID == 0 {
		return 0, errors.New("ledger_account_not_found")
	}
	return accountID, nil
}
