package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	auditdomain "github.com/southtrip/caravel/internal/audit/domain"
	billingdomain "github.com/southtrip/caravel/internal/billing/domain"
	"github.com/southtrip/caravel/internal/directdebit/domain"
	"github.com/southtrip/caravel/internal/events"
)

func seedCharge(t *testing.T, db *gorm.DB, id, agencyID snowflake.ID, cycleID *snowflake.ID, amount string) {
	t.Helper()
	mustCreate(t, db, &billingdomain.Charge{
		ID:                   id,
		AgencyID:             agencyID,
		CycleID:              cycleID,
		Status:               billingdomain.ChargeStatusReady,
		AmountARSDue:         mustDecimal(t, amount),
		ReconciliationStatus: billingdomain.ReconciliationUnmatched,
	})
}

func TestCreatePresentmentBatchBuildsFile(t *testing.T) {
	db := setupEngineTestDB(t)
	svc, _ := newEngine(t, db, engineOpts{})

	cycleID := snowflake.ID(310)
	mustCreate(t, db, &billingdomain.BillingCycle{
		ID:          cycleID,
		AgencyID:    100,
		PeriodStart: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:      billingdomain.BillingCycleStatusDue,
	})
	seedCharge(t, db, 501, 100, &cycleID, "1000.00")
	seedCharge(t, db, 502, 100, nil, "2500.50")
	mustCreate(t, db, &billingdomain.CollectionAttempt{
		ID: 7001, ChargeID: 501, Channel: testChannel,
		Status:       billingdomain.AttemptStatusPending,
		ScheduledFor: time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC),
		AttemptNo:    1,
	})
	mustCreate(t, db, &billingdomain.CollectionAttempt{
		ID: 7002, ChargeID: 502, Channel: testChannel,
		Status:       billingdomain.AttemptStatusPending,
		ScheduledFor: time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC),
		AttemptNo:    1,
	})
	mustCreate(t, db, &billingdomain.DebitMandate{
		ID: 801, AgencyID: 100, Channel: testChannel,
		Status:      billingdomain.MandateStatusActive,
		HolderName:  "Viajes del Sur SRL",
		HolderTaxID: "30-61234567-8",
		CBU:         "2850590940090418135201",
	})

	summary, err := svc.CreatePresentmentBatch(context.Background(), domain.CreatePresentmentRequest{
		BusinessDate: "2025-01-08",
		ActorUserID:  "ops-1",
	})
	if err != nil {
		t.Fatalf("CreatePresentmentBatch: %v", err)
	}

	if summary.Status != domain.BatchStatusReady {
		t.Fatalf("status = %s, want READY", summary.Status)
	}
	if summary.Direction != domain.DirectionOutbound {
		t.Errorf("direction = %s, want OUTBOUND", summary.Direction)
	}
	if summary.TotalRows != 2 {
		t.Errorf("total rows = %d, want 2", summary.TotalRows)
	}
	if got := summary.TotalAmountARS.StringFixed(2); got != "3500.50" {
		t.Errorf("total amount = %s, want 3500.50", got)
	}
	if summary.BusinessDate != "2025-01-08" {
		t.Errorf("business date = %s, want 2025-01-08", summary.BusinessDate)
	}
	if !strings.HasPrefix(summary.DownloadFileName, "debit-20250108-") {
		t.Errorf("file name = %s, want debit-20250108-* prefix", summary.DownloadFileName)
	}

	var attempt billingdomain.CollectionAttempt
	if err := db.First(&attempt, "id = ?", 7001).Error; err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if attempt.Status != billingdomain.AttemptStatusProcessing {
		t.Errorf("attempt status = %s, want PROCESSING", attempt.Status)
	}
	if attempt.ExternalReference == nil || *attempt.ExternalReference != "DD-7001" {
		t.Errorf("attempt reference = %v, want DD-7001", attempt.ExternalReference)
	}

	var charge billingdomain.Charge
	if err := db.First(&charge, "id = ?", 502).Error; err != nil {
		t.Fatalf("load charge: %v", err)
	}
	if charge.Status != billingdomain.ChargeStatusProcessing {
		t.Errorf("charge status = %s, want PROCESSING", charge.Status)
	}

	if n := countRows(t, db, `SELECT COUNT(*) FROM file_batch_items WHERE batch_id = ? AND status = 'PENDING'`, summary.BatchID); n != 2 {
		t.Errorf("pending items = %d, want 2", n)
	}

	file, err := svc.DownloadBatchFile(context.Background(), summary.BatchID.String())
	if err != nil {
		t.Fatalf("DownloadBatchFile: %v", err)
	}
	if file.ContentType != "text/csv" {
		t.Errorf("content type = %s, want text/csv", file.ContentType)
	}
	content := string(file.Data)
	if !strings.HasPrefix(content, "external_reference,attempt_id,charge_id,agency_id,scheduled_for,amount_ars,holder_name,holder_tax_id,cbu_last4") {
		t.Errorf("unexpected header: %q", strings.SplitN(content, "\r\n", 2)[0])
	}
	if !strings.Contains(content, "DD-7001") || !strings.Contains(content, "2500.50") {
		t.Errorf("file missing expected rows:\n%s", content)
	}
	if !strings.Contains(content, "Viajes del Sur SRL") || !strings.Contains(content, "5201") {
		t.Errorf("file missing mandate holder fields:\n%s", content)
	}

	if n := countRows(t, db, `SELECT COUNT(*) FROM audit_logs WHERE action = ? AND agency_id = 100`, auditdomain.ActionBatchOutboundCreated); n != 1 {
		t.Errorf("audit entries = %d, want 1", n)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM billing_events WHERE event_type = ?`, events.EventBatchCreated); n != 1 {
		t.Errorf("outbox events = %d, want 1", n)
	}
}

func TestCreatePresentmentBatchEmpty(t *testing.T) {
	db := setupEngineTestDB(t)
	svc, _ := newEngine(t, db, engineOpts{})

	summary, err := svc.CreatePresentmentBatch(context.Background(), domain.CreatePresentmentRequest{
		BusinessDate: "2025-01-08",
	})
	if err != nil {
		t.Fatalf("CreatePresentmentBatch: %v", err)
	}
	if summary.Status != domain.BatchStatusEmpty {
		t.Fatalf("status = %s, want EMPTY", summary.Status)
	}
	if summary.TotalRows != 0 {
		t.Errorf("total rows = %d, want 0", summary.TotalRows)
	}

	_, err = svc.DownloadBatchFile(context.Background(), summary.BatchID.String())
	if !errors.Is(err, domain.ErrBatchFileMissing) {
		t.Errorf("download err = %v, want ErrBatchFileMissing", err)
	}
}

func TestCreatePresentmentBatchEligibilityBounds(t *testing.T) {
	db := setupEngineTestDB(t)
	svc, _ := newEngine(t, db, engineOpts{})

	seedCharge(t, db, 501, 100, nil, "100.00")
	mustCreate(t, db, &billingdomain.CollectionAttempt{
		ID: 7001, ChargeID: 501, Channel: testChannel,
		Status:       billingdomain.AttemptStatusPending,
		ScheduledFor: time.Date(2025, 1, 8, 23, 0, 0, 0, time.UTC),
		AttemptNo:    1,
	})

	// Scheduled after the business date.
	seedCharge(t, db, 502, 100, nil, "200.00")
	mustCreate(t, db, &billingdomain.CollectionAttempt{
		ID: 7002, ChargeID: 502, Channel: testChannel,
		Status:       billingdomain.AttemptStatusPending,
		ScheduledFor: time.Date(2025, 1, 9, 8, 0, 0, 0, time.UTC),
		AttemptNo:    1,
	})

	// Charge already collected out of band.
	seedCharge(t, db, 503, 100, nil, "300.00")
	if err := db.Exec(`UPDATE charges SET status = 'PAID' WHERE id = 503`).Error; err != nil {
		t.Fatal(err)
	}
	mustCreate(t, db, &billingdomain.CollectionAttempt{
		ID: 7003, ChargeID: 503, Channel: testChannel,
		Status:       billingdomain.AttemptStatusPending,
		ScheduledFor: time.Date(2025, 1, 7, 8, 0, 0, 0, time.UTC),
		AttemptNo:    1,
	})

	// Attempt on another channel.
	seedCharge(t, db, 504, 100, nil, "400.00")
	mustCreate(t, db, &billingdomain.CollectionAttempt{
		ID: 7004, ChargeID: 504, Channel: "BBVA",
		Status:       billingdomain.AttemptStatusPending,
		ScheduledFor: time.Date(2025, 1, 7, 8, 0, 0, 0, time.UTC),
		AttemptNo:    1,
	})

	// Attempt already frozen by another batch.
	seedCharge(t, db, 505, 100, nil, "500.00")
	mustCreate(t, db, &billingdomain.CollectionAttempt{
		ID: 7005, ChargeID: 505, Channel: testChannel,
		Status:       billingdomain.AttemptStatusProcessing,
		ScheduledFor: time.Date(2025, 1, 7, 8, 0, 0, 0, time.UTC),
		AttemptNo:    1,
	})

	summary, err := svc.CreatePresentmentBatch(context.Background(), domain.CreatePresentmentRequest{
		BusinessDate: "2025-01-08",
	})
	if err != nil {
		t.Fatalf("CreatePresentmentBatch: %v", err)
	}
	if summary.TotalRows != 1 {
		t.Fatalf("total rows = %d, want 1", summary.TotalRows)
	}
	if got := summary.TotalAmountARS.StringFixed(2); got != "100.00" {
		t.Errorf("total amount = %s, want 100.00", got)
	}

	var skipped billingdomain.CollectionAttempt
	if err := db.First(&skipped, "id = ?", 7002).Error; err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if skipped.Status != billingdomain.AttemptStatusPending {
		t.Errorf("future attempt status = %s, want PENDING", skipped.Status)
	}
}

func TestCreatePresentmentBatchRequiresActiveMandate(t *testing.T) {
	db := setupEngineTestDB(t)
	svc, _ := newEngine(t, db, engineOpts{requireMandate: true})

	seedCharge(t, db, 501, 100, nil, "100.00")
	mustCreate(t, db, &billingdomain.CollectionAttempt{
		ID: 7001, ChargeID: 501, Channel: testChannel,
		Status:       billingdomain.AttemptStatusPending,
		ScheduledFor: time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC),
		AttemptNo:    1,
	})
	mustCreate(t, db, &billingdomain.DebitMandate{
		ID: 801, AgencyID: 100, Channel: testChannel,
		Status:      billingdomain.MandateStatusActive,
		HolderName:  "Andes Viajes SA",
		HolderTaxID: "30-70912345-6",
		CBU:         "0070099020000012345678",
	})

	seedCharge(t, db, 502, 200, nil, "200.00")
	mustCreate(t, db, &billingdomain.CollectionAttempt{
		ID: 7002, ChargeID: 502, Channel: testChannel,
		Status:       billingdomain.AttemptStatusPending,
		ScheduledFor: time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC),
		AttemptNo:    1,
	})
	mustCreate(t, db, &billingdomain.DebitMandate{
		ID: 802, AgencyID: 200, Channel: testChannel,
		Status:      billingdomain.MandateStatusSuspended,
		HolderName:  "Patagonia Tours SRL",
		HolderTaxID: "30-71222333-4",
		CBU:         "0140999801100012223334",
	})

	summary, err := svc.CreatePresentmentBatch(context.Background(), domain.CreatePresentmentRequest{
		BusinessDate: "2025-01-08",
	})
	if err != nil {
		t.Fatalf("CreatePresentmentBatch: %v", err)
	}
	if summary.TotalRows != 1 {
		t.Fatalf("total rows = %d, want 1", summary.TotalRows)
	}

	var excluded billingdomain.CollectionAttempt
	if err := db.First(&excluded, "id = ?", 7002).Error; err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if excluded.Status != billingdomain.AttemptStatusPending {
		t.Errorf("unmandated attempt status = %s, want PENDING", excluded.Status)
	}
}

func TestCreatePresentmentBatchKeepsAssignedReference(t *testing.T) {
	db := setupEngineTestDB(t)
	svc, _ := newEngine(t, db, engineOpts{})

	seedCharge(t, db, 501, 100, nil, "100.00")
	preset := "  trip-9001  "
	mustCreate(t, db, &billingdomain.CollectionAttempt{
		ID: 7001, ChargeID: 501, Channel: testChannel,
		Status:            billingdomain.AttemptStatusPending,
		ScheduledFor:      time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC),
		ExternalReference: &preset,
		AttemptNo:         2,
	})

	summary, err := svc.CreatePresentmentBatch(context.Background(), domain.CreatePresentmentRequest{
		BusinessDate: "2025-01-08",
	})
	if err != nil {
		t.Fatalf("CreatePresentmentBatch: %v", err)
	}

	var reference string
	if err := db.Raw(`SELECT external_reference FROM file_batch_items WHERE batch_id = ?`, summary.BatchID).Scan(&reference).Error; err != nil {
		t.Fatal(err)
	}
	if reference != "TRIP-9001" {
		t.Errorf("item reference = %s, want TRIP-9001", reference)
	}
}

func TestCreatePresentmentBatchUploadFailureRollsBack(t *testing.T) {
	db := setupEngineTestDB(t)
	svc, _ := newEngine(t, db, engineOpts{store: failingStore{}})

	seedCharge(t, db, 501, 100, nil, "100.00")
	mustCreate(t, db, &billingdomain.CollectionAttempt{
		ID: 7001, ChargeID: 501, Channel: testChannel,
		Status:       billingdomain.AttemptStatusPending,
		ScheduledFor: time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC),
		AttemptNo:    1,
	})

	_, err := svc.CreatePresentmentBatch(context.Background(), domain.CreatePresentmentRequest{
		BusinessDate: "2025-01-08",
	})
	if err == nil {
		t.Fatal("expected upload failure to surface")
	}

	var attempt billingdomain.CollectionAttempt
	if err := db.First(&attempt, "id = ?", 7001).Error; err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if attempt.Status != billingdomain.AttemptStatusPending {
		t.Errorf("attempt status = %s, want PENDING after rollback", attempt.Status)
	}
	if attempt.ExternalReference == nil || *attempt.ExternalReference != "DD-7001" {
		t.Errorf("attempt reference = %v, want DD-7001 kept", attempt.ExternalReference)
	}

	var charge billingdomain.Charge
	if err := db.First(&charge, "id = ?", 501).Error; err != nil {
		t.Fatalf("load charge: %v", err)
	}
	if charge.Status != billingdomain.ChargeStatusPending {
		t.Errorf("charge status = %s, want PENDING after rollback", charge.Status)
	}

	if n := countRows(t, db, `SELECT COUNT(*) FROM file_batches WHERE status = 'FAILED'`); n != 1 {
		t.Errorf("failed batches = %d, want 1", n)
	}
}

func TestCreatePresentmentBatchInvalidDate(t *testing.T) {
	db := setupEngineTestDB(t)
	svc, _ := newEngine(t, db, engineOpts{})

	_, err := svc.CreatePresentmentBatch(context.Background(), domain.CreatePresentmentRequest{
		BusinessDate: "08/01/2025",
	})
	if !errors.Is(err, domain.ErrInvalidBusinessDate) {
		t.Fatalf("err = %v, want ErrInvalidBusinessDate", err)
	}
}
