package events

// Direct-debit event types stored in the outbox for downstream consumers
// (notifications, exports, data warehouse).
const (
	EventBatchCreated  = "direct_debit.batch.created"
	EventBatchImported = "direct_debit.batch.imported"
	EventChargePaid    = "direct_debit.charge.paid"
)

// BatchCreatedPayload captures the minimal data describing a new outbound batch.
type BatchCreatedPayload struct {
	BatchID        string `json:"batch_id"`
	BusinessDate   string `json:"business_date"`
	Adapter        string `json:"adapter"`
	Channel        string `json:"channel"`
	TotalRows      int    `json:"total_rows"`
	TotalAmountARS string `json:"total_amount_ars"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p BatchCreatedPayload) ToMap() map[string]any {
	return map[string]any{
		"batch_id":         p.BatchID,
		"business_date":    p.BusinessDate,
		"adapter":          p.Adapter,
		"channel":          p.Channel,
		"total_rows":       p.TotalRows,
		"total_amount_ars": p.TotalAmountARS,
	}
}

// BatchImportedPayload captures the per-import reconciliation counts.
type BatchImportedPayload struct {
	InboundBatchID  string `json:"inbound_batch_id"`
	OutboundBatchID string `json:"outbound_batch_id"`
	MatchedRows     int    `json:"matched_rows"`
	Paid            int    `json:"paid"`
	Rejected        int    `json:"rejected"`
	ErrorRows       int    `json:"error_rows"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p BatchImportedPayload) ToMap() map[string]any {
	return map[string]any{
		"inbound_batch_id":  p.InboundBatchID,
		"outbound_batch_id": p.OutboundBatchID,
		"matched_rows":      p.MatchedRows,
		"paid":              p.Paid,
		"rejected":          p.Rejected,
		"error_rows":        p.ErrorRows,
	}
}

// ChargePaidPayload captures a collected charge.
type ChargePaidPayload struct {
	ChargeID      string `json:"charge_id"`
	AttemptID     string `json:"attempt_id"`
	AmountARS     string `json:"amount_ars"`
	PaidReference string `json:"paid_reference,omitempty"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p ChargePaidPayload) ToMap() map[string]any {
	payload := map[string]any{
		"charge_id":  p.ChargeID,
		"attempt_id": p.AttemptID,
		"amount_ars": p.AmountARS,
	}
	if p.PaidReference != "" {
		payload["paid_reference"] = p.PaidReference
	}
	return payload
}
