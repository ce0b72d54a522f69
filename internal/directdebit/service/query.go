package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/southtrip/caravel/internal/directdebit/domain"
	"github.com/southtrip/caravel/internal/storage"
)

// ListBatches returns batch summaries newest first, bounded by an optional
// inclusive business-date range and direction.
func (s *Service) ListBatches(ctx context.Context, req domain.ListBatchesRequest) (domain.ListBatchesResponse, error) {
	var resp domain.ListBatchesResponse

	var from, to time.Time
	var err error
	if strings.TrimSpace(req.From) != "" {
		if from, err = parseBusinessDate(req.From); err != nil {
			return resp, err
		}
	}
	if strings.TrimSpace(req.To) != "" {
		if to, err = parseBusinessDate(req.To); err != nil {
			return resp, err
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return resp, domain.ErrInvalidDateRange
	}

	var direction domain.BatchDirection
	if raw := strings.ToUpper(strings.TrimSpace(req.Direction)); raw != "" {
		switch domain.BatchDirection(raw) {
		case domain.DirectionOutbound, domain.DirectionInbound:
			direction = domain.BatchDirection(raw)
		default:
			return resp, fmt.Errorf("%w: %s", domain.ErrInvalidDirection, req.Direction)
		}
	}

	batches, err := s.repo.ListBatches(ctx, s.db, domain.BatchFilter{
		From:      from,
		To:        to,
		Direction: direction,
		Limit:     req.Limit,
	})
	if err != nil {
		return resp, err
	}

	resp.Batches = make([]domain.BatchSummary, 0, len(batches))
	for _, batch := range batches {
		resp.Batches = append(resp.Batches, batchSummary(batch))
	}
	return resp, nil
}

// DownloadBatchFile returns the exact stored bytes of a batch file. Results
// are cached briefly; stored files are immutable so staleness is not a
// concern within the TTL.
func (s *Service) DownloadBatchFile(ctx context.Context, batchID string) (*domain.BatchFile, error) {
	id, err := parseBatchID(batchID)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.downloads.Get(id); ok {
		return &cached, nil
	}

	batch, err := s.repo.FindBatch(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if batch.StorageKey == nil || *batch.StorageKey == "" {
		return nil, domain.ErrBatchFileMissing
	}

	data, err := s.store.Read(ctx, *batch.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, domain.ErrBatchFileMissing
		}
		return nil, err
	}

	fileName := fmt.Sprintf("batch-%d", id)
	if batch.OriginalFileName != nil && *batch.OriginalFileName != "" {
		fileName = *batch.OriginalFileName
	}
	contentType := "application/octet-stream"
	if batch.ContentType != nil && *batch.ContentType != "" {
		contentType = *batch.ContentType
	}

	file := domain.BatchFile{
		FileName:    fileName,
		ContentType: contentType,
		Data:        data,
	}
	s.downloads.Set(id, file, downloadCacheTTL)
	return &file, nil
}
