package translationService

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"AccessAI/internal/api/translation"
	"AccessAI/internal/entity"
	"AccessAI/internal/mode"
	contextPkg "AccessAI/pkg/context"
	"AccessAI/pkg/oracle"

	"github.com/sirupsen/logrus"
)

func (s *translationService) Translate(ctx context.Context, req translation.TranslateRequest) (translation.TranslateResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	signs := mode.NewSignBuffer(s.minConfidence)
	for _, in := range req.Tokens {
		confidence := in.Confidence
		if confidence == 0 {
			confidence = 1
		}
		signs.Add(in.Token, confidence, in.At())
	}
	tokens := signs.Confident()

	result, err := s.translator.Reconstruct(ctx, tokens)
	if err != nil {
		if errors.Is(err, oracle.ErrLowConfidence) {
			return translation.TranslateResponse{}, translation.ErrInvalidTokens
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Sentence reconstruction failed")
		return translation.TranslateResponse{}, translation.ErrTranslationFailed
	}

	resp := translation.TranslateResponse{
		Response: result.Sentence,
		Quality:  result.Quality,
		Source:   translation.SourceLocal,
	}
	if result.Quality == oracle.QualityRemote {
		resp.Source = translation.SourceRemote
	}

	err = s.Record(ctx, entity.History{
		Input:  strings.Join(tokens, " "),
		Output: result.Sentence,
		Mode:   string(mode.Deaf),
	})
	if err != nil {
		resp.Warning = "history not saved"
	}

	return resp, nil
}

// Record appends one history entry. It fills in the id and timestamp when the
// caller left them empty.
func (s *translationService) Record(ctx context.Context, entry entity.History) error {
	requestID := contextPkg.GetRequestID(ctx)

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock()
	}
	if entry.ID == "" {
		id, err := s.utils.NewULIDFromTimestamp(entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("%w: %v", translation.ErrPersistenceFailed, err)
		}
		entry.ID = id
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return fmt.Errorf("%w: %v", translation.ErrPersistenceFailed, err)
	}

	if err := client.History.CreateHistory(ctx, entry); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"mode":       entry.Mode,
			"error":      err.Error(),
		}).Warn("History entry not saved")
		return fmt.Errorf("%w: %v", translation.ErrPersistenceFailed, err)
	}

	return nil
}

func (s *translationService) GetHistory(ctx context.Context, kind string) ([]entity.History, error) {
	requestID := contextPkg.GetRequestID(ctx)

	client, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return nil, translation.ErrFetchHistory
	}

	entries, err := client.History.GetLatestHistory(ctx, kind, translation.HistoryLimit)
	if err != nil {
		return nil, translation.ErrFetchHistory
	}
	return entries, nil
}
