package translationService

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"AccessAI/database"
	"AccessAI/internal/api/translation"
	translationRepository "AccessAI/internal/api/translation/repository"
	"AccessAI/internal/entity"
	"AccessAI/pkg/oracle"
	"AccessAI/pkg/utils"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTranslator struct {
	got    []string
	result oracle.Result
	err    error
}

func (s *stubTranslator) Reconstruct(_ context.Context, tokens []string) (oracle.Result, error) {
	s.got = tokens
	return s.result, s.err
}

func newTestService(t *testing.T, translator *stubTranslator) (*translationService, *sqlx.DB) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	db, err := database.New(database.DriverSQLite, filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := translationRepository.New(db, log)
	require.NoError(t, repo.Migrate(context.Background()))

	svc := NewTranslationService(log, repo, translator, utils.New()).(*translationService)
	return svc, db
}

func TestTranslateFiltersAndRecords(t *testing.T) {
	stub := &stubTranslator{result: oracle.Result{Sentence: "I am going to school.", Quality: oracle.QualityRemote}}
	svc, _ := newTestService(t, stub)
	ctx := context.Background()

	res, err := svc.Translate(ctx, translation.TranslateRequest{Tokens: []translation.SignInput{
		{Token: " me "},
		{Token: "UM", Confidence: 0.2},
		{Token: "go", Confidence: 0.9},
		{Token: "school"},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ME", "GO", "SCHOOL"}, stub.got)
	assert.Equal(t, "I am going to school.", res.Response)
	assert.Equal(t, translation.SourceRemote, res.Source)
	assert.Empty(t, res.Warning)

	history, err := svc.GetHistory(ctx, "DEAF")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ME GO SCHOOL", history[0].Input)
	assert.Equal(t, "I am going to school.", history[0].Output)
	assert.Len(t, history[0].ID, 26)

	empty, err := svc.GetHistory(ctx, "BLIND")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTranslateErrors(t *testing.T) {
	ctx := context.Background()
	req := translation.TranslateRequest{Tokens: []translation.SignInput{{Token: "HELLO"}}}

	t.Run("low confidence", func(t *testing.T) {
		svc, _ := newTestService(t, &stubTranslator{err: oracle.ErrLowConfidence})
		_, err := svc.Translate(ctx, req)
		assert.ErrorIs(t, err, translation.ErrInvalidTokens)
	})

	t.Run("oracle failure", func(t *testing.T) {
		svc, _ := newTestService(t, &stubTranslator{err: errors.New("tables broken")})
		_, err := svc.Translate(ctx, req)
		assert.ErrorIs(t, err, translation.ErrTranslationFailed)
	})

	t.Run("history failure is a warning", func(t *testing.T) {
		svc, db := newTestService(t, &stubTranslator{result: oracle.Result{Sentence: "Hello.", Quality: oracle.QualityExact}})
		require.NoError(t, db.Close())

		res, err := svc.Translate(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "Hello.", res.Response)
		assert.Equal(t, translation.SourceLocal, res.Source)
		assert.Equal(t, "history not saved", res.Warning)

		_, err = svc.GetHistory(ctx, "")
		assert.ErrorIs(t, err, translation.ErrFetchHistory)
	})
}

func TestRecordKeepsCallerFields(t *testing.T) {
	svc, _ := newTestService(t, &stubTranslator{})
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Record(ctx, entity.History{
		ID:        "01HX0000000000000000000000",
		Input:     "gesture YES",
		Output:    "Moving to next section.",
		Mode:      "BLIND",
		CreatedAt: at,
	}))

	history, err := svc.GetHistory(ctx, "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "01HX0000000000000000000000", history[0].ID)
	assert.True(t, history[0].CreatedAt.Equal(at))

	err = svc.Record(ctx, entity.History{ID: "01HX0000000000000000000000", Mode: "BLIND"})
	assert.ErrorIs(t, err, translation.ErrPersistenceFailed)
}
