package translationService

import (
	"context"
	"time"

	"AccessAI/internal/api/translation"
	translationRepository "AccessAI/internal/api/translation/repository"
	"AccessAI/internal/entity"
	"AccessAI/internal/mode"
	"AccessAI/pkg/utils"

	"github.com/sirupsen/logrus"
)

type ITranslationService interface {
	Translate(ctx context.Context, req translation.TranslateRequest) (translation.TranslateResponse, error)
	Record(ctx context.Context, entry entity.History) error
	GetHistory(ctx context.Context, kind string) ([]entity.History, error)
}

type translationService struct {
	log           *logrus.Logger
	repo          translationRepository.Repository
	translator    mode.Translator
	utils         utils.IUtils
	minConfidence float64
	clock         func() time.Time
}

func NewTranslationService(
	log *logrus.Logger,
	repo translationRepository.Repository,
	translator mode.Translator,
	utils utils.IUtils,
) ITranslationService {
	return &translationService{
		log:           log,
		repo:          repo,
		translator:    translator,
		utils:         utils,
		minConfidence: mode.DefaultMinConfidence,
		clock:         time.Now,
	}
}
