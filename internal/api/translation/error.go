package translation

import "AccessAI/pkg/response"

var (
	ErrInvalidTokens     = response.NewError(400, "Invalid tokens provided")
	ErrTranslationFailed = response.NewError(500, "Error in translation")
	ErrFetchHistory      = response.NewError(500, "Failed to fetch history")
	ErrPersistenceFailed = response.NewError(500, "history not saved")
)
