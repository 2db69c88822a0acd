package translationRepository

// created_at holds unix milliseconds so the same schema works on sqlite and
// postgres.
var querySchema = []string{
	`
		CREATE TABLE IF NOT EXISTS history (
			id         VARCHAR(26) PRIMARY KEY,
			input      TEXT NOT NULL,
			output     TEXT NOT NULL,
			mode       VARCHAR(16) NOT NULL,
			created_at BIGINT NOT NULL
		)
	`,
	`CREATE INDEX IF NOT EXISTS idx_history_created_at ON history (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_history_mode ON history (mode, created_at)`,
}

const (
	queryCreateHistory = `
		INSERT INTO history (
			id, input, output, mode, created_at
		) VALUES (
			:id, :input, :output, :mode, :created_at
		)
	`

	queryGetLatestHistory = `
		SELECT
			id, input, output, mode, created_at
		FROM history
		ORDER BY created_at DESC, id DESC
		LIMIT :limit
	`

	queryGetLatestHistoryByMode = `
		SELECT
			id, input, output, mode, created_at
		FROM history
		WHERE mode = :mode
		ORDER BY created_at DESC, id DESC
		LIMIT :limit
	`
)
