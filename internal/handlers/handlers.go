package handlers

import (
	"database/sql"

	"github.com/ricelink/ricelink-golang/internal/advisor"
)

// Handlers holds the shared dependencies for all HTTP handlers.
// DBReadOnly is a second pool connected with a read-only account; the
// market advisor runs its generated SQL through it. Advisor is nil when
// no GEMINI_API_KEY is configured.
type Handlers struct {
	DB         *sql.DB
	DBReadOnly *sql.DB
	Advisor    *advisor.Service
}
