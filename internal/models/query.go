package models

// FallbackQuery is handed downstream when synthesis aborts.
const FallbackQuery = "SELECT 'Error generating query'"

// QueryContract is the hand-off shape consumed by the query-execution service.
type QueryContract struct {
	SQLQuery string `json:"sql_query"`
}
