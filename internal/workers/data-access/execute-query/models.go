// internal/workers/data-access/execute-query/models.go
package executequery

type Input struct {
	SQLQuery string `json:"sql_query"`
}

type Output struct {
	Rows               []map[string]interface{} `json:"rows"`
	Columns            []string                 `json:"columns"`
	RowCount           int                      `json:"rowCount"`
	QueryExecutionTime int64                    `json:"queryExecutionTime"` // milliseconds
	ResultBytes        int                      `json:"resultBytes"`
}
