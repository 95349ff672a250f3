package types

// ImportResult summarizes one bulk import. Partial success is a normal outcome.
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Failed reports whether any row produced an error.
func (r *ImportResult) Failed() bool {
	return len(r.Errors) > 0
}

// Total returns the number of rows the import looked at.
func (r *ImportResult) Total() int {
	return r.Created + r.Updated + r.Skipped + len(r.Errors)
}

// Status summarizes a tenant's stored data.
type Status struct {
	TenantID        int64   `json:"search_space_id"`
	ProceduresCount int     `json:"procedures_count"`
	ChunksCount     int     `json:"chunks_count"`
	IndexSizeMB     float64 `json:"index_size_mb"`
	BuildMode       string  `json:"build_mode"`
}
