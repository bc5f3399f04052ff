package db

// KNNQuery asks an index for the K hashes nearest to Vector.
// An empty ReturnFields returns every field.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is a page of index entries. Total counts every match, not
// just the returned page.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is one indexed hash. On KNN queries Score is the cosine
// distance, so lower is closer; list queries leave it zero.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
