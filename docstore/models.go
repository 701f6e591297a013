package docstore

// SearchHit is a retrieved chunk reference plus its similarity score
// (cosine convention, 1.0 = identical). Hits live only for the query
// that produced them.
type SearchHit struct {
	ID              string
	Score           float32
	Text            string
	SourceFile      string
	PageNumber      float64
	DecisionDate    string
	PetitionType    string
	DecisionOutcome string
}

// UpsertStats reports how many chunks were committed and how many were
// lost to failed batches. Committed batches are never rolled back.
type UpsertStats struct {
	Stored        int
	Failed        int
	Batches       int
	FailedBatches int
}
