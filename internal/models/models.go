package models

import (
	"fmt"
	"time"
)

// Document represents an uploaded document tracked through the
// ingestion pipeline.
type Document struct {
	ID          string    `db:"id" json:"id"`
	FileName    string    `db:"file_name" json:"file_name"`
	ContentType string    `db:"content_type" json:"content_type"`
	StorageURL  string    `db:"storage_url" json:"storage_url"`
	Status      Status    `db:"status" json:"status"`
	Failure     string    `db:"failure" json:"failure,omitempty"`
	PageCount   int       `db:"page_count" json:"page_count"`
	ChunkCount  int       `db:"chunk_count" json:"chunk_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Chunk is one overlapping segment of a document's extracted text,
// the unit of embedding and retrieval. Immutable once created.
type Chunk struct {
	ID         string `db:"id" json:"id"`
	DocumentID string `db:"document_id" json:"document_id"`
	Seq        int    `db:"seq" json:"seq"`
	Text       string `db:"text" json:"text"`
	TokenCount int    `db:"token_count" json:"token_count"`
}

// ChunkID derives the stable index key for a chunk: document id plus
// sequence number. Re-indexing the same document upserts in place.
func ChunkID(documentID string, seq int) string {
	return fmt.Sprintf("%s_%d", documentID, seq)
}

// Evidence is a retrieved chunk scored against a question. Score is
// cosine similarity in [0,1] and always meets the effective threshold.
type Evidence struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Seq        int     `json:"seq"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// LogicStep is one reasoning step in the answer's logic tree. If the
// step rests on a retrieved chunk, EvidenceID names it.
type LogicStep struct {
	Statement  string `json:"statement"`
	Satisfied  bool   `json:"satisfied"`
	EvidenceID string `json:"evidence_id,omitempty"`
}

// LogicTree is the ordered reasoning trace reported with an answer.
// Kind is "AND" or "OR" over the steps.
type LogicTree struct {
	Kind  string      `json:"kind"`
	Steps []LogicStep `json:"steps"`
}

// Answer is the synthesized response to a question. Evidence is always
// a subset of the retrieval results that were shown to the model;
// Supported is false when the documents did not back the answer.
type Answer struct {
	Text       string     `json:"answer"`
	Supported  bool       `json:"supported"`
	Confidence float64    `json:"confidence"`
	Evidence   []Evidence `json:"evidence"`
	LogicTree  *LogicTree `json:"logic_tree,omitempty"`
	Provider   string     `json:"provider"`
}
