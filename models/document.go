package models

import "time"

// StoredFile is the metadata record for the single PDF bound to a chat id.
// The bytes themselves live on disk; re-uploading under the same chat id
// overwrites both.
type StoredFile struct {
	ChatID     string    `bson:"chat_id" json:"chat_id"`
	Filename   string    `bson:"filename" json:"filename"`
	Path       string    `bson:"path" json:"-"`
	Size       int64     `bson:"size" json:"size"`
	UploadedAt time.Time `bson:"uploaded_at" json:"uploaded_at"`
}

// DocumentChunk is one indexed unit of PDF text. Chunks are immutable once
// written; retrieval filters on FileName so a pdf-channel conversation only
// ever sees chunks from its own bound file.
type DocumentChunk struct {
	ChunkID  string    `bson:"chunk_id" json:"chunk_id"`
	Content  string    `bson:"content" json:"content"`
	FileName string    `bson:"file_name" json:"file_name"`
	Page     int       `bson:"page" json:"page"`
	Vector   []float32 `bson:"vector,omitempty" json:"-"`
}

// ScoredChunk pairs a chunk with its similarity score for retrieval results.
type ScoredChunk struct {
	Chunk DocumentChunk
	Score float64
}

// UploadResult is the JSON body returned by the upload endpoint.
type UploadResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}
