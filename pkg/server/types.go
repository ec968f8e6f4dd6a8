package server

import (
	"github.com/docker/docqa/pkg/rag/session"
)

type LearnRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type UploadResponse struct {
	Filename string         `json:"filename"`
	Message  string         `json:"message"`
	Learn    session.Result `json:"learn"`
}

type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type SearchResponse struct {
	Results []session.Match `json:"results"`
}

type AskRequest struct {
	Question string `json:"question"`
	Model    string `json:"model"`
	K        int    `json:"k"`
}

type AskResponse struct {
	Model   string   `json:"model"`
	Label   string   `json:"label"`
	Answer  string   `json:"answer"`
	Context []string `json:"context"`
}

type StatusResponse struct {
	State          session.State `json:"state"`
	SourceFilename string        `json:"source_filename,omitempty"`
	NChunks        int           `json:"n_chunks"`
}
