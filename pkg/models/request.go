package models

// AskRequest is the payload for POST /ask
type AskRequest struct {
	Prompt          string `json:"prompt"`
	UseResearchMode bool   `json:"use_research_mode"`
}

// AskResponse carries the extracted answer text
type AskResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is returned for every internal failure, collapsed to a
// single human-readable detail string
type ErrorResponse struct {
	Detail string `json:"detail"`
}
