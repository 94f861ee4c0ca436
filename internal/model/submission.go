package model

import "time"

// Row is one exported (question label, answer text) pair
type Row struct {
	Label string `json:"label" bson:"label"`
	Text  string `json:"text" bson:"text"`
}

// ExportStatus is the outcome of a spreadsheet export
type ExportStatus string

const (
	ExportStatusExported ExportStatus = "exported"
	ExportStatusFailed   ExportStatus = "failed"
)

// Submission is an archived completed questionnaire
type Submission struct {
	ID           string       `json:"id" bson:"_id"`
	RespondentID RespondentID `json:"respondentId" bson:"respondentId"`
	Rows         []Row        `json:"rows" bson:"rows"`
	Status       ExportStatus `json:"status" bson:"status"`
	Error        string       `json:"error,omitempty" bson:"error,omitempty"`
	CompletedAt  time.Time    `json:"completedAt" bson:"completedAt"`
}
