package models

import "time"

// DocumentType is the format of a generated offer
type DocumentType string

const (
	DocumentTypePDF  DocumentType = "pdf"
	DocumentTypeDOCX DocumentType = "docx"
)

// DocumentLog is one row of the append-only audit log of generated offers
type DocumentLog struct {
	ID             int64        `json:"id"`
	UserID         *int64       `json:"userId,omitempty"`   // nil once the user is deleted
	Username       string       `json:"username,omitempty"` // empty when UserID is nil
	CreatedAt      time.Time    `json:"createdAt"`
	DocumentNumber int64        `json:"documentNumber"`
	DocumentType   DocumentType `json:"documentType"`
	FileRef        string       `json:"fileRef,omitempty"`
}

// DocumentLogListResponse is returned by the document log endpoint
type DocumentLogListResponse struct {
	Logs []DocumentLog `json:"logs"`
}
