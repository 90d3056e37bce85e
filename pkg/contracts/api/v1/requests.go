// Package api contains the HTTP contract of the sales analysis API.
// Version v1 represents the current stable API version.
package api

// AnalysisRequest holds the multipart form fields of an analysis upload
type AnalysisRequest struct {
	FileName string `json:"file" form:"file" validate:"required,dataset"`
	TopN     int    `json:"top_n,omitempty" form:"top_n" validate:"omitempty,min=1,max=1000"`
	Sheet    string `json:"sheet,omitempty" form:"sheet" validate:"omitempty,max=31"`
}
