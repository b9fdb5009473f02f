package client

import (
	"encoding/json"
	"time"
)

// File mirrors the server's File fields relevant to the CLI.
type File struct {
	ID                 string          `json:"id"`
	OriginalName       string          `json:"originalName"`
	MimeType           string          `json:"mimeType"`
	Size               int64           `json:"size"`
	OwnerID            string          `json:"ownerID"`
	Description        string          `json:"description"`
	Tags               []string        `json:"tags"`
	IsPublic           bool            `json:"isPublic"`
	Status             string          `json:"status"`
	ProcessingProgress int             `json:"processingProgress"`
	DownloadCount      int64           `json:"downloadCount"`
	ErrorMessage       *string         `json:"errorMessage,omitempty"`
	RowCount           int             `json:"rowCount"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role,omitempty"`
	Status    string     `json:"status,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ChartDataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type Chart struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChartType    string    `json:"chartType"`
	Data         ChartData `json:"data"`
	SourceFileID *string   `json:"sourceFileID,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// GenerateChartRequest is the body of POST /charts/generate.
type GenerateChartRequest struct {
	FileID       string   `json:"fileId"`
	ChartType    string   `json:"chartType,omitempty"`
	Title        string   `json:"title,omitempty"`
	LabelColumn  string   `json:"labelColumn,omitempty"`
	ValueColumns []string `json:"valueColumns,omitempty"`
	Sheet        string   `json:"sheet,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Save         bool     `json:"save"`
}

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Priority  string    `json:"priority"`
	Read      bool      `json:"read"`
	Link      *string   `json:"link,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FileStatus is the body of GET /files/:id/status.
type FileStatus struct {
	ID                 string         `json:"id"`
	Status             string         `json:"status"`
	ProcessingProgress int            `json:"processingProgress"`
	ErrorMessage       *string        `json:"errorMessage,omitempty"`
	Job                *ProcessingJob `json:"job,omitempty"`
}

type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ProcessingJob struct {
	ID          string  `json:"id"`
	FileID      string  `json:"fileID"`
	Status      string  `json:"status"`
	Attempts    int     `json:"attempts"`
	MaxAttempts int     `json:"maxAttempts"`
	LastError   *string `json:"lastError,omitempty"`
}

type VersionInfo struct {
	Version    string `json:"version"`
	APIVersion string `json:"apiVersion"`
}
