package models

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// FileType is the extraction format of an uploaded file.
// Learning: The type is resolved from the filename exactly once, at upload,
// and stored on the document. Everything downstream switches on the stored
// value instead of looking at the filename again.
type FileType string

const (
	FileTypeText  FileType = "txt"
	FileTypePDF   FileType = "pdf"
	FileTypeDOCX  FileType = "docx"
	FileTypeCSV   FileType = "csv"
	FileTypeXLSX  FileType = "xlsx"
	FileTypeAudio FileType = "audio"
)

var ErrUnsupportedFileType = errors.New("unsupported file type")

var extensionTypes = map[string]FileType{
	"txt":  FileTypeText,
	"pdf":  FileTypePDF,
	"docx": FileTypeDOCX,
	"doc":  FileTypeDOCX,
	"csv":  FileTypeCSV,
	"xlsx": FileTypeXLSX,
	"xls":  FileTypeXLSX,
	"mp3":  FileTypeAudio,
	"wav":  FileTypeAudio,
	"m4a":  FileTypeAudio,
	"ogg":  FileTypeAudio,
	"webm": FileTypeAudio,
}

// FileTypeFromFilename maps a filename extension (case-insensitive) to its FileType.
func FileTypeFromFilename(filename string) (FileType, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ft, ok := extensionTypes[ext]; ok {
		return ft, nil
	}
	return "", ErrUnsupportedFileType
}

// Valid reports whether ft is one of the known formats.
func (ft FileType) Valid() bool {
	switch ft {
	case FileTypeText, FileTypePDF, FileTypeDOCX, FileTypeCSV, FileTypeXLSX, FileTypeAudio:
		return true
	}
	return false
}

type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusProcessed DocumentStatus = "processed"
	StatusError     DocumentStatus = "error"
)

// Document is an uploaded file and its processing state.
// A document with Processed=false and no chunks is either new or the leftover
// of an interrupted pipeline run; both are safe to process again from scratch.
type Document struct {
	ID          string     `json:"id" gorm:"type:char(27);primaryKey"`
	ProjectID   string     `json:"project_id" gorm:"type:char(27);not null;index"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Filename    string     `json:"filename" gorm:"type:text;not null"`
	FileType    FileType   `json:"file_type" gorm:"type:varchar(16);not null"`
	StoragePath string     `json:"storage_path" gorm:"type:text;not null"`
	FileSize    int64      `json:"file_size"`
	Processed   bool       `json:"processed" gorm:"not null;default:false;index"`
	Error       *string    `json:"error,omitempty" gorm:"type:text"`
	UploadedAt  time.Time  `json:"uploaded_at" gorm:"column:uploaded_at;autoCreateTime"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = ksuid.New().String()
	}
	return nil
}

// Status derives the user-facing state shown in document lists.
func (d *Document) Status() DocumentStatus {
	switch {
	case d.Processed:
		return StatusProcessed
	case d.Error != nil && *d.Error != "":
		return StatusError
	default:
		return StatusPending
	}
}

type DocumentCreate struct {
	ProjectID   string
	UserID      uuid.UUID
	Filename    string
	FileType    FileType
	StoragePath string
	FileSize    int64
}

// DocumentStatusUpdate records the outcome of one pipeline run.
type DocumentStatusUpdate struct {
	Processed bool
	Error     *string
}
