package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/config"
	"gorm.io/datatypes"
)

const previewRows = 5

// TranscodeResult is what gets stored after processing: the payload to
// keep, its content type and the metadata extracted on the way.
type TranscodeResult struct {
	Data        []byte
	ContentType string
	RowCount    int
	Metadata    map[string]any
}

func (r *TranscodeResult) MetadataJSON() datatypes.JSON {
	raw, err := json.Marshal(r.Metadata)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

type Transcoder struct {
	images ImageProcessor
	cfg    config.UploadConfig
}

func NewTranscoder(images ImageProcessor, cfg config.UploadConfig) *Transcoder {
	return &Transcoder{images: images, cfg: cfg}
}

// Transcode branches on the file kind. Images are resized and recompressed,
// tabular payloads are kept as uploaded and parsed for metadata.
func (t *Transcoder) Transcode(ctx context.Context, mimeType, name string, data []byte) (*TranscodeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, invalidContent("file is empty")
	}

	kind := DetectKind(mimeType, name)
	switch kind {
	case KindImage:
		return t.transcodeImage(data)
	case KindCSV, KindSpreadsheet, KindJSON:
		table, err := ParseRows(mimeType, name, data, "")
		if err != nil {
			return nil, err
		}
		meta := map[string]any{
			"kind":     string(kind),
			"columns":  table.Columns,
			"rowCount": len(table.Rows),
			"preview":  table.Head(previewRows),
		}
		if len(table.Sheets) > 0 {
			meta["sheets"] = table.Sheets
			meta["sheet"] = table.Sheet
		}
		if len(table.Warnings) > 0 {
			meta["warnings"] = table.Warnings
		}
		return &TranscodeResult{
			Data:        data,
			ContentType: CanonicalMimeType(kind, mimeType, name),
			RowCount:    len(table.Rows),
			Metadata:    meta,
		}, nil
	case KindLegacyXLS:
		return &TranscodeResult{
			Data:        data,
			ContentType: CanonicalMimeType(kind, mimeType, name),
			Metadata: map[string]any{
				"kind":     string(kind),
				"warnings": []string{"legacy .xls workbooks are stored as-is and cannot be charted; save as .xlsx to analyse"},
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, mimeType)
	}
}

func (t *Transcoder) transcodeImage(data []byte) (*TranscodeResult, error) {
	if t.images == nil {
		return nil, fmt.Errorf("image processing is not configured")
	}
	img, err := t.images.Fit(data, t.cfg.ImageMaxWidth, t.cfg.ImageMaxHeight, t.cfg.ImageQuality)
	if err != nil {
		return nil, err
	}
	return &TranscodeResult{
		Data:        img.Data,
		ContentType: img.ContentType,
		Metadata: map[string]any{
			"kind":         string(KindImage),
			"width":        img.Width,
			"height":       img.Height,
			"format":       img.Format,
			"originalSize": len(data),
		},
	}, nil
}
