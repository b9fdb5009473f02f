package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxGeneratedPoints = 5000

var (
	ErrFileNotProcessed = errors.New("file has not been processed yet")
	ErrNonNumericData   = errors.New("non-numeric data")
)

// ValidationError is a client input problem; its message is returned as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErr(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var chartPalette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

// DatasetInput accepts untyped values so that non-numeric entries can be
// reported by dataset instead of failing JSON decoding.
type DatasetInput struct {
	Label           string `json:"label"`
	Data            []any  `json:"data"`
	BackgroundColor any    `json:"backgroundColor,omitempty"`
	BorderColor     any    `json:"borderColor,omitempty"`
}

type ChartDataInput struct {
	Labels   []any          `json:"labels"`
	Datasets []DatasetInput `json:"datasets"`
	Image    *string        `json:"image,omitempty"`
}

// BuildChartData converts client chart data, rejecting datasets whose
// length does not match the labels or that hold non-numeric values.
func BuildChartData(in *ChartDataInput) (models.ChartData, error) {
	if in == nil {
		return models.ChartData{}, validationErr("data is required")
	}
	out := models.ChartData{
		Labels:   make([]string, len(in.Labels)),
		Datasets: make([]models.ChartDataset, 0, len(in.Datasets)),
		Image:    in.Image,
	}
	for i, l := range in.Labels {
		out.Labels[i] = CellString(l)
	}

	for _, ds := range in.Datasets {
		values := make([]float64, len(ds.Data))
		for i, v := range ds.Data {
			f, ok := NumericValue(v)
			if !ok {
				return models.ChartData{}, validationErr("dataset %q contains non-numeric values", ds.Label)
			}
			values[i] = f
		}
		out.Datasets = append(out.Datasets, models.ChartDataset{
			Label:           ds.Label,
			Data:            values,
			BackgroundColor: ds.BackgroundColor,
			BorderColor:     ds.BorderColor,
		})
	}
	return out, nil
}

// ValidateChart checks a fully assembled chart.
func ValidateChart(c *models.Chart) error {
	if strings.TrimSpace(c.Title) == "" {
		return validationErr("title is required")
	}
	if !models.ValidChartType(c.ChartType) {
		return validationErr("chartType must be one of %s", chartTypeList())
	}
	if len(c.Data.Labels) == 0 {
		return validationErr("at least one label is required")
	}
	if len(c.Data.Datasets) == 0 {
		return validationErr("at least one dataset is required")
	}
	for _, ds := range c.Data.Datasets {
		if len(ds.Data) != len(c.Data.Labels) {
			return validationErr("dataset %q has %d values but there are %d labels", ds.Label, len(ds.Data), len(c.Data.Labels))
		}
	}
	return nil
}

func chartTypeList() string {
	names := make([]string, len(models.ChartTypes))
	for i, t := range models.ChartTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

type GenerateChartRequest struct {
	FileID       string           `json:"fileId"`
	ChartType    models.ChartType `json:"chartType"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	LabelColumn  string           `json:"labelColumn"`
	ValueColumns []string         `json:"valueColumns"`
	Sheet        string           `json:"sheet"`
	Limit        int              `json:"limit"`
	Save         bool             `json:"save"`
}

type ChartService struct {
	DB    *gorm.DB
	Blobs storage.BlobStore
}

func NewChartService(db *gorm.DB, blobs storage.BlobStore) *ChartService {
	return &ChartService{DB: db, Blobs: blobs}
}

// LoadTable parses the stored payload of a processed file.
func (s *ChartService) LoadTable(ctx context.Context, user *models.User, fileID uuid.UUID, sheet string) (*models.File, *Table, error) {
	var file models.File
	if err := s.DB.WithContext(ctx).First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if !CanViewFile(user, &file) {
		return nil, nil, ErrAccessDenied
	}
	if !file.IsProcessed() {
		return &file, nil, ErrFileNotProcessed
	}

	data, err := s.Blobs.Get(ctx, file.StorageKey)
	if err != nil {
		return &file, nil, err
	}
	table, err := ParseRows(file.MimeType, file.OriginalName, data, sheet)
	if err != nil {
		return &file, nil, err
	}
	return &file, table, nil
}

// Generate builds chart data from a file's rows. The chart is persisted
// only when req.Save is set.
func (s *ChartService) Generate(ctx context.Context, user *models.User, req GenerateChartRequest) (*models.Chart, error) {
	fileID, err := uuid.Parse(req.FileID)
	if err != nil {
		return nil, validationErr("fileId must be a valid id")
	}
	if req.ChartType == "" {
		req.ChartType = models.ChartTypeBar
	}
	if !models.ValidChartType(req.ChartType) {
		return nil, validationErr("chartType must be one of %s", chartTypeList())
	}

	file, table, err := s.LoadTable(ctx, user, fileID, req.Sheet)
	if err != nil {
		if errors.Is(err, ErrNotTabular) {
			return nil, &ValidationError{Message: err.Error()}
		}
		return nil, err
	}
	if len(table.Columns) == 0 || len(table.Rows) == 0 {
		return nil, validationErr("file has no rows to chart")
	}

	data, err := buildFromTable(table, req)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = file.OriginalName
	}
	chart := &models.Chart{
		Title:        title,
		Description:  req.Description,
		ChartType:    req.ChartType,
		Data:         data,
		OwnerID:      user.ID,
		SourceFileID: &file.ID,
	}
	if err := ValidateChart(chart); err != nil {
		return nil, err
	}

	if req.Save {
		if err := s.DB.WithContext(ctx).Create(chart).Error; err != nil {
			return nil, err
		}
	}
	return chart, nil
}

func buildFromTable(table *Table, req GenerateChartRequest) (models.ChartData, error) {
	known := make(map[string]bool, len(table.Columns))
	for _, c := range table.Columns {
		known[c] = true
	}

	labelCol := req.LabelColumn
	if labelCol == "" {
		labelCol = table.Columns[0]
	}
	if !known[labelCol] {
		return models.ChartData{}, validationErr("unknown column %q", labelCol)
	}

	rows := table.Rows
	limit := req.Limit
	if limit <= 0 || limit > maxGeneratedPoints {
		limit = maxGeneratedPoints
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}

	valueCols := req.ValueColumns
	if len(valueCols) == 0 {
		valueCols = numericColumns(table.Columns, rows, labelCol)
		if len(valueCols) == 0 {
			return models.ChartData{}, validationErr("no numeric columns found; pass valueColumns explicitly")
		}
	}
	for _, c := range valueCols {
		if !known[c] {
			return models.ChartData{}, validationErr("unknown column %q", c)
		}
	}

	data := models.ChartData{Labels: make([]string, len(rows))}
	for i, row := range rows {
		data.Labels[i] = CellString(row[labelCol])
	}

	for i, col := range valueCols {
		values := make([]float64, len(rows))
		for j, row := range rows {
			f, ok := NumericValue(row[col])
			if !ok {
				return models.ChartData{}, fmt.Errorf("%w: column %q row %d has value %q", ErrNonNumericData, col, j+1, CellString(row[col]))
			}
			values[j] = f
		}
		color := chartPalette[i%len(chartPalette)]
		data.Datasets = append(data.Datasets, models.ChartDataset{
			Label:           col,
			Data:            values,
			BackgroundColor: color,
			BorderColor:     color,
		})
	}
	return data, nil
}

func numericColumns(columns []string, rows []map[string]any, skip string) []string {
	var out []string
	for _, c := range columns {
		if c == skip {
			continue
		}
		seen := false
		numeric := true
		for _, row := range rows {
			v := row[c]
			if v == nil {
				continue
			}
			if _, ok := v.(float64); !ok {
				numeric = false
				break
			}
			seen = true
		}
		if numeric && seen {
			out = append(out, c)
		}
	}
	return out
}
