package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChartType string

const (
	ChartTypeBar       ChartType = "bar"
	ChartTypeLine      ChartType = "line"
	ChartTypePie       ChartType = "pie"
	ChartTypeDoughnut  ChartType = "doughnut"
	ChartTypeRadar     ChartType = "radar"
	ChartTypePolarArea ChartType = "polarArea"
	ChartTypeScatter   ChartType = "scatter"
)

// ChartTypes lists every chart type the frontend can render.
var ChartTypes = []ChartType{
	ChartTypeBar,
	ChartTypeLine,
	ChartTypePie,
	ChartTypeDoughnut,
	ChartTypeRadar,
	ChartTypePolarArea,
	ChartTypeScatter,
}

func ValidChartType(t ChartType) bool {
	for _, ct := range ChartTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// ChartDataset is one series. Colors are either a single CSS color or a
// per-point list, so they stay untyped.
type ChartDataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor any       `json:"backgroundColor,omitempty"`
	BorderColor     any       `json:"borderColor,omitempty"`
}

type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
	Image    *string        `json:"image,omitempty"`
}

type Chart struct {
	BaseModel
	Title        string         `json:"title" gorm:"type:varchar(255);not null"`
	Description  string         `json:"description" gorm:"type:text"`
	ChartType    ChartType      `json:"chartType" gorm:"type:varchar(20);not null;index"`
	Data         ChartData      `json:"data" gorm:"type:jsonb;serializer:json;not null"`
	Options      datatypes.JSON `json:"options,omitempty"`
	OwnerID      uuid.UUID      `json:"ownerID" gorm:"type:uuid;not null;index"`
	SourceFileID *uuid.UUID     `json:"sourceFileID,omitempty" gorm:"type:uuid;index"`

	Owner *User `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
}

func (Chart) TableName() string {
	return "charts"
}
