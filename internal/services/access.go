package services

import (
	"errors"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
)

// CanViewFile reports whether user may read the file's metadata and payload.
func CanViewFile(user *models.User, file *models.File) bool {
	if file.IsPublic {
		return true
	}
	return CanModifyFile(user, file)
}

func CanModifyFile(user *models.User, file *models.File) bool {
	if user == nil {
		return false
	}
	return user.IsAdmin() || file.OwnerID == user.ID
}

func CanAccessChart(user *models.User, chart *models.Chart) bool {
	if user == nil {
		return false
	}
	return user.IsAdmin() || chart.OwnerID == user.ID
}
