package utils

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

func ParsePagination(c *fiber.Ctx) PaginationParams {
	page := parseIntDefault(c.Query("page"), 1)
	limit := parseIntDefault(c.Query("limit"), DefaultPageLimit)

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

func ApplyPagination(db *gorm.DB, p PaginationParams) *gorm.DB {
	return db.Offset(p.Offset).Limit(p.Limit)
}

// ParseSort maps the sort/order query parameters onto an ORDER BY clause.
// allowed maps public field names to column names; unknown fields fall back
// to fallback, and order defaults to descending.
func ParseSort(c *fiber.Ctx, allowed map[string]string, fallback string) string {
	column, ok := allowed[c.Query("sort")]
	if !ok {
		column = fallback
	}
	direction := "DESC"
	if strings.EqualFold(c.Query("order"), "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}

// ParseBoolQuery returns nil when the parameter is absent or malformed.
func ParseBoolQuery(c *fiber.Ctx, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
