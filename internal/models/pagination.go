package models

import "math"

// Pagination constants
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage keeps (Page-1)*Limit within a 32-bit int for any page size.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// PageRequest is a 1-based page number and a positive page size.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize fills defaults for missing values and caps the page number and size.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	} else if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	} else if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

// Offset calculates the database offset from page and limit
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// TotalPages returns ceil(total / limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	pages := total / int64(limit)
	if total%int64(limit) > 0 {
		pages++
	}
	return int(pages)
}

// AccountFilter selects accounts for the admin listing; empty fields match everything.
type AccountFilter struct {
	Role   Role
	Status Status
	PageRequest
}

// AccountPage is one page of accounts plus the totals needed by the caller.
type AccountPage struct {
	Accounts   []*Account
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}
