package waitlist

import (
	"github.com/akeren/waitlister-api/internal/models"
	"github.com/akeren/waitlister-api/pkg/constants"
)

// RegisterRequest is the raw signup payload. A JSON null or missing phone is
// treated as "no phone"; any string, including "", is validated.
type RegisterRequest struct {
	Email string  `json:"email"`
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
}

type RegistrationResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type EntryResponse struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	Phone      *string `json:"phone,omitempty"`
	CreatedAt  string  `json:"createdAt"`
	Notified   bool    `json:"notified"`
	NotifiedAt *string `json:"notifiedAt,omitempty"`
}

type ListQuery struct {
	Page     int
	Limit    int
	Notified *bool
}

type PageInfo struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type ListResult struct {
	Entries    []EntryResponse `json:"entries"`
	Pagination PageInfo        `json:"pagination"`
}

// EntryCounts always satisfies Total == Notified + NotNotified.
type EntryCounts struct {
	Total       int64 `json:"total"`
	Notified    int64 `json:"notified"`
	NotNotified int64 `json:"notNotified"`
}

// ListFilter is the store-level window derived from a ListQuery.
type ListFilter struct {
	Offset   int
	Limit    int
	Notified *bool
}

// reaches reports whether the window starts inside a result set of total rows.
func (f ListFilter) reaches(total int64) bool {
	return f.Limit > 0 && f.Offset >= 0 && int64(f.Offset) < total
}

// capacity is the number of rows the window can hold out of total.
func (f ListFilter) capacity(total int64) int {
	remaining := total - int64(f.Offset)
	if remaining < int64(f.Limit) {
		return int(remaining)
	}
	return f.Limit
}

// ========================================
// Mappers
// ========================================

func ToWaitlistEntryModel(reg *Registration) *models.WaitlistEntry {
	if reg == nil {
		return nil
	}
	return &models.WaitlistEntry{
		Email: reg.Email,
		Name:  reg.Name,
		Phone: reg.Phone,
	}
}

func ToRegistrationResponse(entry *models.WaitlistEntry) RegistrationResponse {
	if entry == nil {
		return RegistrationResponse{}
	}
	return RegistrationResponse{
		ID:    entry.ID,
		Email: entry.Email,
		Name:  entry.Name,
	}
}

func ToEntryResponse(entry *models.WaitlistEntry) EntryResponse {
	if entry == nil {
		return EntryResponse{}
	}

	resp := EntryResponse{
		ID:        entry.ID,
		Email:     entry.Email,
		Name:      entry.Name,
		Phone:     entry.Phone,
		CreatedAt: entry.CreatedAt.UTC().Format(constants.RFC3339DateTimeFormat),
		Notified:  entry.Notified,
	}
	if entry.NotifiedAt != nil {
		notifiedAt := entry.NotifiedAt.UTC().Format(constants.RFC3339DateTimeFormat)
		resp.NotifiedAt = &notifiedAt
	}
	return resp
}
