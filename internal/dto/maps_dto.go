package dto

import (
	"github.com/google/uuid"

	"github.com/raftaar/raftaar-backend/internal/geo"
	"github.com/raftaar/raftaar-backend/internal/models"
)

// CaptainResponse is a captain as returned by proximity search, with the
// location in client order.
type CaptainResponse struct {
	ID           uuid.UUID       `json:"_id"`
	FullName     models.FullName `json:"fullname"`
	Email        string          `json:"email"`
	MobileNumber string          `json:"mobileNumber"`
	ProfilePhoto string          `json:"profilePhoto,omitempty"`
	Vehicle      models.Vehicle  `json:"vehicle"`
	Status       string          `json:"status"`
	Location     *geo.Point      `json:"location,omitempty"`
}

func NewCaptainResponse(c *models.Captain) CaptainResponse {
	resp := CaptainResponse{
		ID:           c.ID,
		FullName:     c.FullName,
		Email:        c.Email,
		MobileNumber: c.MobileNumber,
		ProfilePhoto: c.ProfilePhoto,
		Vehicle:      c.Vehicle,
		Status:       c.Status,
	}
	if p, ok := c.Point(); ok {
		resp.Location = &p
	}
	return resp
}

func NewCaptainResponses(captains []*models.Captain) []CaptainResponse {
	out := make([]CaptainResponse, 0, len(captains))
	for _, c := range captains {
		out = append(out, NewCaptainResponse(c))
	}
	return out
}
