package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/raftaar/raftaar-backend/internal/apperr"
	"github.com/raftaar/raftaar-backend/internal/dto"
	"github.com/raftaar/raftaar-backend/internal/geo"
	"github.com/raftaar/raftaar-backend/internal/maps"
	"github.com/raftaar/raftaar-backend/internal/presence"
)

type MapsHandler struct {
	client   *maps.Client
	presence *presence.Engine
}

func NewMapsHandler(client *maps.Client, engine *presence.Engine) *MapsHandler {
	return &MapsHandler{client: client, presence: engine}
}

func (h *MapsHandler) GetCoordinates(c *fiber.Ctx) error {
	address := c.Query("address")
	if strings.TrimSpace(address) == "" {
		return writeError(c, &apperr.Error{Kind: apperr.Validation, Message: "address is required", Field: "address"})
	}

	place, err := h.client.Coordinates(c.UserContext(), address)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(place)
}

func (h *MapsHandler) GetAddress(c *fiber.Ctx) error {
	lat, err := queryFloat(c, "lat")
	if err != nil {
		return writeError(c, err)
	}
	lng, err := queryFloat(c, "lng")
	if err != nil {
		return writeError(c, err)
	}

	place, err := h.client.ResolvePoint(c.UserContext(), geo.Point{Lat: lat, Lng: lng})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(place)
}

func (h *MapsHandler) GetDistanceTime(c *fiber.Ctx) error {
	route, err := h.client.DistanceTime(c.UserContext(), c.Query("origin"), c.Query("destination"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(route)
}

func (h *MapsHandler) GetSuggestions(c *fiber.Ctx) error {
	suggestions, err := h.client.Suggestions(c.UserContext(), c.Query("input"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(suggestions)
}

func (h *MapsHandler) GetCaptainsInRadius(c *fiber.Ctx) error {
	lat, err := queryFloat(c, "lat")
	if err != nil {
		return writeError(c, err)
	}
	lng, err := queryFloat(c, "lng")
	if err != nil {
		return writeError(c, err)
	}
	radius, err := queryFloat(c, "radius")
	if err != nil {
		return writeError(c, err)
	}

	captains, err := h.presence.FindCaptainsWithinRadius(c.UserContext(), lat, lng, radius)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewCaptainResponses(captains))
}

func queryFloat(c *fiber.Ctx, name string) (float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, &apperr.Error{Kind: apperr.Validation, Message: name + " is required", Field: name}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &apperr.Error{Kind: apperr.Validation, Message: name + " must be a number", Field: name}
	}
	return f, nil
}
