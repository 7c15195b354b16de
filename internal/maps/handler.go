package maps

import (
	"errors"
	"net/http"

	"realty_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// LookupAddress backs the address autocomplete of the lead and property
// forms.
func (h *Handler) LookupAddress(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "query 'q' is required (min 3 chars)", nil)
		return
	}

	results, err := h.svc.SearchAddress(c.Request.Context(), req.Query)
	if err != nil {
		httpkit.Error(c, http.StatusBadGateway, msgGeocoderUnavailable, nil)
		return
	}
	httpkit.OK(c, results)
}

// Geocode resolves one address to the coordinates stored on a lead's
// search center or a property.
func (h *Handler) Geocode(c *gin.Context) {
	var req GeocodeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "query 'address' is required", nil)
		return
	}

	point, err := h.svc.Geocode(c.Request.Context(), req.Address, req.City)
	if errors.Is(err, ErrNoResult) {
		httpkit.Error(c, http.StatusNotFound, ErrNoResult.Error(), nil)
		return
	}
	if err != nil {
		httpkit.Error(c, http.StatusBadGateway, msgGeocoderUnavailable, nil)
		return
	}
	httpkit.OK(c, GeocodeResponse{Latitude: point.Lat, Longitude: point.Lng})
}
