package maps

import (
	apphttp "realty_crm_backend/internal/http"
	"realty_crm_backend/platform/config"
	"realty_crm_backend/platform/logger"
)

// Module wires the address lookup used by the lead and property forms.
type Module struct {
	handler *Handler
}

func NewModule(cfg config.GeocodingConfig, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(NewService(cfg, log))}
}

func (m *Module) Name() string {
	return "maps"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/maps")
	group.GET("/address-lookup", m.handler.LookupAddress)
	group.GET("/geocode", m.handler.Geocode)
}

var _ apphttp.Module = (*Module)(nil)
