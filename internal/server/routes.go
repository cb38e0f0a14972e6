package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/frontdesk/internal/api/v1"
	"github.com/gosuda/frontdesk/internal/api/ws"
)

func registerCallerRoutes(api huma.API, svc v1.RequestService, cat v1.CatalogService, rooms v1.RoomTokenIssuer) {
	v1.RegisterCallerRoutes(api, svc)
	v1.RegisterRoomRoutes(api, rooms)
	v1.RegisterCatalogRoutes(api, cat)
}

func registerSupervisorRoutes(api huma.API, svc v1.RequestService, cat v1.CatalogService) {
	v1.RegisterSupervisorRoutes(api, svc)
	v1.RegisterKnowledgeRoutes(api, svc)
	v1.RegisterCatalogAdminRoutes(api, cat)
}

func registerCallerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/requests/{id}", hub.ServeRequest)
}

func registerSupervisorWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/queue", hub.ServeQueue)
}
