// Package router wires HTTP routes to their handlers.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/crewdock/crewdock/internal/handlers"
	"github.com/crewdock/crewdock/internal/middleware"
	"github.com/crewdock/crewdock/internal/services"
)

// Handlers groups the handler set the router mounts.
type Handlers struct {
	Sessions *handlers.SessionHandler
	Public   *handlers.PublicSessionHandler
	Apps     *handlers.AppHandler
	Auth     *handlers.AuthHandler
	Stream   *handlers.StreamHandler
	System   *handlers.SystemHandler
}

// New creates the gin engine with all routes registered.
func New(h Handlers, authService *services.AuthService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	r.GET("/api/version", h.System.Version)

	r.POST("/api/auth/login", h.Auth.Login)
	r.POST("/api/auth/logout", h.Auth.Logout)

	// Shared-session paths. Auth is optional so the access gate can see
	// whitelisted viewers; everyone else reads as anonymous.
	public := r.Group("/s", middleware.AuthOptional(authService))
	{
		public.GET("/sessions/:id", h.Public.Get)
		public.GET("/sessions/:id/messages", h.Public.Messages)
		public.GET("/sessions/:id/stream", h.Stream.Stream)
		public.POST("/sessions/start", h.Sessions.Start)
		public.PUT("/sessions/:id/variables", h.Sessions.EditVariables)
	}

	api := r.Group("/api", middleware.AuthRequired(authService))
	{
		api.GET("/auth/me", h.Auth.Me)
		api.GET("/status", h.System.Status)
		api.GET("/audit-logs", h.System.AuditLogs)

		team := api.Group("/teams/:teamId")
		{
			team.GET("/sessions", h.Sessions.List)
			team.POST("/sessions", h.Sessions.Create)
			team.GET("/sessions/:id", h.Sessions.Get)
			team.GET("/sessions/:id/messages", h.Sessions.Messages)
			team.POST("/sessions/:id/cancel", h.Sessions.Cancel)
			team.DELETE("/sessions/:id", h.Sessions.Delete)

			team.POST("/apps", h.Apps.CreateApp)
			team.GET("/apps", h.Apps.ListApps)
			team.GET("/apps/:id", h.Apps.GetApp)
			team.PUT("/apps/:id", h.Apps.UpdateApp)
			team.DELETE("/apps/:id", h.Apps.DeleteApp)

			team.POST("/agents", h.Apps.CreateAgent)
			team.GET("/agents", h.Apps.ListAgents)
			team.GET("/agents/:id", h.Apps.GetAgent)
			team.DELETE("/agents/:id", h.Apps.DeleteAgent)

			team.POST("/crews", h.Apps.CreateCrew)
			team.GET("/crews/:id", h.Apps.GetCrew)
			team.DELETE("/crews/:id", h.Apps.DeleteCrew)

			team.POST("/tasks", h.Apps.CreateTask)
			team.GET("/tasks/:id", h.Apps.GetTask)

			team.POST("/variables", h.Apps.CreateVariable)
			team.GET("/variables/:id", h.Apps.GetVariable)
		}
	}

	return r
}
