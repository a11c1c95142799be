package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ifuryst/publish-studio/internal/models"
	"github.com/ifuryst/publish-studio/internal/service"
	"github.com/ifuryst/publish-studio/internal/store"
)

type projectInput struct {
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description"`
	BodyMarkdown string   `json:"body_markdown"`
	BodyHTML     string   `json:"body_html"`
	BodyJSON     string   `json:"body_json"`
	Tags         []string `json:"tags"`
	CanonicalURL string   `json:"canonical_url"`
	CoverImage   string   `json:"cover_image"`
}

func (in projectInput) apply(project *models.Project) {
	project.Title = in.Title
	project.Description = in.Description
	project.BodyMarkdown = in.BodyMarkdown
	project.BodyHTML = in.BodyHTML
	project.BodyJSON = in.BodyJSON
	project.Tags = in.Tags
	project.CanonicalURL = in.CanonicalURL
	project.CoverImage = in.CoverImage
}

func (s *Server) handlePublish(c *gin.Context) {
	var req service.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = currentUser(c)

	resp, err := s.Container.Publisher.Publish(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleEdit(c *gin.Context) {
	var req service.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.UserID = currentUser(c)

	resp, err := s.Container.Publisher.Edit(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var in projectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	project := &models.Project{UserID: currentUser(c)}
	in.apply(project)
	if err := s.Container.Projects.Create(c.Request.Context(), project); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.Container.Projects.ListByUser(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (s *Server) handleGetProject(c *gin.Context) {
	project, err := s.Container.Projects.GetForUser(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		s.respondError(c, projectErr(err))
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) handleUpdateProject(c *gin.Context) {
	var in projectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	project, err := s.Container.Projects.GetForUser(ctx, c.Param("id"), currentUser(c))
	if err != nil {
		s.respondError(c, projectErr(err))
		return
	}
	in.apply(project)
	if err := s.Container.Projects.Update(ctx, project); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	if err := s.Container.Publisher.DeleteProject(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListPosts(c *gin.Context) {
	ctx := c.Request.Context()
	project, err := s.Container.Projects.GetForUser(ctx, c.Param("id"), currentUser(c))
	if err != nil {
		s.respondError(c, projectErr(err))
		return
	}

	posts, err := s.Container.Posts.ListByProject(ctx, project.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (s *Server) handleListConnections(c *gin.Context) {
	connections, err := s.Container.Credentials.List(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connections": connections,
		"available":   s.Container.Registry.Platforms(),
	})
}

func (s *Server) handleConnect(c *gin.Context) {
	platform, ok := models.ParsePlatformName(c.Param("platform"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown platform " + c.Param("platform")})
		return
	}

	var req service.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.Platform = platform

	conn, err := s.Container.Credentials.Connect(c.Request.Context(), currentUser(c), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

func (s *Server) handleDisconnect(c *gin.Context) {
	platform, ok := models.ParsePlatformName(c.Param("platform"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown platform " + c.Param("platform")})
		return
	}

	if err := s.Container.Credentials.Disconnect(c.Request.Context(), currentUser(c), platform); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListNotifications(c *gin.Context) {
	notifications, err := s.Container.Notifications.List(c.Request.Context(), currentUser(c), queryInt(c, "limit", 50))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (s *Server) handleMarkNotificationsRead(c *gin.Context) {
	var req struct {
		IDs []uint `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := s.Container.Notifications.MarkRead(c.Request.Context(), currentUser(c), req.IDs); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notifications marked as read"})
}

func (s *Server) handleRecentErrors(c *gin.Context) {
	errs, err := s.Container.Monitoring.GetRecentErrors(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"errors": errs})
}

// projectErr turns a missing row into ErrProjectNotFound.
func projectErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return service.ErrProjectNotFound
	}
	return err
}

func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
