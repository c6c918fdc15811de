package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"leaderboard_miniapp/internal/middleware"
	"leaderboard_miniapp/internal/service"
	"leaderboard_miniapp/internal/session"
	"leaderboard_miniapp/pkg/auth"
	"leaderboard_miniapp/pkg/dataurl"
	"leaderboard_miniapp/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type viewRoutes struct {
	store *session.Store
}

func NewViewRoutes(handler *gin.RouterGroup, store *session.Store, a *auth.TelegramAuth) {
	r := &viewRoutes{store: store}
	sessions := middleware.NewSessions(store)

	h := handler.Group("/views")
	h.Use(a.TelegramAuthMiddleware(), sessions.Attach())
	{
		h.GET("/current", r.GetCurrent)
		h.POST("/current/next", r.NextPage)
		h.POST("/current/prev", r.PrevPage)
		h.POST("/current/reload", r.Reload)

		h.POST("/friends/users/:user_id/select", r.SelectUser)
		h.POST("/friends/back", r.Back)
		h.POST("/friends/claim", r.Claim)
		h.POST("/friends/create/open", r.OpenCreate)
		h.POST("/friends/create/cancel", r.CancelCreate)
		h.PATCH("/friends/create", r.UpdateDraft)
		h.POST("/friends/create", r.SubmitCreate)

		h.POST("/:view", r.Navigate)
	}

	s := handler.Group("/session")
	s.Use(a.TelegramAuthMiddleware())
	s.DELETE("", r.DropSession)
}

func (r *viewRoutes) Navigate(c *gin.Context) {
	log := logger.Logger()

	name, ok := service.ParseViewName(c.Param("view"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown view"})
		return
	}

	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}

	view, err := sess.Navigate(c.Request.Context(), name)
	if err != nil {
		log.Error("failed to navigate", zap.Int64("viewer_id", sess.ViewerID), zap.String("view", string(name)), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "session closed"})
		return
	}

	c.JSON(http.StatusOK, BuildSnapshot(view))
}

func (r *viewRoutes) GetCurrent(c *gin.Context) {
	view, ok := currentOrAbort(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, BuildSnapshot(view))
}

func (r *viewRoutes) NextPage(c *gin.Context) {
	view, ok := currentOrAbort(c)
	if !ok {
		return
	}

	view.Next(c.Request.Context())
	c.JSON(http.StatusOK, BuildSnapshot(view))
}

func (r *viewRoutes) PrevPage(c *gin.Context) {
	view, ok := currentOrAbort(c)
	if !ok {
		return
	}

	view.Prev(c.Request.Context())
	c.JSON(http.StatusOK, BuildSnapshot(view))
}

func (r *viewRoutes) Reload(c *gin.Context) {
	view, ok := currentOrAbort(c)
	if !ok {
		return
	}

	view.Reload(c.Request.Context())
	c.JSON(http.StatusOK, BuildSnapshot(view))
}

func (r *viewRoutes) SelectUser(c *gin.Context) {
	friends, ok := friendsOrAbort(c)
	if !ok {
		return
	}

	if !friends.SelectByID(c.Param("user_id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user is not on the current page"})
		return
	}

	c.JSON(http.StatusOK, BuildSnapshot(friends))
}

func (r *viewRoutes) Back(c *gin.Context) {
	friends, ok := friendsOrAbort(c)
	if !ok {
		return
	}

	friends.Detail.Back()
	c.JSON(http.StatusOK, BuildSnapshot(friends))
}

func (r *viewRoutes) Claim(c *gin.Context) {
	log := logger.Logger()

	friends, ok := friendsOrAbort(c)
	if !ok {
		return
	}

	if err := friends.Detail.Claim(c.Request.Context()); err != nil {
		log.Info("claim rejected", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, BuildSnapshot(friends))
}

func (r *viewRoutes) OpenCreate(c *gin.Context) {
	friends, ok := friendsOrAbort(c)
	if !ok {
		return
	}

	friends.Create.Open()
	c.JSON(http.StatusOK, BuildSnapshot(friends))
}

func (r *viewRoutes) CancelCreate(c *gin.Context) {
	friends, ok := friendsOrAbort(c)
	if !ok {
		return
	}

	friends.Create.Cancel()
	c.JSON(http.StatusOK, BuildSnapshot(friends))
}

type DraftRequest struct {
	Name           *string `json:"name"`
	ProfilePicture *string `json:"profilePicture"`
}

func (r *viewRoutes) UpdateDraft(c *gin.Context) {
	friends, ok := friendsOrAbort(c)
	if !ok {
		return
	}

	if !applyDraft(c, friends.Create) {
		return
	}

	c.JSON(http.StatusOK, BuildSnapshot(friends))
}

// SubmitCreate accepts either JSON or a multipart form whose profilePicture
// part is an image file. Fields present in the request overwrite the draft.
func (r *viewRoutes) SubmitCreate(c *gin.Context) {
	log := logger.Logger()

	friends, ok := friendsOrAbort(c)
	if !ok {
		return
	}

	if !applyDraft(c, friends.Create) {
		return
	}

	err := friends.Create.Submit(c.Request.Context())
	if errors.Is(err, service.ErrNameRequired) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": service.NameRequired})
		return
	}
	if err != nil {
		log.Error("failed to submit new user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, BuildSnapshot(friends))
}

func (r *viewRoutes) DropSession(c *gin.Context) {
	viewer, err := auth.ViewerFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if !r.store.Drop(viewer.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session"})
		return
	}

	c.Status(http.StatusNoContent)
}

func applyDraft(c *gin.Context, create *service.CreateFlow) bool {
	log := logger.Logger()

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return applyMultipartDraft(c, create)
	}

	var req DraftRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Error("failed to bind request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return false
		}
	}

	if req.Name != nil {
		create.SetName(*req.Name)
	}
	if req.ProfilePicture != nil {
		create.SetPicture(*req.ProfilePicture)
	}
	return true
}

func applyMultipartDraft(c *gin.Context, create *service.CreateFlow) bool {
	log := logger.Logger()

	if name, ok := c.GetPostForm("name"); ok {
		create.SetName(name)
	}

	header, err := c.FormFile("profilePicture")
	if errors.Is(err, http.ErrMissingFile) {
		if url, ok := c.GetPostForm("profilePicture"); ok {
			create.SetPicture(url)
		}
		return true
	}
	if err != nil {
		log.Error("failed to read upload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload"})
		return false
	}

	picture, err := encodeUpload(header)
	if err != nil {
		log.Info("rejected profile picture", zap.String("filename", header.Filename), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}

	create.SetPicture(picture)
	return true
}

func encodeUpload(header *multipart.FileHeader) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	return dataurl.Encode(f)
}

func sessionOrAbort(c *gin.Context) (*session.Session, bool) {
	sess, ok := middleware.SessionFromContext(c)
	if !ok {
		logger.Logger().Error("session not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, false
	}
	return sess, true
}

func currentOrAbort(c *gin.Context) (service.View, bool) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return nil, false
	}

	view := sess.Current()
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no view mounted"})
		return nil, false
	}
	return view, true
}

func friendsOrAbort(c *gin.Context) (*service.Friends, bool) {
	view, ok := currentOrAbort(c)
	if !ok {
		return nil, false
	}

	friends, ok := view.(*service.Friends)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "friends view is not mounted"})
		return nil, false
	}
	return friends, true
}
