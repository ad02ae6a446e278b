package comments

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"blogapi/auth"
	"blogapi/common"
	"blogapi/models"
)

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,max=1000"`
}

type UpdateCommentRequest struct {
	Content *string `json:"content" binding:"omitnil,min=1,max=1000"`
}

type CommentsModule struct {
	service *Service
	paging  common.Paging
}

func NewCommentsModule(service *Service, paging common.Paging) *CommentsModule {
	return &CommentsModule{service: service, paging: paging}
}

func (m *CommentsModule) RegisterRoutes(r gin.IRoutes) {
	r.GET("/posts/:id/comments", m.listComments)
	r.POST("/posts/:id/comments", m.createComment)
	r.GET("/comments/:id", m.loadComment, m.showComment)
	r.PUT("/comments/:id", m.loadComment, m.updateComment)
	r.PATCH("/comments/:id", m.loadComment, m.updateComment)
	r.DELETE("/comments/:id", m.loadComment, m.deleteComment)
}

func (m *CommentsModule) listComments(c *gin.Context) {
	postID, ok := paramID(c, MsgPostNotFound)
	if !ok {
		return
	}

	req, err := m.paging.ParsePageRequest(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	page, err := m.service.ListForPost(c.Request.Context(), postID, req)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Success(c, http.StatusOK, page.Body("comments"), "Comments retrieved successfully")
}

func (m *CommentsModule) createComment(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	postID, ok := paramID(c, MsgPostNotFound)
	if !ok {
		return
	}

	var req CreateCommentRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	comment, err := m.service.Create(c.Request.Context(), postID, req.Content, user)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Success(c, http.StatusCreated, comment, "Comment created successfully")
}

func (m *CommentsModule) loadComment(c *gin.Context) {
	id, ok := paramID(c, MsgNotFound)
	if !ok {
		return
	}

	comment, err := m.service.Get(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.Set("comment", comment)
	c.Next()
}

func (m *CommentsModule) showComment(c *gin.Context) {
	comment := c.MustGet("comment").(*models.Comment)
	common.Success(c, http.StatusOK, comment, "Comment retrieved successfully")
}

func (m *CommentsModule) updateComment(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	comment := c.MustGet("comment").(*models.Comment)

	var req UpdateCommentRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	updated, err := m.service.Update(c.Request.Context(), user, comment, UpdateInput{Content: req.Content})
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Success(c, http.StatusOK, updated, "Comment updated successfully")
}

func (m *CommentsModule) deleteComment(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	comment := c.MustGet("comment").(*models.Comment)

	if err := m.service.Delete(c.Request.Context(), user, comment); err != nil {
		common.Fail(c, err)
		return
	}

	common.Success(c, http.StatusNoContent, nil, "Comment deleted successfully")
}

func paramID(c *gin.Context, notFound string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		common.Fail(c, common.NotFoundError(notFound))
		return 0, false
	}
	return uint(id), true
}
