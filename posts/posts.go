package posts

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"blogapi/auth"
	"blogapi/common"
	"blogapi/models"
)

type CreatePostRequest struct {
	Title   string `json:"title" binding:"required,max=255"`
	Content string `json:"content" binding:"required,max=2000"`
}

type UpdatePostRequest struct {
	Title   *string `json:"title" binding:"omitnil,min=1,max=255"`
	Content *string `json:"content" binding:"omitnil,min=1,max=2000"`
}

type PostsModule struct {
	service *Service
	paging  common.Paging
}

func NewPostsModule(service *Service, paging common.Paging) *PostsModule {
	return &PostsModule{service: service, paging: paging}
}

// RegisterRoutes mounts the post routes on r, which is expected to already
// authenticate the caller.
func (m *PostsModule) RegisterRoutes(r gin.IRoutes) {
	r.GET("/posts", m.listPosts)
	r.POST("/posts", m.createPost)
	r.GET("/posts/:id", m.loadPost, m.showPost)
	r.PUT("/posts/:id", m.loadPost, m.updatePost)
	r.PATCH("/posts/:id", m.loadPost, m.updatePost)
	r.DELETE("/posts/:id", m.loadPost, m.deletePost)
}

func (m *PostsModule) listPosts(c *gin.Context) {
	req, err := m.paging.ParsePageRequest(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	page, err := m.service.List(c.Request.Context(), req)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Success(c, http.StatusOK, page.Body("posts"), "Posts retrieved successfully")
}

func (m *PostsModule) createPost(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req CreatePostRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	post, err := m.service.Create(c.Request.Context(), CreateInput{Title: req.Title, Content: req.Content}, user)
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Success(c, http.StatusCreated, post, "Post created successfully")
}

// loadPost resolves :id and stores the post on the context.
func (m *PostsModule) loadPost(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		common.Fail(c, common.NotFoundError(MsgNotFound))
		return
	}

	post, err := m.service.Get(c.Request.Context(), uint(id))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.Set("post", post)
	c.Next()
}

func (m *PostsModule) showPost(c *gin.Context) {
	post := c.MustGet("post").(*models.Post)
	common.Success(c, http.StatusOK, post, "Post retrieved successfully")
}

func (m *PostsModule) updatePost(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	post := c.MustGet("post").(*models.Post)

	var req UpdatePostRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	updated, err := m.service.Update(c.Request.Context(), user, post, UpdateInput{Title: req.Title, Content: req.Content})
	if err != nil {
		common.Fail(c, err)
		return
	}

	common.Success(c, http.StatusOK, updated, "Post updated successfully")
}

func (m *PostsModule) deletePost(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	post := c.MustGet("post").(*models.Post)

	if err := m.service.Delete(c.Request.Context(), user, post); err != nil {
		common.Fail(c, err)
		return
	}

	common.Success(c, http.StatusNoContent, nil, "Post deleted successfully")
}
