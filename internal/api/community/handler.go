package community

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/admins"
	"tiertrainer-backend/internal/domain/community"
	"tiertrainer-backend/internal/domain/pets"
	"tiertrainer-backend/internal/domain/users"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

func mustUserID(c *gin.Context) (uint, bool) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}

func postID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return 0, false
	}
	return uint(id), true
}

func authorName(userID uint, email string) string {
	var u users.User
	if err := database.DB.Select("name").Where("id = ?", userID).First(&u).Error; err == nil && strings.TrimSpace(u.Name) != "" {
		return strings.TrimSpace(u.Name)
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return "Member"
}

func cleanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, community.ErrTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Post is too long"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and body are required"})
	}
}

// GET /community/posts?page=1&pageSize=20&category=training
func ListPosts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(defaultPageSize)))
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}

	q := database.DB.Model(&community.Post{})
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		q = q.Where("category = ?", category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load posts"})
		return
	}

	posts := []community.Post{}
	if err := q.Order("created_at DESC, id DESC").Offset((page - 1) * size).Limit(size).Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts, "page": page, "pageSize": size, "total": total})
}

// GET /community/posts/:id
func GetPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	var post community.Post
	err := database.DB.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC, id ASC")
	}).Where("id = ?", id).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load post"})
		return
	}
	c.JSON(http.StatusOK, post)
}

// POST /community/posts {title, body, category, petId?}
// Routed behind RequirePaidMode.
func CreatePost(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var body struct {
		Title    string `json:"title"`
		Body     string `json:"body"`
		Category string `json:"category"`
		PetID    *uint  `json:"petId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	title, text, err := community.Clean(body.Title, body.Body)
	if err != nil {
		cleanError(c, err)
		return
	}
	if body.PetID != nil {
		if _, err := pets.FindOwned(database.DB, userID, *body.PetID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown pet"})
			return
		}
	}

	post := community.Post{
		UserID:   userID,
		Author:   authorName(userID, c.GetString("email")),
		Title:    title,
		Body:     text,
		Category: strings.ToLower(strings.TrimSpace(body.Category)),
		PetID:    body.PetID,
	}
	if err := database.DB.Create(&post).Error; err != nil {
		zap.L().Error("Failed to create post", zap.Uint("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}
	c.JSON(http.StatusCreated, post)
}

// DELETE /community/posts/:id (author or staff)
func DeletePost(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	id, ok := postID(c)
	if !ok {
		return
	}

	var post community.Post
	if err := database.DB.Where("id = ?", id).First(&post).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	if post.UserID != userID {
		admin, err := admins.Find(database.DB, c.GetString("email"))
		if err != nil || admin == nil || !admin.HasRole(admins.RoleSupport) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the author or staff can delete this post"})
			return
		}
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&community.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// GET /community/posts/:id/comments
func ListComments(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	comments := []community.Comment{}
	if err := database.DB.Where("post_id = ?", id).Order("created_at ASC, id ASC").Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comments"})
		return
	}
	c.JSON(http.StatusOK, comments)
}

// POST /community/posts/:id/comments {body}
func AddComment(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	id, ok := postID(c)
	if !ok {
		return
	}

	var body struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	text, err := community.CleanComment(body.Body)
	if err != nil {
		cleanError(c, err)
		return
	}

	var count int64
	if err := database.DB.Model(&community.Post{}).Where("id = ?", id).Count(&count).Error; err != nil || count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	comment := community.Comment{
		PostID: id,
		UserID: userID,
		Author: authorName(userID, c.GetString("email")),
		Body:   text,
	}
	if err := database.DB.Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add comment"})
		return
	}
	c.JSON(http.StatusCreated, comment)
}
