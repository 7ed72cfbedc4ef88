package pets

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/pets"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/infra/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	maxNameLen  = 100
	maxNotesLen = 5000
)

type petInput struct {
	Name      *string  `json:"name"`
	Species   *string  `json:"species"`
	Breed     *string  `json:"breed"`
	BirthDate *string  `json:"birthDate"` // YYYY-MM-DD, "" clears
	WeightKG  *float64 `json:"weightKg"`
	Notes     *string  `json:"notes"`
}

type petDTO struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Species   string    `json:"species"`
	Breed     string    `json:"breed"`
	BirthDate *string   `json:"birthDate"`
	WeightKG  *float64  `json:"weightKg"`
	Notes     string    `json:"notes"`
	PhotoURL  *string   `json:"photoUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func mustUserID(c *gin.Context) (uint, bool) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}

func petID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pet id"})
		return 0, false
	}
	return uint(id), true
}

func toDTO(c *gin.Context, objects storage.ObjectStorage, p pets.Profile) petDTO {
	out := petDTO{
		ID:        p.ID,
		Name:      p.Name,
		Species:   p.Species,
		Breed:     p.Breed,
		WeightKG:  p.WeightKG,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.BirthDate != nil {
		d := p.BirthDate.Format(time.DateOnly)
		out.BirthDate = &d
	}
	if p.PhotoKey != nil && objects != nil {
		url, _, err := objects.DownloadURL(c.Request.Context(), *p.PhotoKey)
		if err != nil {
			zap.L().Warn("Pet photo URL failed", zap.Uint("pet_id", p.ID), zap.Error(err))
		} else {
			out.PhotoURL = &url
		}
	}
	return out
}

// apply copies the set fields of in onto p.
func (in petInput) apply(p *pets.Profile) error {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Species != nil {
		p.Species = strings.ToLower(strings.TrimSpace(*in.Species))
	}
	if in.Breed != nil {
		p.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.BirthDate != nil {
		if *in.BirthDate == "" {
			p.BirthDate = nil
		} else {
			d, err := time.Parse(time.DateOnly, *in.BirthDate)
			if err != nil {
				return errors.New("birthDate must be YYYY-MM-DD")
			}
			p.BirthDate = &d
		}
	}
	if in.WeightKG != nil {
		if *in.WeightKG <= 0 {
			return errors.New("weightKg must be positive")
		}
		p.WeightKG = in.WeightKG
	}
	if in.Notes != nil {
		p.Notes = strings.TrimSpace(*in.Notes)
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(p.Name) > maxNameLen {
		return errors.New("name is too long")
	}
	if utf8.RuneCountInString(p.Notes) > maxNotesLen {
		return errors.New("notes are too long")
	}
	return nil
}

// GET /pets
func ListPets(objects storage.ObjectStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}

		var list []pets.Profile
		if err := database.DB.Where("user_id = ?", userID).Order("created_at ASC").Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pets"})
			return
		}

		out := make([]petDTO, 0, len(list))
		for _, p := range list {
			out = append(out, toDTO(c, objects, p))
		}
		c.JSON(http.StatusOK, out)
	}
}

// GET /pets/:id
func GetPet(objects storage.ObjectStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		id, ok := petID(c)
		if !ok {
			return
		}

		p, err := pets.FindOwned(database.DB, userID, id)
		if errors.Is(err, pets.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pet not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pet"})
			return
		}
		c.JSON(http.StatusOK, toDTO(c, objects, *p))
	}
}

// POST /pets
func CreatePet(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var in petInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	p := pets.Profile{UserID: userID}
	if err := in.apply(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := c.GetString("email")
	sub, err := subscribers.FindByEmail(database.DB, email)
	if err != nil {
		// lookup errors count as "no row": the free limit applies
		zap.L().Warn("Subscriber lookup failed, applying free limit", zap.String("email", email), zap.Error(err))
		sub = nil
	}

	limit, err := pets.Create(database.DB, time.Now(), sub, &p)
	if errors.Is(err, pets.ErrPetLimitReached) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Pet limit reached for your plan",
			"reason":  "PET_LIMIT_REACHED",
			"maxPets": limit,
		})
		return
	}
	if err != nil {
		zap.L().Error("Failed to create pet", zap.Uint("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create pet"})
		return
	}

	c.JSON(http.StatusCreated, toDTO(c, nil, p))
}

// PUT /pets/:id
func UpdatePet(objects storage.ObjectStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		id, ok := petID(c)
		if !ok {
			return
		}

		var in petInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		p, err := pets.FindOwned(database.DB, userID, id)
		if errors.Is(err, pets.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pet not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pet"})
			return
		}
		if err := in.apply(p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := database.DB.Save(p).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update pet"})
			return
		}
		c.JSON(http.StatusOK, toDTO(c, objects, *p))
	}
}

// DELETE /pets/:id
func DeletePet(objects storage.ObjectStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		id, ok := petID(c)
		if !ok {
			return
		}

		p, err := pets.FindOwned(database.DB, userID, id)
		if errors.Is(err, pets.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pet not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pet"})
			return
		}

		if err := database.DB.Delete(p).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete pet"})
			return
		}

		if p.PhotoKey != nil && objects != nil {
			if err := objects.Delete(c.Request.Context(), *p.PhotoKey); err != nil {
				zap.L().Warn("Orphaned pet photo", zap.String("key", *p.PhotoKey), zap.Error(err))
			}
		}
		c.JSON(http.StatusOK, gin.H{"message": "Pet deleted"})
	}
}

// POST /pets/:id/photo-upload-url {contentType}
// The key is stored right away; the client PUTs the file to the returned URL.
func PhotoUploadURL(objects storage.ObjectStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		if objects == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Photo uploads are not configured"})
			return
		}
		userID, ok := mustUserID(c)
		if !ok {
			return
		}
		id, ok := petID(c)
		if !ok {
			return
		}

		var body struct {
			ContentType string `json:"contentType"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		ext, ok := photoExtensions[strings.ToLower(body.ContentType)]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "contentType must be an image (jpeg, png, webp, heic)"})
			return
		}

		p, err := pets.FindOwned(database.DB, userID, id)
		if errors.Is(err, pets.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pet not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pet"})
			return
		}

		key := storage.PetPhotoKey(userID, p.ID, ext)
		url, expiresAt, err := objects.UploadURL(c.Request.Context(), key, body.ContentType)
		if err != nil {
			zap.L().Error("Presign upload failed", zap.Uint("pet_id", p.ID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to prepare upload"})
			return
		}

		previous := p.PhotoKey
		if err := database.DB.Model(p).Update("photo_key", key).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store photo key"})
			return
		}
		if previous != nil && *previous != key {
			if err := objects.Delete(c.Request.Context(), *previous); err != nil {
				zap.L().Warn("Old pet photo not deleted", zap.String("key", *previous), zap.Error(err))
			}
		}

		c.JSON(http.StatusOK, gin.H{"uploadUrl": url, "key": key, "expiresAt": expiresAt})
	}
}

var photoExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
}
