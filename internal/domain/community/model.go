package community

import "time"

type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Author    string    `json:"author"`
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Category  string    `gorm:"index" json:"category"`
	PetID     *uint     `json:"pet_id"`
	Comments  []Comment `gorm:"constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Post) TableName() string { return "community_posts" }

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Author    string    `json:"author"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string { return "community_comments" }
