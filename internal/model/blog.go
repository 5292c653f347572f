package model

import "time"

// swagger:model
type BlogPost struct {
	BaseModel
	Title     string    `gorm:"size:100;not null" json:"title"`
	Slug      string    `gorm:"size:120;index" json:"slug"`
	Content   string    `gorm:"type:text" json:"content"`
	AuthorID  uint      `gorm:"index;not null" json:"authorId"`
	Author    *User     `json:"author,omitempty"`
	PublishOn time.Time `gorm:"index" json:"publishOn"`
	Visible   bool      `gorm:"default:false" json:"visible"`
}

func (BlogPost) TableName() string {
	return "blog_posts"
}
