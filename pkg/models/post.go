package models

import "time"

// FrontMatter is the typed view of a post's metadata block. Raw keeps every
// key so unknown fields survive a round trip.
type FrontMatter struct {
	Title string `validate:"required"`
	Date  time.Time
	Draft bool
	Tags  []string `validate:"dive,required"`
	Slug  string   `validate:"omitempty,hugoslug"`
	Raw   map[string]interface{}
}

// PostName is what a post file name encodes.
type PostName struct {
	Date time.Time
	Slug string
}

// CreatePostRequest carries the inputs for scaffolding a new post.
type CreatePostRequest struct {
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
	Tags  []string  `json:"tags"`
	Slug  string    `json:"slug"`
	Draft *bool     `json:"draft"`
	Body  string    `json:"body"`
}
