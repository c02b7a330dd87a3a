// Package models defines data structures shared by the catalog watcher.
package models

import "time"

// Item is a single catalog listing. ID is the identity; every other field is payload.
type Item struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Price          string `json:"price"`
	Currency       string `json:"currency"`
	BrandTitle     string `json:"brand_title"`
	SizeTitle      string `json:"size_title"`
	URL            string `json:"url"`
	TotalItemPrice string `json:"total_item_price,omitempty"`
	FavouriteCount int64  `json:"favourite_count"`
	ViewCount      int64  `json:"view_count"`
	Photo          *Photo `json:"photo,omitempty"`
	User           User   `json:"user"`
}

// Photo is the main listing picture.
type Photo struct {
	ID          int64  `json:"id"`
	URL         string `json:"url"`
	FullSizeURL string `json:"full_size_url"`
	Width       int64  `json:"width"`
	Height      int64  `json:"height"`
}

// User is the seller of an item.
type User struct {
	ID         int64  `json:"id"`
	Login      string `json:"login"`
	ProfileURL string `json:"profile_url"`
	Business   bool   `json:"business"`
}

// Pagination describes the page a catalog response belongs to.
type Pagination struct {
	CurrentPage  int `json:"current_page"`
	PerPage      int `json:"per_page"`
	TotalEntries int `json:"total_entries"`
	TotalPages   int `json:"total_pages"`
}

// CatalogPage is one decoded catalog response.
type CatalogPage struct {
	Items      []Item
	Pagination Pagination
}

// Notification records a newly listed item seen by a watch.
type Notification struct {
	Watch  string    `json:"watch"`
	Item   Item      `json:"item"`
	SeenAt time.Time `json:"seen_at"`
}
