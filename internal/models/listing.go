package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryFurniture   Category = "furniture"
	CategoryClothing    Category = "clothing"
	CategoryBooks       Category = "books"
	CategorySports      Category = "sports"
	CategoryToys        Category = "toys"
	CategoryVehicles    Category = "vehicles"
	CategoryHome        Category = "home"
	CategoryOther       Category = "other"
)

// CategoryTag is the validator oneof list for Category.
const CategoryTag = "electronics furniture clothing books sports toys vehicles home other"

func (c Category) Valid() bool {
	switch c {
	case CategoryElectronics, CategoryFurniture, CategoryClothing, CategoryBooks, CategorySports,
		CategoryToys, CategoryVehicles, CategoryHome, CategoryOther:
		return true
	}
	return false
}

type Listing struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title        string               `bson:"title" json:"title"`
	Description  string               `bson:"description" json:"description"`
	Price        float64              `bson:"price" json:"price"`
	Category     Category             `bson:"category" json:"category"`
	Location     string               `bson:"location" json:"location"`
	Images       []string             `bson:"images" json:"images"`
	Owner        primitive.ObjectID   `bson:"owner" json:"owner"`
	Sold         bool                 `bson:"sold" json:"sold"`
	BookmarkedBy []primitive.ObjectID `bson:"bookmarked_by" json:"bookmarkedBy"`
	CreatedAt    time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updatedAt"`
}

type ListingSummary struct {
	ID     primitive.ObjectID `json:"id"`
	Title  string             `json:"title"`
	Price  float64            `json:"price"`
	Images []string           `json:"images"`
	Sold   bool               `json:"sold"`
}

func (l *Listing) Summary() ListingSummary {
	return ListingSummary{ID: l.ID, Title: l.Title, Price: l.Price, Images: l.Images, Sold: l.Sold}
}

func (l *Listing) IsBookmarkedBy(userID primitive.ObjectID) bool {
	for _, id := range l.BookmarkedBy {
		if id == userID {
			return true
		}
	}
	return false
}
