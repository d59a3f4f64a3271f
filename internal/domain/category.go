package domain

import "time"

// Category groups products. ProductsOfCategory is maintained by the product
// write path and holds each product id at most once.
type Category struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	ProductsOfCategory []string  `json:"products_of_category"`
	CreatedAt          time.Time `json:"created_at"`
}

// CategoryRef is the (id, name) copy of a category carried on a product.
type CategoryRef struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

// Ref returns the snapshot of c embedded on products.
func (c *Category) Ref() CategoryRef {
	return CategoryRef{ID: c.ID, Name: c.Name}
}

// InUse reports whether any product still references c.
func (c *Category) InUse() bool {
	return len(c.ProductsOfCategory) > 0
}

// CreateCategoryInput holds the parameters for creating a category.
type CreateCategoryInput struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// RenameCategoryInput holds the parameters for renaming a category.
type RenameCategoryInput struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}
