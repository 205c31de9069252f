package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/artpar/courseware/internal/course"
)

// envelope wraps every API response.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    *bool  `json:"success"`
}

type rawPage[T any] struct {
	Page             int  `json:"page"`
	Limit            int  `json:"limit"`
	TotalPages       int  `json:"totalPages"`
	PreviousPage     bool `json:"previousPage"`
	NextPage         bool `json:"nextPage"`
	TotalItems       int  `json:"totalItems"`
	CurrentPageItems int  `json:"currentPageItems"`
	Data             []T  `json:"data"`
}

type rawProduct struct {
	ID                 int             `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage float64         `json:"discountPercentage"`
	Rating             float64         `json:"rating"`
	Stock              int             `json:"stock"`
	Brand              string          `json:"brand"`
	Category           string          `json:"category"`
	Thumbnail          string          `json:"thumbnail"`
	Images             []string        `json:"images"`
}

func (p rawProduct) summary(in course.Instructor) course.Summary {
	return course.Summary{
		ID:         p.ID,
		Title:      p.Title,
		Thumbnail:  p.Thumbnail,
		Images:     p.Images,
		Price:      p.Price,
		Category:   p.Category,
		Instructor: in,
	}
}

func (p rawProduct) detail(in course.Instructor) course.Detail {
	return course.Detail{
		Summary:            p.summary(in),
		Description:        p.Description,
		Brand:              p.Brand,
		Rating:             p.Rating,
		Stock:              p.Stock,
		DiscountPercentage: p.DiscountPercentage,
	}
}

type rawUser struct {
	ID   int `json:"id"`
	Name struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Medium string `json:"medium"`
	} `json:"picture"`
	Location struct {
		City    string `json:"city"`
		Country string `json:"country"`
	} `json:"location"`
}

func (u rawUser) instructor() course.Instructor {
	return course.Instructor{
		ID:        u.ID,
		Name:      strings.TrimSpace(u.Name.First + " " + u.Name.Last),
		AvatarURL: u.Picture.Medium,
		Location:  joinNonEmpty(", ", u.Location.City, u.Location.Country),
		Email:     u.Email,
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
