package catalogtest

import "fmt"

// Products returns n products with ids 1..n, titled "Course 1".."Course n"
// and priced 10, 20, ...
func Products(n int) []Product {
	out := make([]Product, n)
	for i := range out {
		id := i + 1
		out[i] = Product{
			ID:                 id,
			Title:              fmt.Sprintf("Course %d", id),
			Description:        fmt.Sprintf("Description of course %d", id),
			Price:              float64(id * 10),
			DiscountPercentage: 5,
			Rating:             4.5,
			Stock:              id,
			Brand:              "Acme",
			Category:           "programming",
			Thumbnail:          fmt.Sprintf("https://img.example.com/%d/thumb.jpg", id),
			Images:             []string{fmt.Sprintf("https://img.example.com/%d/1.jpg", id)},
		}
	}
	return out
}

// Users returns n users with ids 1..n.
func Users(n int) []User {
	out := make([]User, n)
	for i := range out {
		id := i + 1
		u := User{ID: id, Email: fmt.Sprintf("instructor%d@example.com", id)}
		u.Name.First = "Instructor"
		u.Name.Last = fmt.Sprint(id)
		u.Picture.Medium = fmt.Sprintf("https://img.example.com/users/%d.jpg", id)
		u.Location.City = "Lisbon"
		u.Location.Country = "Portugal"
		out[i] = u
	}
	return out
}
