package cart

import (
	"github.com/artacademy/storefront/core/course"
	"github.com/shopspring/decimal"
)

// Item is a snapshot of the course taken when it was added. Later changes
// to the course do not reach the cart.
type Item struct {
	CourseID string          `json:"id"`
	Title    string          `json:"title"`
	Image    string          `json:"image,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type ItemNew struct {
	CourseID string `json:"courseId" validate:"required"`
}

// Cart holds at most one item per course.
type Cart struct {
	Items []Item `json:"items"`
}

func (c *Cart) Add(crs course.Course) {
	for i := range c.Items {
		if c.Items[i].CourseID == crs.ID {
			c.Items[i].Quantity++
			return
		}
	}

	c.Items = append(c.Items, Item{
		CourseID: crs.ID,
		Title:    crs.Title,
		Image:    crs.Image,
		Price:    crs.Price,
		Quantity: 1,
	})
}

// Remove drops the item whatever its quantity. Absent ids are ignored.
func (c *Cart) Remove(courseID string) {
	items := c.Items[:0]
	for _, it := range c.Items {
		if it.CourseID != courseID {
			items = append(items, it)
		}
	}
	c.Items = items
}

func (c *Cart) Clear() {
	c.Items = []Item{}
}

// Total is the sum of quantity times price, in EUR.
func (c Cart) Total() decimal.Decimal {
	tot := decimal.Zero
	for _, it := range c.Items {
		tot = tot.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return tot
}

// Count is the number of units across all items.
func (c Cart) Count() int {
	var n int
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c Cart) CourseIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.CourseID)
	}
	return ids
}
