package news

import (
	"strings"

	"github.com/ManuelReschke/insights/app/models"
)

// Item is the JSON shape of a news entry.
type Item struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Date        string   `json:"date"`
	Title       string   `json:"title"`
	Tag         []string `json:"tag"`
	Description string   `json:"description"`
	Image       *string  `json:"image"`
	ImageURL    *string  `json:"imageUrl"`
}

// NewItem renders n. uploadsBase is the public prefix for image names; an
// empty base leaves imageUrl null.
func NewItem(n *models.News, uploadsBase string) Item {
	item := Item{
		ID:          n.ID,
		Name:        n.Name,
		Date:        n.DateString(),
		Title:       n.Title,
		Tag:         n.Tags(),
		Description: n.Description,
		Image:       n.Image,
	}
	if name := n.ImageName(); name != "" && uploadsBase != "" {
		url := strings.TrimRight(uploadsBase, "/") + "/" + name
		item.ImageURL = &url
	}
	return item
}

func NewItems(list []models.News, uploadsBase string) []Item {
	out := make([]Item, 0, len(list))
	for i := range list {
		out = append(out, NewItem(&list[i], uploadsBase))
	}
	return out
}
