package models

import (
	"bytes"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DateLayout is the calendar-date format used on the wire.
const DateLayout = "2006-01-02"

// News is one entry of the insights news feed.
type News struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255)" json:"name"`
	Date        datatypes.Date `gorm:"index" json:"date"`
	Title       string         `gorm:"type:varchar(255)" json:"title"`
	Tag         datatypes.JSON `gorm:"type:text" json:"tag"`
	Description string         `gorm:"type:text" json:"description"`
	Image       *string        `gorm:"type:varchar(255)" json:"image"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (News) TableName() string {
	return "insights_news"
}

// Tags decodes the stored JSON tag list. Rows written by older clients may
// hold a bare string; that is returned as a single tag.
func (n *News) Tags() []string {
	if len(n.Tag) == 0 {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal(n.Tag, &tags); err == nil {
		return tags
	}
	return []string{string(n.Tag)}
}

func (n *News) SetTags(tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tags); err != nil {
		return err
	}
	n.Tag = datatypes.JSON(bytes.TrimSpace(buf.Bytes()))
	return nil
}

func (n *News) ImageName() string {
	if n.Image == nil {
		return ""
	}
	return *n.Image
}

func (n *News) DateString() string {
	return time.Time(n.Date).Format(DateLayout)
}
