package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// StringSet is a set of strings persisted as a JSON array in a TEXT column.
// Membership is deduplicated on insert; order is not significant.
type StringSet []string

func (s StringSet) Contains(v string) bool {
	for _, member := range s {
		if member == v {
			return true
		}
	}
	return false
}

// Union returns a copy of the set with v added. Adding an existing member
// returns an equal set.
func (s StringSet) Union(v string) StringSet {
	if s.Contains(v) {
		return append(StringSet{}, s...)
	}
	return append(append(StringSet{}, s...), v)
}

// Remove returns a copy of the set without v.
func (s StringSet) Remove(v string) StringSet {
	out := StringSet{}
	for _, member := range s {
		if member != v {
			out = append(out, member)
		}
	}
	return out
}

func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		s = StringSet{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *StringSet) Scan(value any) error {
	if value == nil {
		*s = StringSet{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringSet: %T", value)
	}
	if len(data) == 0 {
		*s = StringSet{}
		return nil
	}
	return json.Unmarshal(data, s)
}

// Book is a curated catalog entry. The ID is assigned by the repository on
// creation and is never the external catalog identifier; the latter is kept
// in ExternalID for reference only.
type Book struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ExternalID     string    `gorm:"index;size:64" json:"externalId,omitempty"`
	Title          string    `gorm:"index;size:512" json:"title"`
	Author         string    `gorm:"index;size:256" json:"author"`
	Description    string    `gorm:"type:text" json:"description"`
	ImageURL       string    `gorm:"size:2048" json:"imageUrl"`
	Publisher      string    `gorm:"size:256" json:"publisher"`
	PublishedDate  string    `gorm:"size:64" json:"publishedDate"`
	PageCount      int       `json:"pageCount"`
	Categories     StringSet `gorm:"type:text" json:"categories"`
	Language       string    `gorm:"size:8" json:"language"`
	FavoritedBy    StringSet `gorm:"type:text" json:"favoritedBy"`
	FavoritesCount int       `json:"favoritesCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Book) TableName() string {
	return "books"
}

type User struct {
	UID          string    `gorm:"primaryKey;size:36" json:"uid"`
	Username     string    `gorm:"uniqueIndex;size:100" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string    `gorm:"size:100" json:"-"`
	Role         UserRole  `gorm:"size:16;default:'user'" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
