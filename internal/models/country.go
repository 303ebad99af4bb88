package models

import (
	"context"
	"strings"
	"time"
)

// Country is referenced by networks through its two-letter shortcode
type Country struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Shortcode string    `gorm:"size:8;not null;uniqueIndex" json:"shortcode"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResolveCountry returns the country for shortcode, creating it on first use.
// Name falls back to the shortcode. A blank shortcode yields nil.
func (d *Database) ResolveCountry(ctx context.Context, shortcode, name string) (*Country, error) {
	code := strings.ToUpper(strings.TrimSpace(shortcode))
	if code == "" {
		return nil, nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = code
	}

	country, _, err := findOrCreate(ctx, d.db, map[string]any{"shortcode": code}, func() *Country {
		return &Country{Shortcode: code, Name: name}
	})
	return country, err
}

// ListCountries returns countries ordered by name, optionally only those
// whose name contains q
func (d *Database) ListCountries(ctx context.Context, q string) ([]Country, error) {
	var countries []Country
	err := nameLike(d.db.WithContext(ctx), "countries.name", q).Order("name ASC").Find(&countries).Error
	return countries, err
}
