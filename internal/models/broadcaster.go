package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Network is a linear broadcaster, optionally tied to a country
type Network struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ExternalID      string    `gorm:"not null;uniqueIndex" json:"external_id"`
	Name            string    `gorm:"not null" json:"name"`
	NameKey         string    `gorm:"not null;uniqueIndex" json:"-"`
	Description     string    `json:"description"`
	TimeZone        string    `json:"time_zone"`
	OfficialSiteURL string    `json:"official_site_url"`
	CountryID       *uint     `gorm:"index" json:"country_id"`
	Country         *Country  `gorm:"constraint:OnDelete:SET NULL" json:"country,omitempty"`
	Enriched        bool      `gorm:"not null;default:false" json:"enriched"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (n *Network) BeforeSave(tx *gorm.DB) error {
	n.NameKey = nameKey(n.Name)
	return nil
}

// WebChannel is a streaming broadcaster
type WebChannel struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ExternalID      string    `gorm:"not null;uniqueIndex" json:"external_id"`
	Name            string    `gorm:"not null" json:"name"`
	NameKey         string    `gorm:"not null;uniqueIndex" json:"-"`
	Description     string    `json:"description"`
	TimeZone        string    `json:"time_zone"`
	OfficialSiteURL string    `json:"official_site_url"`
	Enriched        bool      `gorm:"not null;default:false" json:"enriched"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (w *WebChannel) BeforeSave(tx *gorm.DB) error {
	w.NameKey = nameKey(w.Name)
	return nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BroadcasterRef is what a scraped record says about its broadcaster.
// It is built once per record so later stages never re-inspect raw ids.
type BroadcasterRef struct {
	Kind       BroadcasterKind
	ExternalID string
	NameHint   string
}

// NewBroadcasterRef picks the broadcaster kind from the ids present on a
// record. Both or neither being set leaves the ref unspecified.
func NewBroadcasterRef(networkID, webChannelID, networkName, webChannelName string) BroadcasterRef {
	networkID = strings.TrimSpace(networkID)
	webChannelID = strings.TrimSpace(webChannelID)

	switch {
	case networkID != "" && webChannelID == "":
		return BroadcasterRef{Kind: BroadcasterNetwork, ExternalID: networkID, NameHint: strings.TrimSpace(networkName)}
	case webChannelID != "" && networkID == "":
		return BroadcasterRef{Kind: BroadcasterWebChannel, ExternalID: webChannelID, NameHint: strings.TrimSpace(webChannelName)}
	default:
		return BroadcasterRef{Kind: BroadcasterUnspecified}
	}
}

// Specified reports whether the ref names exactly one broadcaster
func (r BroadcasterRef) Specified() bool {
	return r.Kind != BroadcasterUnspecified
}

// PlaceholderName is the name given to a broadcaster before enrichment
func PlaceholderName(kind BroadcasterKind, externalID string) string {
	switch kind {
	case BroadcasterWebChannel:
		return "Web Channel " + externalID
	default:
		return "Network " + externalID
	}
}

// Broadcaster is the kind-agnostic view of a network or web channel row
type Broadcaster struct {
	Kind        BroadcasterKind `gorm:"-" json:"kind"`
	ID          uint            `json:"id"`
	ExternalID  string          `json:"external_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Enriched    bool            `json:"enriched"`
}

func tableFor(kind BroadcasterKind) (string, error) {
	switch kind {
	case BroadcasterNetwork:
		return "networks", nil
	case BroadcasterWebChannel:
		return "web_channels", nil
	default:
		return "", fmt.Errorf("unspecified broadcaster kind")
	}
}

func (d *Database) findBroadcaster(ctx context.Context, kind BroadcasterKind, query string, args ...interface{}) (*Broadcaster, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	var rows []Broadcaster
	err = d.db.WithContext(ctx).Table(table).
		Select("id, external_id, name, description, enriched").
		Where(query, args...).Order("id ASC").Limit(1).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	rows[0].Kind = kind
	return &rows[0], nil
}

// FindBroadcaster looks a broadcaster up by its upstream id
func (d *Database) FindBroadcaster(ctx context.Context, kind BroadcasterKind, externalID string) (*Broadcaster, error) {
	return d.findBroadcaster(ctx, kind, "external_id = ?", externalID)
}

// FindBroadcasterByName matches name case-insensitively
func (d *Database) FindBroadcasterByName(ctx context.Context, kind BroadcasterKind, name string) (*Broadcaster, error) {
	return d.findBroadcaster(ctx, kind, "name_key = ?", nameKey(name))
}

// GetBroadcaster loads a broadcaster by primary key
func (d *Database) GetBroadcaster(ctx context.Context, kind BroadcasterKind, id uint) (*Broadcaster, error) {
	return d.findBroadcaster(ctx, kind, "id = ?", id)
}

// ListBroadcasters returns every broadcaster of kind in ascending id order
func (d *Database) ListBroadcasters(ctx context.Context, kind BroadcasterKind) ([]Broadcaster, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	var rows []Broadcaster
	err = d.db.WithContext(ctx).Table(table).
		Select("id, external_id, name, description, enriched").
		Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Kind = kind
	}
	return rows, nil
}

// CreateBroadcaster inserts a broadcaster unless one with the same external
// id or name already exists, in which case that row is returned.
func (d *Database) CreateBroadcaster(ctx context.Context, kind BroadcasterKind, externalID, name string) (*Broadcaster, bool, error) {
	if existing, err := d.FindBroadcaster(ctx, kind, externalID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	var id uint
	var err error
	switch kind {
	case BroadcasterNetwork:
		n := &Network{ExternalID: externalID, Name: name}
		err = d.db.WithContext(ctx).Create(n).Error
		id = n.ID
	case BroadcasterWebChannel:
		w := &WebChannel{ExternalID: externalID, Name: name}
		err = d.db.WithContext(ctx).Create(w).Error
		id = w.ID
	default:
		return nil, false, fmt.Errorf("unspecified broadcaster kind")
	}

	if err != nil {
		if !IsUniqueViolation(err) {
			return nil, false, err
		}
		// lost a race on either the external id or the name
		if winner, ferr := d.FindBroadcaster(ctx, kind, externalID); ferr == nil {
			return winner, false, nil
		}
		winner, ferr := d.FindBroadcasterByName(ctx, kind, name)
		if ferr != nil {
			return nil, false, fmt.Errorf("refetch after conflict: %w", ferr)
		}
		return winner, false, nil
	}

	return &Broadcaster{Kind: kind, ID: id, ExternalID: externalID, Name: name}, true, nil
}

// GetNetwork loads a full network row by upstream id
func (d *Database) GetNetwork(ctx context.Context, externalID string) (*Network, error) {
	return first[Network](ctx, d.db, map[string]any{"external_id": externalID})
}

// SaveNetwork writes every column of n
func (d *Database) SaveNetwork(ctx context.Context, n *Network) error {
	return d.db.WithContext(ctx).Omit(clause.Associations).Save(n).Error
}

// GetWebChannel loads a full web channel row by upstream id
func (d *Database) GetWebChannel(ctx context.Context, externalID string) (*WebChannel, error) {
	return first[WebChannel](ctx, d.db, map[string]any{"external_id": externalID})
}

// SaveWebChannel writes every column of w
func (d *Database) SaveWebChannel(ctx context.Context, w *WebChannel) error {
	return d.db.WithContext(ctx).Omit(clause.Associations).Save(w).Error
}

// ListNetworks returns networks with their country, ordered by name.
// country and q narrow the list when set.
func (d *Database) ListNetworks(ctx context.Context, country, q string) ([]Network, error) {
	var networks []Network
	tx := d.db.WithContext(ctx).Preload("Country")
	if country != "" {
		tx = tx.Joins("JOIN countries ON countries.id = networks.country_id").
			Where("countries.shortcode = ?", strings.ToUpper(country))
	}
	err := nameLike(tx, "networks.name", q).Order("networks.name ASC").Find(&networks).Error
	return networks, err
}

// ListWebChannels returns web channels ordered by name
func (d *Database) ListWebChannels(ctx context.Context, q string) ([]WebChannel, error) {
	var channels []WebChannel
	err := nameLike(d.db.WithContext(ctx), "web_channels.name", q).Order("name ASC").Find(&channels).Error
	return channels, err
}

// ListUnenrichedBroadcasters returns upstream ids still awaiting enrichment
func (d *Database) ListUnenrichedBroadcasters(ctx context.Context, kind BroadcasterKind) ([]string, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	var ids []string
	err = d.db.WithContext(ctx).Table(table).Where("enriched = ?", false).
		Order("id ASC").Pluck("external_id", &ids).Error
	return ids, err
}
