package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExternalID is an upstream identifier. The extractor emits it either as a
// JSON string or as a number.
type ExternalID string

func (id *ExternalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ExternalID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("external id: %w", err)
	}
	*id = ExternalID(n.String())
	return nil
}

func (id ExternalID) String() string {
	return string(id)
}

// Number accepts a JSON number or a numeric string
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("number: %w", err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Int truncates n
func (n Number) Int() int {
	return int(n)
}

// Genres accepts an array of names or a single comma separated string
type Genres []string

func (g *Genres) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*g = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*g = out
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*g = list
	return nil
}

// ReleaseRecord is one entry of the countdown listing
type ReleaseRecord struct {
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	Title          string     `json:"title"`
	ShowID         ExternalID `json:"show_id"`
	EpisodeID      ExternalID `json:"episode_id"`
	NetworkID      ExternalID `json:"network_id"`
	NetworkName    string     `json:"network_name"`
	WebChannelID   ExternalID `json:"web_channel_id"`
	WebChannelName string     `json:"web_channel_name"`

	// Err is set when the element could not be decoded
	Err error `json:"-"`
}

// ShowDetails is the payload of a show detail page
type ShowDetails struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ShowType        string     `json:"show_type"`
	OfficialSiteURL string     `json:"official_site_url"`
	Genres          Genres     `json:"genres"`
	Vote            *Number    `json:"vote"`
	NetworkID       ExternalID `json:"network_id"`
	WebChannelID    ExternalID `json:"web_channel_id"`
}

// EpisodeDetails is the payload of an episode detail page
type EpisodeDetails struct {
	Season  Number  `json:"season"`
	Episode Number  `json:"episode"`
	Airdate string  `json:"airdate"`
	Runtime *Number `json:"runtime"`
	Summary string  `json:"summary"`
}

// NetworkDetails is the payload of a network detail page
type NetworkDetails struct {
	Name        string `json:"name"`
	CountryCode string `json:"country_code"`
	TimeZone    string `json:"time_zone"`
	OfficialURL string `json:"official_url"`
	Description string `json:"description"`
}

// WebChannelDetails is the payload of a web channel detail page
type WebChannelDetails struct {
	Name        string `json:"name"`
	TimeZone    string `json:"time_zone"`
	OfficialURL string `json:"official_url"`
	Description string `json:"description"`
}
