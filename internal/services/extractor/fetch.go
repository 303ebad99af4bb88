package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// CountdownURL is the listing page the import walks
func (c *Client) CountdownURL(page int) string {
	return fmt.Sprintf("%s/countdown?page=%d", c.baseURL, page)
}

func (c *Client) detailURL(section, id string) string {
	return c.baseURL + "/" + section + "/" + url.PathEscape(id)
}

// ExtractReleases fetches one page of the countdown listing. Elements that
// fail to decode are returned with Err set so callers can count them.
func (c *Client) ExtractReleases(ctx context.Context, page int) []ReleaseRecord {
	target := c.CountdownURL(page)
	items := c.extractArray(ctx, "listing", target, listingInstruction)
	if len(items) == 0 {
		return nil
	}

	records := make([]ReleaseRecord, 0, len(items))
	for i, raw := range items {
		var rec ReleaseRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			c.logger.Warn().Err(err).Int("page", page).Int("index", i).Msg("Undecodable release record")
			rec = ReleaseRecord{Err: fmt.Errorf("record %d on page %d: %w", i, page, err)}
		}
		records = append(records, rec)
	}
	return records
}

// ExtractShow fetches show details, nil when nothing usable came back
func (c *Client) ExtractShow(ctx context.Context, externalID string) *ShowDetails {
	var out ShowDetails
	if !c.fetchDetails(ctx, "show", c.detailURL("shows", externalID), showInstruction, &out) {
		return nil
	}
	return &out
}

// ExtractEpisode fetches episode details, nil when nothing usable came back
func (c *Client) ExtractEpisode(ctx context.Context, externalID string) *EpisodeDetails {
	var out EpisodeDetails
	if !c.fetchDetails(ctx, "episode", c.detailURL("episodes", externalID), episodeInstruction, &out) {
		return nil
	}
	return &out
}

// ExtractNetwork fetches network details, nil when nothing usable came back
func (c *Client) ExtractNetwork(ctx context.Context, externalID string) *NetworkDetails {
	var out NetworkDetails
	if !c.fetchDetails(ctx, "network", c.detailURL("networks", externalID), networkInstruction, &out) {
		return nil
	}
	return &out
}

// ExtractWebChannel fetches web channel details, nil when nothing usable came back
func (c *Client) ExtractWebChannel(ctx context.Context, externalID string) *WebChannelDetails {
	var out WebChannelDetails
	if !c.fetchDetails(ctx, "web_channel", c.detailURL("webchannels", externalID), webChannelInstruction, &out) {
		return nil
	}
	return &out
}

func (c *Client) fetchDetails(ctx context.Context, kind, target, instruction string, dest interface{}) bool {
	raw := c.extractObject(ctx, kind, target, instruction)
	if raw == nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn().Err(err).Str("kind", kind).Str("url", target).Msg("Undecodable detail payload")
		return false
	}
	return true
}
