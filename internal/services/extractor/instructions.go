package extractor

import "strings"

// Each instruction pins the JSON schema the extraction service must answer
// with. Field names here are the ones the typed payloads decode.

var listingInstruction = strings.TrimSpace(`
Read the content of the url very carefully and recognize every upcoming release listed on the page.
Dates look like "Jun 16, 2025 at 22:00". Ignore relative announcements such as "In 7 hours".
For each release take the numeric ids from the links to the show, the episode and the network or web channel.
A release links either a network or a web channel, never both.
Return the list of releases using the following JSON schema:

schema: {
  type: "array",
  items: {
    type: "object",
    properties: {
      date:             { type: "string", pattern: "^[0-9]{4}-[0-9]{2}-[0-9]{2}$" },
      time:             { type: "string", pattern: "^([01][0-9]|2[0-3]):[0-5][0-9]$" },
      title:            { type: "string" },
      show_id:          { type: "string" },
      episode_id:       { type: "string" },
      network_id:       { type: "string" },
      network_name:     { type: "string" },
      web_channel_id:   { type: "string" },
      web_channel_name: { type: "string" }
    }
  }
}`)

var showInstruction = strings.TrimSpace(`
Read the show page and return its details using the following JSON schema:

schema: {
  type: "object",
  properties: {
    title:             { type: "string" },
    description:       { type: "string" },
    show_type:         { type: "string" },
    official_site_url: { type: "string" },
    genres:            { type: "array", items: { type: "string" } },
    vote:              { type: "number" },
    network_id:        { type: "string" },
    web_channel_id:    { type: "string" }
  }
}`)

var episodeInstruction = strings.TrimSpace(`
Read the episode page and return its details using the following JSON schema:

schema: {
  type: "object",
  properties: {
    season:  { type: "number" },
    episode: { type: "number" },
    airdate: { type: "string", pattern: "^[0-9]{4}-[0-9]{2}-[0-9]{2}$" },
    runtime: { type: "number" },
    summary: { type: "string" }
  }
}`)

var networkInstruction = strings.TrimSpace(`
Read the network page and return its details using the following JSON schema:

schema: {
  type: "object",
  properties: {
    name:         { type: "string" },
    country_code: { type: "string", pattern: "^[A-Z]{2}$" },
    time_zone:    { type: "string" },
    official_url: { type: "string" },
    description:  { type: "string" }
  }
}`)

var webChannelInstruction = strings.TrimSpace(`
Read the web channel page and return its details using the following JSON schema:

schema: {
  type: "object",
  properties: {
    name:         { type: "string" },
    time_zone:    { type: "string" },
    official_url: { type: "string" },
    description:  { type: "string" }
  }
}`)
