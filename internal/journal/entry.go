// Package journal contains the entry model shared by export parsing, diffing
// and the downstream content pipeline.
package journal

import (
	"encoding/json"
	"strings"

	"github.com/dmitrijs2005/journalsync/internal/timex"
)

// Default journal names of the publishing workflow.
const (
	Drafts    = "Blog Drafts"
	Public    = "Blog Public"
	Published = "Blog Published"
)

// Entry is one journal entry as found in an export document. Fields the
// export carries but nothing here needs are dropped on decode.
type Entry struct {
	UUID         string          `json:"uuid"`
	Title        string          `json:"title,omitempty"`
	CreationDate timex.Timestamp `json:"creationDate"`
	ModifiedDate timex.Timestamp `json:"modifiedDate"`
	Tags         []string        `json:"tags,omitempty"`
	Text         string          `json:"text"`
	Attachments  []Attachment    `json:"attachments,omitempty"`
	Location     *Location       `json:"location,omitempty"`
	Weather      *Weather        `json:"weather,omitempty"`
	Starred      bool            `json:"starred,omitempty"`
	TimeZone     string          `json:"timeZone,omitempty"`

	// Journal is the journal the export attributes the entry to, from either
	// "journal" or "journalName".
	Journal string `json:"journal,omitempty"`
}

// Attachment is a media item referenced by an entry. Exports list photos
// under "photos"; both spellings decode into Entry.Attachments.
type Attachment struct {
	Identifier   string `json:"identifier"`
	Filename     string `json:"filename,omitempty"`
	Type         string `json:"type,omitempty"`
	MD5          string `json:"md5,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	OrderInEntry int    `json:"orderInEntry,omitempty"`
}

type Location struct {
	PlaceName          string  `json:"placeName,omitempty"`
	LocalityName       string  `json:"localityName,omitempty"`
	AdministrativeArea string  `json:"administrativeArea,omitempty"`
	Country            string  `json:"country,omitempty"`
	Latitude           float64 `json:"latitude,omitempty"`
	Longitude          float64 `json:"longitude,omitempty"`
}

type Weather struct {
	ConditionsDescription string  `json:"conditionsDescription,omitempty"`
	TemperatureCelsius    float64 `json:"temperatureCelsius,omitempty"`
	WeatherCode           string  `json:"weatherCode,omitempty"`
}

// Ref is the short form of an entry stored in migration records and run
// summaries.
type Ref struct {
	UUID         string          `json:"uuid"`
	Title        string          `json:"title"`
	CreationDate timex.Timestamp `json:"creationDate"`
}

func (e *Entry) UnmarshalJSON(b []byte) error {
	type plain Entry
	var aux struct {
		plain
		JournalName string       `json:"journalName"`
		Photos      []Attachment `json:"photos"`
		Videos      []Attachment `json:"videos"`
		Audios      []Attachment `json:"audios"`
		PDFs        []Attachment `json:"pdfAttachments"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	*e = Entry(aux.plain)
	if e.Journal == "" {
		e.Journal = aux.JournalName
	}
	if len(e.Attachments) == 0 {
		for _, group := range [][]Attachment{aux.Photos, aux.Videos, aux.Audios, aux.PDFs} {
			e.Attachments = append(e.Attachments, group...)
		}
	}
	return nil
}

// DisplayTitle is the explicit title, or the first non-empty line of the
// body with markdown heading marks removed.
func (e Entry) DisplayTitle() string {
	if t := strings.TrimSpace(e.Title); t != "" {
		return t
	}
	for _, line := range strings.Split(e.Text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line != "" {
			return line
		}
	}
	return ""
}

// EffectiveModified is the modification time, falling back to the creation
// time for entries that were never edited.
func (e Entry) EffectiveModified() timex.Timestamp {
	if e.ModifiedDate.IsZero() {
		return e.CreationDate
	}
	return e.ModifiedDate
}

func (e Entry) Ref() Ref {
	return Ref{UUID: e.UUID, Title: e.DisplayTitle(), CreationDate: e.CreationDate}
}

// Refs maps entries to their short form.
func Refs(entries []Entry) []Ref {
	out := make([]Ref, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Ref())
	}
	return out
}

// Index returns entries keyed by uuid.
func Index(entries []Entry) map[string]Entry {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.UUID] = e
	}
	return m
}
