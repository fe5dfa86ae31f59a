package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
	MediaPDF   MediaType = "pdf"
	MediaNote  MediaType = "note"
)

// MediaTypes lists every supported kind, in a stable order.
var MediaTypes = []MediaType{MediaVideo, MediaImage, MediaAudio, MediaPDF, MediaNote}

// Valid reports whether t is one of MediaTypes.
func (t MediaType) Valid() bool {
	for _, known := range MediaTypes {
		if t == known {
			return true
		}
	}
	return false
}

// MediaItem is a single artifact attached to a person. The kind is carried by
// Body; exactly one of the *Body types below is set.
type MediaItem struct {
	ID          string
	Title       string
	Description string
	Category    string
	Tags        []string
	Creator     string
	CreatedAt   time.Time
	Body        MediaBody
}

type MediaBody interface {
	Kind() MediaType
}

type VideoBody struct {
	URL      *string
	Duration float64
}

type ImageBody struct {
	URL *string
}

type AudioBody struct {
	URL      *string
	Duration float64
}

type PDFBody struct {
	URL       *string
	PageCount int
}

type NoteBody struct {
	Text   string
	Lat    string
	Lng    string
	Remind bool
	Audio  *NoteMedia
	Image  *NoteMedia
}

// NoteMedia is an audio or image reference embedded in a note.
type NoteMedia struct {
	Type string  `bson:"type"`
	URL  *string `bson:"url,omitempty"`
}

func (VideoBody) Kind() MediaType { return MediaVideo }
func (ImageBody) Kind() MediaType { return MediaImage }
func (AudioBody) Kind() MediaType { return MediaAudio }
func (PDFBody) Kind() MediaType   { return MediaPDF }
func (NoteBody) Kind() MediaType  { return MediaNote }

// Type returns the discriminator, or "" for an item without a body.
func (m MediaItem) Type() MediaType {
	if m.Body == nil {
		return ""
	}
	return m.Body.Kind()
}

// Clone copies the item including pointer fields in the body.
func (m MediaItem) Clone() MediaItem {
	out := m
	out.Tags = append([]string(nil), m.Tags...)
	switch b := m.Body.(type) {
	case VideoBody:
		b.URL = cloneString(b.URL)
		out.Body = b
	case ImageBody:
		b.URL = cloneString(b.URL)
		out.Body = b
	case AudioBody:
		b.URL = cloneString(b.URL)
		out.Body = b
	case PDFBody:
		b.URL = cloneString(b.URL)
		out.Body = b
	case NoteBody:
		b.Audio = b.Audio.clone()
		b.Image = b.Image.clone()
		out.Body = b
	}
	return out
}

func (n *NoteMedia) clone() *NoteMedia {
	if n == nil {
		return nil
	}
	return &NoteMedia{Type: n.Type, URL: cloneString(n.URL)}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// mediaDoc is the flat on-disk shape of a MediaItem.
type mediaDoc struct {
	ID          string     `bson:"id"`
	Type        MediaType  `bson:"type"`
	Title       string     `bson:"title"`
	Description string     `bson:"description"`
	Category    string     `bson:"category"`
	Tags        []string   `bson:"tags"`
	Creator     string     `bson:"creator"`
	CreatedAt   time.Time  `bson:"createdAt"`
	URL         *string    `bson:"url,omitempty"`
	Duration    *float64   `bson:"duration,omitempty"`
	PageCount   *int       `bson:"pageCount,omitempty"`
	Text        *string    `bson:"text,omitempty"`
	Lat         *string    `bson:"lat,omitempty"`
	Lng         *string    `bson:"lng,omitempty"`
	Remind      *bool      `bson:"remind,omitempty"`
	Audio       *NoteMedia `bson:"audio,omitempty"`
	Image       *NoteMedia `bson:"image,omitempty"`
}

func (m MediaItem) MarshalBSON() ([]byte, error) {
	doc := mediaDoc{
		ID:          m.ID,
		Type:        m.Type(),
		Title:       m.Title,
		Description: m.Description,
		Category:    m.Category,
		Tags:        m.Tags,
		Creator:     m.Creator,
		CreatedAt:   m.CreatedAt,
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}

	switch b := m.Body.(type) {
	case VideoBody:
		doc.URL, doc.Duration = b.URL, &b.Duration
	case ImageBody:
		doc.URL = b.URL
	case AudioBody:
		doc.URL, doc.Duration = b.URL, &b.Duration
	case PDFBody:
		doc.URL, doc.PageCount = b.URL, &b.PageCount
	case NoteBody:
		doc.Text, doc.Lat, doc.Lng, doc.Remind = &b.Text, &b.Lat, &b.Lng, &b.Remind
		doc.Audio, doc.Image = b.Audio, b.Image
	default:
		return nil, fmt.Errorf("marshal media item %s: missing body", m.ID)
	}
	return bson.Marshal(doc)
}

func (m *MediaItem) UnmarshalBSON(data []byte) error {
	var doc mediaDoc
	if err := bson.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal media item: %w", err)
	}

	*m = MediaItem{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Category:    doc.Category,
		Tags:        doc.Tags,
		Creator:     doc.Creator,
		CreatedAt:   doc.CreatedAt,
	}

	switch doc.Type {
	case MediaVideo:
		m.Body = VideoBody{URL: doc.URL, Duration: deref(doc.Duration)}
	case MediaImage:
		m.Body = ImageBody{URL: doc.URL}
	case MediaAudio:
		m.Body = AudioBody{URL: doc.URL, Duration: deref(doc.Duration)}
	case MediaPDF:
		m.Body = PDFBody{URL: doc.URL, PageCount: deref(doc.PageCount)}
	case MediaNote:
		m.Body = NoteBody{
			Text:   deref(doc.Text),
			Lat:    deref(doc.Lat),
			Lng:    deref(doc.Lng),
			Remind: deref(doc.Remind),
			Audio:  doc.Audio,
			Image:  doc.Image,
		}
	default:
		return fmt.Errorf("unmarshal media item %s: unknown type %q", doc.ID, doc.Type)
	}
	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
