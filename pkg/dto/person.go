package dto

import (
	"time"

	"github.com/your-org/kinfolk/internal/models"
)

// CreatePersonRequest is the multipart form of POST /v1/persons. The profile
// image travels as the "image" file part.
type CreatePersonRequest struct {
	Name           string `form:"name" binding:"required"`
	IDNumber       string `form:"id_number" binding:"required"`
	Gender         string `form:"gender"`
	Type           string `form:"type"`
	Age            string `form:"age"`
	Emoji          string `form:"emoji"`
	PassportNumber string `form:"passport_number"`
	Interests      string `form:"interests"`
	MotherID       string `form:"mother_id"`
	FatherID       string `form:"father_id"`
}

// MediaForm carries the free-form attributes that accompany a media upload.
type MediaForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	Tags        string `form:"tags"`
	Creator     string `form:"creator"`
	Text        string `form:"text"`
	Lat         string `form:"lat"`
	Lng         string `form:"lng"`
	Remind      string `form:"remind"`
}

type IfathResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Date string `json:"date"`
	Path string `json:"path"`
}

type PersonResponse struct {
	IDNumber       string             `json:"id_number"`
	Name           string             `json:"name"`
	Gender         string             `json:"gender"`
	Type           string             `json:"type"`
	Age            string             `json:"age"`
	Emoji          string             `json:"emoji"`
	Ifath          IfathResponse      `json:"ifath"`
	PassportNumber string             `json:"passport_number,omitempty"`
	Interests      []string           `json:"interests"`
	MotherID       string             `json:"mother_id,omitempty"`
	FatherID       string             `json:"father_id,omitempty"`
	Things         []CategoryResponse `json:"things"`
	CreatedAt      string             `json:"created_at"`
}

type CategoryResponse struct {
	Key        int                   `json:"key"`
	Val        string                `json:"val"`
	ChildItems []SubCategoryResponse `json:"childItems"`
}

type SubCategoryResponse struct {
	Key  int    `json:"key"`
	Val  string `json:"val"`
	Data []any  `json:"data"`
}

// MediaHeader is shared by every media response.
type MediaHeader struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Creator     string   `json:"creator"`
	CreatedAt   string   `json:"createdAt"`
}

type VideoResponse struct {
	MediaHeader
	URL      *string `json:"url"`
	Duration float64 `json:"duration"`
}

type ImageResponse struct {
	MediaHeader
	URL *string `json:"url"`
}

type AudioResponse struct {
	MediaHeader
	URL      *string `json:"url"`
	Duration float64 `json:"duration"`
}

type PDFResponse struct {
	MediaHeader
	URL       *string `json:"url"`
	PageCount int     `json:"pageCount"`
}

type NoteMediaResponse struct {
	Type string  `json:"type"`
	URL  *string `json:"url"`
}

type NoteResponse struct {
	MediaHeader
	Text   string             `json:"text"`
	Lat    string             `json:"lat"`
	Lng    string             `json:"lng"`
	Remind bool               `json:"remind"`
	Audio  *NoteMediaResponse `json:"audio"`
	Image  *NoteMediaResponse `json:"image"`
}

func NewPersonResponse(p models.Person) PersonResponse {
	interests := p.Interests
	if interests == nil {
		interests = []string{}
	}
	things := make([]CategoryResponse, 0, len(p.Things))
	for _, c := range p.Things {
		things = append(things, newCategoryResponse(c))
	}
	return PersonResponse{
		IDNumber:       p.IDNumber,
		Name:           p.Name,
		Gender:         string(p.Gender),
		Type:           p.Type,
		Age:            p.Age,
		Emoji:          p.Emoji,
		Ifath:          newIfathResponse(p.Ifath),
		PassportNumber: p.PassportNumber,
		Interests:      interests,
		MotherID:       p.MotherID,
		FatherID:       p.FatherID,
		Things:         things,
		CreatedAt:      formatTime(p.CreatedAt),
	}
}

func NewPersonResponses(persons []models.Person) []PersonResponse {
	out := make([]PersonResponse, 0, len(persons))
	for _, p := range persons {
		out = append(out, NewPersonResponse(p))
	}
	return out
}

func newIfathResponse(i models.Ifath) IfathResponse {
	return IfathResponse{Name: i.Name, Type: i.Type, Date: formatTime(i.Date), Path: i.Path}
}

func newCategoryResponse(c models.Category) CategoryResponse {
	subs := make([]SubCategoryResponse, 0, len(c.ChildItems))
	for _, s := range c.ChildItems {
		data := make([]any, 0, len(s.Data))
		for _, item := range s.Data {
			data = append(data, NewMediaResponse(item))
		}
		subs = append(subs, SubCategoryResponse{Key: s.Key, Val: s.Val, Data: data})
	}
	return CategoryResponse{Key: c.Key, Val: c.Val, ChildItems: subs}
}

// NewMediaResponse shapes one item by its kind. Items without a body keep
// only the common header.
func NewMediaResponse(item models.MediaItem) any {
	header := MediaHeader{
		ID:          item.ID,
		Type:        string(item.Type()),
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		Tags:        item.Tags,
		Creator:     item.Creator,
		CreatedAt:   formatTime(item.CreatedAt),
	}
	if header.Tags == nil {
		header.Tags = []string{}
	}

	switch b := item.Body.(type) {
	case models.VideoBody:
		return VideoResponse{MediaHeader: header, URL: b.URL, Duration: b.Duration}
	case models.ImageBody:
		return ImageResponse{MediaHeader: header, URL: b.URL}
	case models.AudioBody:
		return AudioResponse{MediaHeader: header, URL: b.URL, Duration: b.Duration}
	case models.PDFBody:
		return PDFResponse{MediaHeader: header, URL: b.URL, PageCount: b.PageCount}
	case models.NoteBody:
		return NoteResponse{
			MediaHeader: header,
			Text:        b.Text,
			Lat:         b.Lat,
			Lng:         b.Lng,
			Remind:      b.Remind,
			Audio:       newNoteMediaResponse(b.Audio),
			Image:       newNoteMediaResponse(b.Image),
		}
	default:
		return header
	}
}

func newNoteMediaResponse(n *models.NoteMedia) *NoteMediaResponse {
	if n == nil {
		return nil
	}
	return &NoteMediaResponse{Type: n.Type, URL: n.URL}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
