package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrPersonNotFound = errors.New("person not found")

type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderUnspecified Gender = "unspecified"
)

// ParseGender is case-insensitive; anything unrecognised is unspecified.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return GenderMale
	case "female":
		return GenderFemale
	default:
		return GenderUnspecified
	}
}

// Ifath records where the person's profile image came from.
type Ifath struct {
	Name string    `bson:"name"`
	Type string    `bson:"type"`
	Date time.Time `bson:"date"`
	Path string    `bson:"path"`
}

type Person struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	IDNumber       string             `bson:"id_number"`
	Name           string             `bson:"name"`
	Gender         Gender             `bson:"gender"`
	Type           string             `bson:"type"`
	Age            string             `bson:"age"`
	Emoji          string             `bson:"emoji"`
	Ifath          Ifath              `bson:"ifath"`
	PassportNumber string             `bson:"passport_number,omitempty"`
	Interests      []string           `bson:"interests"`
	MotherID       string             `bson:"mother_id,omitempty"`
	FatherID       string             `bson:"father_id,omitempty"`
	Things         []Category         `bson:"things,omitempty"`
	Version        int64              `bson:"version"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

// HasParents reports whether at least one parent reference is set.
func (p *Person) HasParents() bool {
	return p.MotherID != "" || p.FatherID != ""
}

// Category is a labelled bucket of sub-categories under a person.
type Category struct {
	Key        int           `bson:"key"`
	Val        string        `bson:"val"`
	ChildItems []SubCategory `bson:"childItems"`
}

type SubCategory struct {
	Key  int         `bson:"key"`
	Val  string      `bson:"val"`
	Data []MediaItem `bson:"data"`
}

// Clone returns a deep copy, so callers can rewrite nested media freely.
func (p Person) Clone() Person {
	out := p
	out.Interests = append([]string(nil), p.Interests...)
	if p.Things == nil {
		return out
	}
	out.Things = make([]Category, len(p.Things))
	for i, c := range p.Things {
		cc := c
		cc.ChildItems = make([]SubCategory, len(c.ChildItems))
		for j, s := range c.ChildItems {
			sc := s
			sc.Data = make([]MediaItem, len(s.Data))
			for k, item := range s.Data {
				sc.Data[k] = item.Clone()
			}
			cc.ChildItems[j] = sc
		}
		out.Things[i] = cc
	}
	return out
}

// UploadedFile is the metadata of a staged upload; the core never sees file bytes.
type UploadedFile struct {
	Filename     string
	OriginalName string
	ContentType  string
	Size         int64
	Path         string
}
