package signing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/kinfolk/internal/models"
)

type fakeSigner struct {
	fail  map[string]bool
	calls []string
}

func (f *fakeSigner) SignURL(_ context.Context, path string) (string, error) {
	f.calls = append(f.calls, path)
	if f.fail[path] {
		return "", errors.New("object storage unavailable")
	}
	return "https://signed.example/" + path + "?sig=1", nil
}

func ptr(s string) *string { return &s }

func personWith(items ...models.MediaItem) models.Person {
	return models.Person{
		IDNumber: "A1",
		Things: []models.Category{{Val: "FAMILY", ChildItems: []models.SubCategory{{
			Val:  "Things",
			Data: items,
		}}}},
	}
}

func data(p models.Person) []models.MediaItem {
	return p.Things[0].ChildItems[0].Data
}

func TestMaterializeSignsAudioVideoAndNoteMedia(t *testing.T) {
	signer := &fakeSigner{}
	m := NewMaterializer(signer)

	in := personWith(
		models.MediaItem{ID: "video-1", Body: models.VideoBody{URL: ptr("a/video/v.mp4"), Duration: 3}},
		models.MediaItem{ID: "audio-1", Body: models.AudioBody{URL: ptr("a/audio/s.mp3")}},
		models.MediaItem{ID: "image-1", Body: models.ImageBody{URL: ptr("a/image/i.png")}},
		models.MediaItem{ID: "pdf-1", Body: models.PDFBody{URL: ptr("a/pdf/d.pdf")}},
		models.MediaItem{ID: "note-1", Body: models.NoteBody{
			Text:  "hi",
			Audio: &models.NoteMedia{Type: "audio", URL: ptr("a/note/n.mp3")},
			Image: &models.NoteMedia{Type: "image", URL: ptr("a/note/n.png")},
		}},
	)

	out := data(m.Materialize(context.Background(), in))

	assert.Equal(t, "https://signed.example/a/video/v.mp4?sig=1", *out[0].Body.(models.VideoBody).URL)
	assert.Equal(t, 3.0, out[0].Body.(models.VideoBody).Duration)
	assert.Equal(t, "https://signed.example/a/audio/s.mp3?sig=1", *out[1].Body.(models.AudioBody).URL)
	assert.Equal(t, "a/image/i.png", *out[2].Body.(models.ImageBody).URL)
	assert.Equal(t, "a/pdf/d.pdf", *out[3].Body.(models.PDFBody).URL)

	note := out[4].Body.(models.NoteBody)
	assert.Equal(t, "https://signed.example/a/note/n.mp3?sig=1", *note.Audio.URL)
	assert.Equal(t, "https://signed.example/a/note/n.png?sig=1", *note.Image.URL)
	assert.Equal(t, "hi", note.Text)

	assert.Len(t, signer.calls, 4)
}

func TestMaterializeDoesNotMutateInput(t *testing.T) {
	m := NewMaterializer(&fakeSigner{})
	in := personWith(models.MediaItem{ID: "video-1", Body: models.VideoBody{URL: ptr("a/v.mp4")}})

	m.Materialize(context.Background(), in)

	assert.Equal(t, "a/v.mp4", *data(in)[0].Body.(models.VideoBody).URL)
}

func TestMaterializePassesAbsoluteURLsThrough(t *testing.T) {
	signer := &fakeSigner{}
	m := NewMaterializer(signer)
	in := personWith(models.MediaItem{ID: "video-1", Body: models.VideoBody{URL: ptr("https://cdn.example/v.mp4")}})

	out := data(m.Materialize(context.Background(), in))

	assert.Equal(t, "https://cdn.example/v.mp4", *out[0].Body.(models.VideoBody).URL)
	assert.Empty(t, signer.calls)
}

func TestMaterializeSigningFailureYieldsNull(t *testing.T) {
	signer := &fakeSigner{fail: map[string]bool{"a/broken.mp4": true}}
	m := NewMaterializer(signer)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	in := personWith(
		models.MediaItem{ID: "video-1", Title: "party", Category: "FAMILY", Tags: []string{"x"}, CreatedAt: created,
			Body: models.VideoBody{URL: ptr("a/broken.mp4"), Duration: 12}},
		models.MediaItem{ID: "audio-1", Body: models.AudioBody{URL: ptr("a/ok.mp3")}},
	)

	out := data(m.Materialize(context.Background(), in))

	video := out[0].Body.(models.VideoBody)
	assert.Nil(t, video.URL)
	assert.Equal(t, 12.0, video.Duration)
	assert.Equal(t, "party", out[0].Title)
	assert.Equal(t, []string{"x"}, out[0].Tags)
	assert.Equal(t, created, out[0].CreatedAt)

	require.NotNil(t, out[1].Body.(models.AudioBody).URL)
}

func TestMaterializeAllIsolatesPersons(t *testing.T) {
	signer := &fakeSigner{fail: map[string]bool{"bad": true}}
	m := NewMaterializer(signer)

	out := m.MaterializeAll(context.Background(), []models.Person{
		personWith(models.MediaItem{ID: "video-1", Body: models.VideoBody{URL: ptr("bad")}}),
		personWith(models.MediaItem{ID: "video-2", Body: models.VideoBody{URL: ptr("good")}}),
		{IDNumber: "no-media"},
	})

	require.Len(t, out, 3)
	assert.Nil(t, data(out[0])[0].Body.(models.VideoBody).URL)
	assert.NotNil(t, data(out[1])[0].Body.(models.VideoBody).URL)
	assert.Empty(t, out[2].Things)
}

func TestMaterializeItems(t *testing.T) {
	m := NewMaterializer(&fakeSigner{})
	items := []models.MediaItem{
		{ID: "audio-1", Body: models.AudioBody{URL: ptr("a/s.mp3")}},
		{ID: "image-1", Body: models.ImageBody{URL: ptr("a/i.png")}},
	}

	out := m.MaterializeItems(context.Background(), items)

	require.Len(t, out, 2)
	assert.Equal(t, "https://signed.example/a/s.mp3?sig=1", *out[0].Body.(models.AudioBody).URL)
	assert.Equal(t, "a/i.png", *out[1].Body.(models.ImageBody).URL)
	assert.Equal(t, "a/s.mp3", *items[0].Body.(models.AudioBody).URL)
}

func TestMaterializeSignsKeysThatLookLikeSchemes(t *testing.T) {
	signer := &fakeSigner{}
	m := NewMaterializer(signer)
	in := personWith(
		models.MediaItem{ID: "audio-1", Body: models.AudioBody{URL: ptr("httpie/audio/MEDIA-1.mp3")}},
		models.MediaItem{ID: "video-1", Body: models.VideoBody{URL: ptr("https_fan/video/MEDIA-2.mp4")}},
		models.MediaItem{ID: "video-2", Body: models.VideoBody{URL: ptr("HTTPS://cdn.example/v.mp4")}},
	)

	out := data(m.Materialize(context.Background(), in))

	assert.Equal(t, "https://signed.example/httpie/audio/MEDIA-1.mp3?sig=1", *out[0].Body.(models.AudioBody).URL)
	assert.Equal(t, "https://signed.example/https_fan/video/MEDIA-2.mp4?sig=1", *out[1].Body.(models.VideoBody).URL)
	assert.Equal(t, "HTTPS://cdn.example/v.mp4", *out[2].Body.(models.VideoBody).URL)
	assert.Equal(t, []string{"httpie/audio/MEDIA-1.mp3", "https_fan/video/MEDIA-2.mp4"}, signer.calls)
}
