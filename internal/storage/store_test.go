package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/kinfolk/internal/models"
)

// testPersonStore runs the behaviour every PersonStore implementation shares.
func testPersonStore(t *testing.T, newStore func(t *testing.T) PersonStore) {
	t.Run("InsertAndGet", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		p := models.Person{IDNumber: "A1", Name: "Alice"}
		require.NoError(t, s.InsertPerson(ctx, &p))
		assert.False(t, p.ID.IsZero())

		got, err := s.GetPerson(ctx, "A1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Alice", got.Name)

		missing, err := s.GetPerson(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)

		dup := models.Person{IDNumber: "A1"}
		assert.ErrorIs(t, s.InsertPerson(ctx, &dup), ErrDuplicateIDNumber)
	})

	t.Run("ReturnsCopies", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		seed(t, s, models.Person{IDNumber: "A1", Name: "Alice"})

		got, err := s.GetPerson(ctx, "A1")
		require.NoError(t, err)
		got.Name = "Mallory"

		again, err := s.GetPerson(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", again.Name)
	})

	t.Run("ListInInsertionOrder", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, models.Person{IDNumber: "B"}, models.Person{IDNumber: "A"}, models.Person{IDNumber: "C"})

		all, err := s.ListPersons(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "A", "C"}, ids(all))
	})

	t.Run("ParentQueries", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		seed(t, s,
			models.Person{IDNumber: "M"},
			models.Person{IDNumber: "F"},
			models.Person{IDNumber: "C1", MotherID: "M", FatherID: "F"},
			models.Person{IDNumber: "C2", MotherID: "M"},
			models.Person{IDNumber: "C3", FatherID: "F"},
			models.Person{IDNumber: "X"},
		)

		children, err := s.FindChildren(ctx, "M")
		require.NoError(t, err)
		assert.Equal(t, []string{"C1", "C2"}, ids(children))

		children, err = s.FindChildren(ctx, "M", "F")
		require.NoError(t, err)
		assert.Equal(t, []string{"C1", "C2", "C3"}, ids(children))

		byMother, err := s.FindByMother(ctx, "M")
		require.NoError(t, err)
		assert.Equal(t, []string{"C1", "C2"}, ids(byMother))

		byFather, err := s.FindByFather(ctx, "F")
		require.NoError(t, err)
		assert.Equal(t, []string{"C1", "C3"}, ids(byFather))

		siblings, err := s.FindSharingParent(ctx, "M", "", "C2")
		require.NoError(t, err)
		assert.Equal(t, []string{"C1"}, ids(siblings))

		siblings, err = s.FindSharingParent(ctx, "M", "F", "C1")
		require.NoError(t, err)
		assert.Equal(t, []string{"C2", "C3"}, ids(siblings))

		// absent references never match other parentless persons
		none, err := s.FindSharingParent(ctx, "", "", "X")
		require.NoError(t, err)
		assert.Empty(t, none)

		none, err = s.FindChildren(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("ReplaceChecksVersion", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		seed(t, s, models.Person{IDNumber: "A1", Name: "Alice"})

		first, err := s.GetPerson(ctx, "A1")
		require.NoError(t, err)
		second, err := s.GetPerson(ctx, "A1")
		require.NoError(t, err)

		first.Name = "Alice B"
		require.NoError(t, s.ReplacePerson(ctx, first, 0))
		assert.Equal(t, int64(1), first.Version)

		second.Name = "Alice C"
		assert.ErrorIs(t, s.ReplacePerson(ctx, second, 0), ErrVersionConflict)

		stored, err := s.GetPerson(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, "Alice B", stored.Name)
		assert.Equal(t, int64(1), stored.Version)

		stored.Name = "Alice D"
		require.NoError(t, s.ReplacePerson(ctx, stored, 1))
		assert.Equal(t, int64(2), stored.Version)
	})

	t.Run("MediaSurvivesReplace", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		seed(t, s, models.Person{IDNumber: "A1", Name: "Alice"})

		p, err := s.GetPerson(ctx, "A1")
		require.NoError(t, err)

		video, audio := "Alice/video/v.mp4", "Alice/note/n.mp3"
		p.Things = []models.Category{{Key: 0, Val: "FAMILY", ChildItems: []models.SubCategory{{
			Key: 0, Val: "Things", Data: []models.MediaItem{
				{ID: "video-1", Title: "party", Tags: []string{"a"}, Body: models.VideoBody{URL: &video, Duration: 2.5}},
				{ID: "note-1", Tags: []string{}, Body: models.NoteBody{
					Text: "hi", Remind: true, Audio: &models.NoteMedia{Type: "audio", URL: &audio},
				}},
			},
		}}}}
		require.NoError(t, s.ReplacePerson(ctx, p, p.Version))

		stored, err := s.GetPerson(ctx, "A1")
		require.NoError(t, err)
		data := stored.Things[0].ChildItems[0].Data
		require.Len(t, data, 2)

		v := data[0].Body.(models.VideoBody)
		assert.Equal(t, "party", data[0].Title)
		assert.Equal(t, video, *v.URL)
		assert.Equal(t, 2.5, v.Duration)

		n := data[1].Body.(models.NoteBody)
		assert.Equal(t, "hi", n.Text)
		assert.True(t, n.Remind)
		require.NotNil(t, n.Audio)
		assert.Equal(t, audio, *n.Audio.URL)
		assert.Nil(t, n.Image)
	})
}

func seed(t *testing.T, s PersonStore, persons ...models.Person) {
	t.Helper()
	for i := range persons {
		require.NoError(t, s.InsertPerson(context.Background(), &persons[i]))
	}
}

func ids(persons []models.Person) []string {
	out := make([]string, 0, len(persons))
	for _, p := range persons {
		out = append(out, p.IDNumber)
	}
	return out
}
