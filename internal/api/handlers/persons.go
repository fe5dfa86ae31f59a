package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/kinfolk/internal/catalog"
	"github.com/your-org/kinfolk/internal/family"
	"github.com/your-org/kinfolk/internal/media"
	"github.com/your-org/kinfolk/internal/models"
	"github.com/your-org/kinfolk/internal/observability"
	"github.com/your-org/kinfolk/internal/queue"
	"github.com/your-org/kinfolk/internal/signing"
	"github.com/your-org/kinfolk/internal/storage"
	"github.com/your-org/kinfolk/internal/upload"
	"github.com/your-org/kinfolk/pkg/dto"
)

const (
	headerCategory  = "x-category"
	headerMediaType = "x-mediatype"

	publishTimeout = 2 * time.Second
)

// EventPublisher receives domain events. Publishing is best effort.
type EventPublisher interface {
	PublishPersonCreated(ctx context.Context, ev queue.PersonCreatedEvent) error
	PublishMediaAttached(ctx context.Context, ev queue.MediaAttachedEvent) error
}

type PersonDeps struct {
	Store        storage.PersonStore
	Resolver     *family.Resolver
	Catalog      *catalog.Service
	Materializer *signing.Materializer
	Factory      *media.Factory
	Stager       *upload.Stager
	Relocator    *upload.Relocator
	Events       EventPublisher
	MaxFiles     int
}

type PersonHandler struct {
	store        storage.PersonStore
	resolver     *family.Resolver
	catalog      *catalog.Service
	materializer *signing.Materializer
	factory      *media.Factory
	stager       *upload.Stager
	relocator    *upload.Relocator
	events       EventPublisher
	maxFiles     int
}

func NewPersonHandler(d PersonDeps) *PersonHandler {
	return &PersonHandler{
		store:        d.Store,
		resolver:     d.Resolver,
		catalog:      d.Catalog,
		materializer: d.Materializer,
		factory:      d.Factory,
		stager:       d.Stager,
		relocator:    d.Relocator,
		events:       d.Events,
		maxFiles:     d.MaxFiles,
	}
}

// Create accepts a multipart form with the person's fields and a required
// profile image in the "image" part.
func (h *PersonHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreatePersonRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	interests, err := parseInterests(req.Interests)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.store.GetPerson(ctx, req.IDNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	if existing != nil {
		respondError(c, storage.ErrDuplicateIDNumber)
		return
	}

	staged, err := h.stager.Stage(fh)
	if err != nil {
		respondError(c, err)
		return
	}
	moved, err := h.relocator.Relocate(ctx, req.Name, models.MediaImage, []models.UploadedFile{staged})
	if err != nil {
		upload.Cleanup([]models.UploadedFile{staged})
		respondError(c, err)
		return
	}

	person := &models.Person{
		IDNumber: req.IDNumber,
		Name:     req.Name,
		Gender:   models.ParseGender(req.Gender),
		Type:     req.Type,
		Age:      req.Age,
		Emoji:    req.Emoji,
		Ifath: models.Ifath{
			Name: staged.Filename,
			Type: staged.ContentType,
			Date: time.Now().UTC(),
			Path: h.factory.PublicURL(moved[0].Path),
		},
		PassportNumber: req.PassportNumber,
		Interests:      interests,
		MotherID:       strings.TrimSpace(req.MotherID),
		FatherID:       strings.TrimSpace(req.FatherID),
	}
	if err := h.store.InsertPerson(ctx, person); err != nil {
		h.relocator.Discard(ctx, moved)
		respondError(c, err)
		return
	}
	observability.PersonsCreated.Inc()

	h.publish(ctx, "person_created", func(ctx context.Context) error {
		return h.events.PublishPersonCreated(ctx, queue.PersonCreatedEvent{
			IDNumber:  person.IDNumber,
			Name:      person.Name,
			MotherID:  person.MotherID,
			FatherID:  person.FatherID,
			CreatedAt: person.CreatedAt,
		})
	})

	c.JSON(http.StatusCreated, dto.NewPersonResponse(*person))
}

func (h *PersonHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	persons, err := h.store.ListPersons(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := dto.NewPersonResponses(h.materializer.MaterializeAll(ctx, persons))
	c.JSON(http.StatusOK, gin.H{"persons": resp, "total": len(resp)})
}

func (h *PersonHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	person, err := h.store.GetPerson(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if person == nil {
		respondError(c, models.ErrPersonNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.NewPersonResponse(h.materializer.Materialize(ctx, *person)))
}

// WithChildren returns the person together with the children traced through
// the parent reference matching their gender.
func (h *PersonHandler) WithChildren(c *gin.Context) {
	ctx := c.Request.Context()
	person, kids, err := h.resolver.Family(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"person": dto.NewPersonResponse(h.materializer.Materialize(ctx, *person)),
		"family": dto.NewPersonResponses(h.materializer.MaterializeAll(ctx, kids)),
	})
}

func (h *PersonHandler) Children(c *gin.Context) {
	ctx := c.Request.Context()
	kids, err := h.resolver.Children(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := dto.NewPersonResponses(h.materializer.MaterializeAll(ctx, kids))
	c.JSON(http.StatusOK, gin.H{"children": resp, "total": len(resp)})
}

func (h *PersonHandler) Cousins(c *gin.Context) {
	ctx := c.Request.Context()
	cousins, err := h.resolver.Cousins(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := dto.NewPersonResponses(h.materializer.MaterializeAll(ctx, cousins))
	c.JSON(http.StatusOK, gin.H{"cousins": resp, "total": len(resp)})
}

// UploadMedia attaches a single item built from the "file" part. Notes may
// be sent without a file.
func (h *PersonHandler) UploadMedia(c *gin.Context) {
	h.upload(c, "file", false)
}

// UploadMediaBatch attaches one item per "files" part, or a single note
// for the whole batch.
func (h *PersonHandler) UploadMediaBatch(c *gin.Context) {
	h.upload(c, "files", true)
}

func (h *PersonHandler) upload(c *gin.Context, field string, batch bool) {
	ctx := c.Request.Context()
	idNumber := c.Param("id")

	category := strings.TrimSpace(c.GetHeader(headerCategory))
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": headerCategory + " header is required"})
		return
	}
	rawType := c.GetHeader(headerMediaType)
	if strings.TrimSpace(rawType) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": headerMediaType + " header is required"})
		return
	}
	mediaType, err := media.ParseType(rawType)
	if err != nil {
		respondError(c, err)
		return
	}

	var form dto.MediaForm
	if err := c.ShouldBind(&form); err != nil {
		respondBindError(c, err)
		return
	}
	headers, err := formFiles(c, field)
	if err != nil {
		respondBindError(c, err)
		return
	}
	switch {
	case !batch && len(headers) > 1:
		c.JSON(http.StatusBadRequest, gin.H{"error": "single upload accepts one file"})
		return
	case batch && len(headers) > h.maxFiles:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d files per upload", h.maxFiles)})
		return
	case mediaType != models.MediaNote && len(headers) == 0:
		respondError(c, media.ErrFileRequired)
		return
	}

	person, err := h.store.GetPerson(ctx, idNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	if person == nil {
		respondError(c, models.ErrPersonNotFound)
		return
	}

	staged, err := h.stager.StageAll(headers)
	if err != nil {
		respondError(c, err)
		return
	}
	moved, err := h.relocator.Relocate(ctx, person.Name, mediaType, staged)
	if err != nil {
		upload.Cleanup(staged)
		respondError(c, err)
		return
	}

	fields := media.Fields{
		Category:    category,
		Title:       form.Title,
		Description: form.Description,
		Tags:        form.Tags,
		Creator:     form.Creator,
		Text:        form.Text,
		Lat:         form.Lat,
		Lng:         form.Lng,
		Remind:      form.Remind,
	}
	var items []models.MediaItem
	if batch {
		items, err = h.factory.BuildAll(mediaType, moved, fields)
	} else {
		var item models.MediaItem
		item, err = h.factory.Build(mediaType, moved, fields)
		items = []models.MediaItem{item}
	}
	if err != nil {
		h.relocator.Discard(ctx, moved)
		respondError(c, err)
		return
	}
	if mediaType == models.MediaNote {
		// a note keeps only its first audio and first image
		var unused []models.UploadedFile
		moved, unused = splitReferenced(items, moved)
		h.relocator.Discard(ctx, unused)
	}

	if _, err := h.catalog.AttachMedia(ctx, idNumber, category, items); err != nil {
		h.relocator.Discard(ctx, moved)
		respondError(c, err)
		return
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	h.publish(ctx, "media_attached", func(ctx context.Context) error {
		return h.events.PublishMediaAttached(ctx, queue.MediaAttachedEvent{
			IDNumber:   idNumber,
			Category:   category,
			ItemIDs:    ids,
			MediaType:  string(mediaType),
			AttachedAt: time.Now().UTC(),
		})
	})

	signed := h.materializer.MaterializeItems(ctx, items)
	if !batch {
		c.JSON(http.StatusCreated, gin.H{"success": true, string(mediaType): dto.NewMediaResponse(signed[0])})
		return
	}
	resp := make([]any, 0, len(signed))
	for _, item := range signed {
		resp = append(resp, dto.NewMediaResponse(item))
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "items": resp, "total": len(resp)})
}

func (h *PersonHandler) publish(ctx context.Context, event string, fn func(context.Context) error) {
	if h.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		slog.Warn("publish event", "event", event, "error", err)
	}
}

// splitReferenced separates the files whose keys a note body points at from
// the rest.
func splitReferenced(items []models.MediaItem, files []models.UploadedFile) (used, unused []models.UploadedFile) {
	refs := map[string]bool{}
	for _, item := range items {
		note, ok := item.Body.(models.NoteBody)
		if !ok {
			continue
		}
		for _, m := range []*models.NoteMedia{note.Audio, note.Image} {
			if m != nil && m.URL != nil {
				refs[*m.URL] = true
			}
		}
	}
	for _, f := range files {
		if refs[f.Path] {
			used = append(used, f)
		} else {
			unused = append(unused, f)
		}
	}
	return used, unused
}

// formFiles returns the files sent under field. A request that is not
// multipart simply carries no files.
func formFiles(c *gin.Context, field string) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	return form.File[field], nil
}

// parseInterests accepts a JSON array or a comma-separated list.
func parseInterests(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("interests: %w", err)
		}
		return out, nil
	}
	return media.ParseTags(raw), nil
}
