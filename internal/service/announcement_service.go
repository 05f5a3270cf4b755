package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/query"
	"github.com/noah-isme/uni-records-api/internal/store"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

const announcementCacheNS = "announcements"

// CreateAnnouncementRequest describes announcement creation.
type CreateAnnouncementRequest struct {
	Title      string `json:"title" validate:"required"`
	Content    string `json:"content" validate:"required"`
	Type       string `json:"type" validate:"omitempty,oneof=GENERAL ACADEMIC EVENT EXAM"`
	Audience   string `json:"audience" validate:"omitempty,oneof=ALL STUDENTS STAFF"`
	Department string `json:"department"`
	Featured   bool   `json:"featured"`
	Urgent     bool   `json:"urgent"`
}

// UpdateAnnouncementRequest describes a partial announcement update.
type UpdateAnnouncementRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Type       string `json:"type" validate:"omitempty,oneof=GENERAL ACADEMIC EVENT EXAM"`
	Audience   string `json:"audience" validate:"omitempty,oneof=ALL STUDENTS STAFF"`
	Department string `json:"department"`
	Featured   *bool  `json:"featured"`
	Urgent     *bool  `json:"urgent"`
}

// announcementPage is the cached shape of a list response.
type announcementPage struct {
	Items      []models.Announcement `json:"items"`
	Pagination *models.Pagination    `json:"pagination"`
}

// AnnouncementService handles announcement CRUD and filtered listings.
type AnnouncementService struct {
	store     store.Store
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs AnnouncementService. cache may be nil.
func NewAnnouncementService(st store.Store, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{store: st, cache: cache, validator: validate, logger: logger}
}

// Create stores a new announcement.
func (s *AnnouncementService) Create(ctx context.Context, req CreateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	now := time.Now().UTC()
	announcement := models.Announcement{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Content:     req.Content,
		Type:        models.AnnouncementTypeGeneral,
		Audience:    models.AnnouncementAudienceAll,
		Department:  req.Department,
		Featured:    req.Featured,
		Urgent:      req.Urgent,
		PublishedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Type != "" {
		announcement.Type = models.AnnouncementType(req.Type)
	}
	if req.Audience != "" {
		announcement.Audience = models.AnnouncementAudience(req.Audience)
	}

	data, err := store.Encode(announcement)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Put(ctx, store.KindAnnouncement, announcement.ID, data, 0); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, announcementCacheNS)
	return &announcement, nil
}

// Get returns an announcement by id.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	doc, err := s.store.Get(ctx, store.KindAnnouncement, id)
	if err != nil {
		return nil, err
	}
	var announcement models.Announcement
	if err := store.Decode(doc, &announcement); err != nil {
		return nil, err
	}
	return &announcement, nil
}

// List returns announcements matching the raw criteria mapping, paginated
// after filtering. Results are cached per criteria+page snapshot.
func (s *AnnouncementService) List(ctx context.Context, raw map[string]string, page, limit int) ([]models.Announcement, *models.Pagination, error) {
	criteria := query.ParseAnnouncementCriteria(raw)
	cacheKey := announcementCacheKey(criteria, page, limit)

	var cached announcementPage
	if s.cache.Get(ctx, announcementCacheNS, cacheKey, &cached) {
		return cached.Items, cached.Pagination, nil
	}

	docs, err := s.store.List(ctx, store.KindAnnouncement)
	if err != nil {
		return nil, nil, err
	}
	matched := make([]models.Announcement, 0, len(docs))
	for _, doc := range docs {
		var announcement models.Announcement
		if err := store.Decode(doc, &announcement); err != nil {
			return nil, nil, err
		}
		if criteria.Match(announcement) {
			matched = append(matched, announcement)
		}
	}

	lo, hi := query.PageBounds(len(matched), page, limit)
	items := matched[lo:hi]
	pagination := query.PageInfo(len(matched), page, limit)

	s.cache.Set(ctx, announcementCacheNS, cacheKey, announcementPage{Items: items, Pagination: pagination})
	return items, pagination, nil
}

// Update applies a partial update.
func (s *AnnouncementService) Update(ctx context.Context, id string, req UpdateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	var updated models.Announcement
	err := mutateDocument(ctx, s.store, store.KindAnnouncement, id, func(doc store.Document) (json.RawMessage, error) {
		var announcement models.Announcement
		if err := store.Decode(doc, &announcement); err != nil {
			return nil, err
		}
		if req.Title != "" {
			announcement.Title = req.Title
		}
		if req.Content != "" {
			announcement.Content = req.Content
		}
		if req.Type != "" {
			announcement.Type = models.AnnouncementType(req.Type)
		}
		if req.Audience != "" {
			announcement.Audience = models.AnnouncementAudience(req.Audience)
		}
		if req.Department != "" {
			announcement.Department = req.Department
		}
		if req.Featured != nil {
			announcement.Featured = *req.Featured
		}
		if req.Urgent != nil {
			announcement.Urgent = *req.Urgent
		}
		announcement.UpdatedAt = time.Now().UTC()
		updated = announcement
		return store.Encode(announcement)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, announcementCacheNS)
	return &updated, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, store.KindAnnouncement, id, store.VersionAny); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, announcementCacheNS)
	return nil
}

// announcementCacheKey is stable for equivalent criteria regardless of how
// the raw mapping was ordered, since the criteria struct is closed. Values
// are form-encoded so criteria carrying delimiter characters cannot collide.
func announcementCacheKey(c query.AnnouncementCriteria, page, limit int) string {
	v := url.Values{
		"type":       {c.Type},
		"audience":   {c.Audience},
		"department": {c.Department},
		"featured":   {flagString(c.Featured)},
		"urgent":     {flagString(c.Urgent)},
		"search":     {c.Search},
		"page":       {strconv.Itoa(page)},
		"limit":      {strconv.Itoa(limit)},
	}
	return v.Encode()
}

func flagString(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
