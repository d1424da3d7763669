package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mephisto/internal/assetkind"
	"github.com/xxxsen/mephisto/internal/config"
	"github.com/xxxsen/mephisto/internal/filestore"
	"github.com/xxxsen/mephisto/internal/model"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
	"github.com/xxxsen/mephisto/internal/pkg/validate"
	"github.com/xxxsen/mephisto/internal/thumbnail"
)

const assetFileMode = 0o644

type AssetRepository interface {
	Create(ctx context.Context, asset *model.Asset) error
	GetByID(ctx context.Context, siteID, assetID string) (*model.Asset, error)
	ListBySite(ctx context.Context, siteID, query, kindCond string, kindArgs []interface{}, limit, offset uint) ([]model.Asset, error)
	ListThumbnails(ctx context.Context, parentID string) ([]model.Asset, error)
	ListMissingThumbnails(ctx context.Context, contentTypes []string, limit uint) ([]model.Asset, error)
	Update(ctx context.Context, asset *model.Asset) error
	UpdateThumbnailsCount(ctx context.Context, assetID string, count int) error
	Delete(ctx context.Context, assetID string) error
}

type SiteLookup interface {
	GetByID(ctx context.Context, siteID string) (*model.Site, error)
}

type AssetOptions struct {
	MultiSites   bool
	MaxSize      int64
	Thumbnails   []thumbnail.Size
	Classifier   *assetkind.Classifier
	Processor    thumbnail.Processor
	Now          func() time.Time
	DetectOctets bool
}

func AssetOptionsFromConfig(cfg config.AssetConfig) AssetOptions {
	opts := AssetOptions{
		MultiSites:   cfg.MultiSites,
		MaxSize:      cfg.MaxSizeBytes(),
		Thumbnails:   thumbnail.SizesFromConfig(cfg.Thumbnails),
		Classifier:   assetkind.New(cfg.ExtraContentTypes, cfg.ImageTypes),
		DetectOctets: true,
	}
	if cfg.ThumbnailsEnabled() {
		opts.Processor = thumbnail.NewImaging()
	}
	return opts
}

type AssetService struct {
	assets AssetRepository
	sites  SiteLookup
	store  filestore.Store
	opts   AssetOptions
}

type AssetView struct {
	model.Asset
	Title      string         `json:"title"`
	Kind       assetkind.Kind `json:"kind"`
	PublicPath string         `json:"public_path"`
	URL        string         `json:"url"`
}

type UploadInput struct {
	SiteID      string
	Filename    string
	Title       string
	ContentType string
	Data        []byte
}

type AssetUpdateInput struct {
	Filename *string
	Title    *string
}

type AssetListInput struct {
	Kinds  []assetkind.Kind
	Query  string
	Limit  uint
	Offset uint
}

func NewAssetService(assets AssetRepository, sites SiteLookup, store filestore.Store, opts AssetOptions) *AssetService {
	if opts.Classifier == nil {
		opts.Classifier = assetkind.NewDefault()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AssetService{assets: assets, sites: sites, store: store, opts: opts}
}

func (s *AssetService) Classifier() *assetkind.Classifier {
	return s.opts.Classifier
}

func (s *AssetService) View(asset *model.Asset) AssetView {
	key := asset.Key()
	return AssetView{
		Asset:      *asset,
		Title:      asset.DisplayTitle(),
		Kind:       s.opts.Classifier.Classify(asset.ContentType),
		PublicPath: publicPath(key),
		URL:        s.store.URL(key),
	}
}

// Upload validates, names and stores one uploaded file, then derives its
// thumbnails when it is an image and a processor is configured.
func (s *AssetService) Upload(ctx context.Context, in UploadInput) (*AssetView, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("site_id", in.SiteID), zap.String("filename", in.Filename))
	verr := &appErr.ValidationError{}
	if in.SiteID == "" {
		verr.Add("site_id", "can't be blank")
	}
	if s.opts.MaxSize > 0 && int64(len(in.Data)) > s.opts.MaxSize {
		verr.Add("size", "is too big")
	}
	now := s.opts.Now()
	asset := &model.Asset{
		ID:          newID(),
		SiteID:      in.SiteID,
		Filename:    sanitizeFilename(in.Filename),
		Title:       strings.TrimSpace(in.Title),
		ContentType: s.contentType(in.ContentType, in.Data),
		Size:        int64(len(in.Data)),
		Ctime:       now.Unix(),
		Mtime:       now.Unix(),
	}
	if err := validate.Struct(asset); err != nil {
		fieldErrs, ok := appErr.AsValidation(err)
		if !ok {
			return nil, err
		}
		for field, reason := range fieldErrs.Fields {
			verr.Add(field, reason)
		}
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	site, err := s.sites.GetByID(ctx, in.SiteID)
	if err != nil {
		return nil, err
	}
	asset.Dir = strings.Join(derivePath(site.Host, now, s.opts.MultiSites), "/")

	name, err := resolveUniqueFilename(ctx, s.store.Exists, asset.Dir, asset.Filename)
	if err != nil {
		return nil, err
	}
	if name != asset.Filename {
		logger.Info("renamed upload to avoid collision", zap.String("renamed", name))
	}
	asset.Filename = name
	if s.isImage(asset.ContentType) && s.opts.Processor != nil {
		if w, h, err := s.opts.Processor.Dimensions(in.Data); err == nil {
			asset.Width, asset.Height = w, h
		}
	}
	if err := s.store.Save(ctx, asset.Key(), bytes.NewReader(in.Data), asset.Size); err != nil {
		logger.Error("store asset failed", zap.String("key", asset.Key()), zap.Error(err))
		return nil, appErr.NewValidationError("file", "could not be stored")
	}
	if err := s.assets.Create(ctx, asset); err != nil {
		_ = s.store.Remove(ctx, asset.Key())
		if errors.Is(err, appErr.ErrConflict) {
			return nil, appErr.NewValidationError("filename", "has already been taken")
		}
		return nil, err
	}
	count := s.generateThumbnails(ctx, asset, in.Data)
	if err := s.onThumbnailsGenerated(ctx, asset, count); err != nil {
		return nil, err
	}
	view := s.View(asset)
	return &view, nil
}

func (s *AssetService) Get(ctx context.Context, siteID, assetID string) (*AssetView, error) {
	asset, err := s.assets.GetByID(ctx, siteID, assetID)
	if err != nil {
		return nil, err
	}
	view := s.View(asset)
	return &view, nil
}

// List returns top level assets of a site, optionally restricted to the
// union of some kinds. Thumbnails are never listed.
func (s *AssetService) List(ctx context.Context, siteID string, in AssetListInput) ([]AssetView, error) {
	cond, args := s.opts.Classifier.Conditions(in.Kinds, "content_type")
	items, err := s.assets.ListBySite(ctx, siteID, strings.TrimSpace(in.Query), cond, args, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	views := make([]AssetView, 0, len(items))
	for i := range items {
		views = append(views, s.View(&items[i]))
	}
	return views, nil
}

// Update edits title and filename. Only a filename that differs from the
// stored one goes through collision resolution; the file keeps its
// original directory.
func (s *AssetService) Update(ctx context.Context, siteID, assetID string, in AssetUpdateInput) (*AssetView, error) {
	asset, err := s.assets.GetByID(ctx, siteID, assetID)
	if err != nil {
		return nil, err
	}
	if asset.IsThumbnail() {
		return nil, appErr.ErrForbidden
	}
	if in.Title != nil {
		asset.Title = strings.TrimSpace(*in.Title)
	}
	oldName := asset.Filename
	if in.Filename != nil {
		asset.Filename = sanitizeFilename(*in.Filename)
	}
	asset.Mtime = s.opts.Now().Unix()
	if err := validate.Struct(asset); err != nil {
		return nil, err
	}

	var renames []rename
	if asset.Filename != oldName {
		name, err := resolveUniqueFilename(ctx, s.store.Exists, asset.Dir, asset.Filename)
		if err != nil {
			return nil, err
		}
		asset.Filename = name
		renames, err = s.renameFiles(ctx, asset, oldName)
		if err != nil {
			return nil, err
		}
	}
	if err := s.assets.Update(ctx, asset); err != nil {
		s.rollbackRenames(ctx, renames)
		if errors.Is(err, appErr.ErrConflict) {
			return nil, appErr.NewValidationError("filename", "has already been taken")
		}
		return nil, err
	}
	for _, r := range renames {
		if r.thumb == nil {
			continue
		}
		if err := s.assets.Update(ctx, r.thumb); err != nil {
			logutil.GetLogger(ctx).Error("update thumbnail after rename failed",
				zap.String("asset_id", r.thumb.ID), zap.Error(err))
		}
	}
	view := s.View(asset)
	return &view, nil
}

func (s *AssetService) Delete(ctx context.Context, siteID, assetID string) error {
	asset, err := s.assets.GetByID(ctx, siteID, assetID)
	if err != nil {
		return err
	}
	thumbs, err := s.assets.ListThumbnails(ctx, asset.ID)
	if err != nil {
		return err
	}
	for i := range thumbs {
		if err := s.assets.Delete(ctx, thumbs[i].ID); err != nil && !appErr.IsNotFound(err) {
			return err
		}
		s.removeFile(ctx, thumbs[i].Key())
	}
	if err := s.assets.Delete(ctx, asset.ID); err != nil {
		return err
	}
	s.removeFile(ctx, asset.Key())
	if asset.IsThumbnail() {
		return s.refreshThumbnailsCount(ctx, asset.ParentID)
	}
	return nil
}

// RegenerateThumbnails rebuilds the derived images of a stored asset from
// its file. Existing thumbnails are replaced.
func (s *AssetService) RegenerateThumbnails(ctx context.Context, asset *model.Asset) (int, error) {
	if asset.IsThumbnail() || !s.isImage(asset.ContentType) || s.opts.Processor == nil {
		return 0, nil
	}
	rc, err := s.store.Open(ctx, asset.Key())
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", asset.Key(), err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", asset.Key(), err)
	}
	existing, err := s.assets.ListThumbnails(ctx, asset.ID)
	if err != nil {
		return 0, err
	}
	for i := range existing {
		if err := s.assets.Delete(ctx, existing[i].ID); err != nil && !appErr.IsNotFound(err) {
			return 0, err
		}
		s.removeFile(ctx, existing[i].Key())
	}
	count := s.generateThumbnails(ctx, asset, data)
	if err := s.onThumbnailsGenerated(ctx, asset, count); err != nil {
		return 0, err
	}
	return count, nil
}

// MissingThumbnails lists image assets that have no derived images yet.
func (s *AssetService) MissingThumbnails(ctx context.Context, limit uint) ([]model.Asset, error) {
	if s.opts.Processor == nil || len(s.opts.Thumbnails) == 0 {
		return nil, nil
	}
	return s.assets.ListMissingThumbnails(ctx, s.opts.Classifier.ImageTypes(), limit)
}

func (s *AssetService) generateThumbnails(ctx context.Context, parent *model.Asset, data []byte) int {
	if s.opts.Processor == nil || len(s.opts.Thumbnails) == 0 || !s.isImage(parent.ContentType) {
		return 0
	}
	logger := logutil.GetLogger(ctx).With(zap.String("asset_id", parent.ID), zap.String("key", parent.Key()))
	outputs, err := s.opts.Processor.Generate(ctx, data, parent.Filename, s.opts.Thumbnails)
	if err != nil {
		logger.Warn("generate thumbnails failed", zap.Error(err))
		return 0
	}
	count := 0
	for _, out := range outputs {
		thumb := &model.Asset{
			ID:          newID(),
			SiteID:      parent.SiteID,
			ParentID:    parent.ID,
			Thumbnail:   out.Label,
			Dir:         parent.Dir,
			Filename:    thumbnail.Filename(parent.Filename, out.Label),
			ContentType: parent.ContentType,
			Size:        int64(len(out.Data)),
			Width:       out.Width,
			Height:      out.Height,
			Ctime:       parent.Ctime,
			Mtime:       parent.Mtime,
		}
		exists, err := s.store.Exists(ctx, thumb.Key())
		if err != nil || exists {
			logger.Warn("skip thumbnail, target unavailable", zap.String("thumbnail", thumb.Key()), zap.Error(err))
			continue
		}
		if err := s.store.Save(ctx, thumb.Key(), bytes.NewReader(out.Data), thumb.Size); err != nil {
			logger.Warn("store thumbnail failed", zap.String("thumbnail", thumb.Key()), zap.Error(err))
			continue
		}
		if err := s.assets.Create(ctx, thumb); err != nil {
			logger.Warn("record thumbnail failed", zap.String("thumbnail", thumb.Key()), zap.Error(err))
			_ = s.store.Remove(ctx, thumb.Key())
			continue
		}
		if err := s.onThumbnailsGenerated(ctx, thumb, 0); err != nil {
			logger.Warn("finalize thumbnail failed", zap.String("thumbnail", thumb.Key()), zap.Error(err))
		}
		count++
	}
	return count
}

// onThumbnailsGenerated runs once a file and its derivatives are written.
// Only top level assets carry a thumbnails count.
func (s *AssetService) onThumbnailsGenerated(ctx context.Context, asset *model.Asset, count int) error {
	if err := s.store.Chmod(ctx, asset.Key(), assetFileMode); err != nil {
		return fmt.Errorf("chmod %s: %w", asset.Key(), err)
	}
	if asset.IsThumbnail() {
		return nil
	}
	if err := s.assets.UpdateThumbnailsCount(ctx, asset.ID, count); err != nil {
		return err
	}
	asset.ThumbnailsCount = count
	return nil
}

func (s *AssetService) refreshThumbnailsCount(ctx context.Context, parentID string) error {
	thumbs, err := s.assets.ListThumbnails(ctx, parentID)
	if err != nil {
		return err
	}
	return s.assets.UpdateThumbnailsCount(ctx, parentID, len(thumbs))
}

type rename struct {
	from  string
	to    string
	thumb *model.Asset
}

func (s *AssetService) renameFiles(ctx context.Context, asset *model.Asset, oldName string) ([]rename, error) {
	done := make([]rename, 0)
	primary := rename{from: asset.Dir + "/" + oldName, to: asset.Key()}
	if err := s.store.Rename(ctx, primary.from, primary.to); err != nil {
		return nil, appErr.NewValidationError("file", "could not be renamed")
	}
	done = append(done, primary)
	thumbs, err := s.assets.ListThumbnails(ctx, asset.ID)
	if err != nil {
		s.rollbackRenames(ctx, done)
		return nil, err
	}
	for i := range thumbs {
		thumb := thumbs[i]
		from := thumb.Key()
		thumb.Filename = thumbnail.Filename(asset.Filename, thumb.Thumbnail)
		thumb.Mtime = asset.Mtime
		if err := s.store.Rename(ctx, from, thumb.Key()); err != nil {
			s.rollbackRenames(ctx, done)
			return nil, appErr.NewValidationError("file", "could not be renamed")
		}
		done = append(done, rename{from: from, to: thumb.Key(), thumb: &thumb})
	}
	return done, nil
}

func (s *AssetService) rollbackRenames(ctx context.Context, renames []rename) {
	for i := len(renames) - 1; i >= 0; i-- {
		if err := s.store.Rename(ctx, renames[i].to, renames[i].from); err != nil {
			logutil.GetLogger(ctx).Error("rollback rename failed",
				zap.String("from", renames[i].to), zap.String("to", renames[i].from), zap.Error(err))
		}
	}
}

func (s *AssetService) removeFile(ctx context.Context, key string) {
	if err := s.store.Remove(ctx, key); err != nil {
		logutil.GetLogger(ctx).Warn("remove asset file failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *AssetService) isImage(contentType string) bool {
	return s.opts.Classifier.Is(assetkind.Image, contentType)
}

// contentType trusts the declared type unless it is missing or generic.
func (s *AssetService) contentType(declared string, data []byte) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if idx := strings.Index(declared, ";"); idx >= 0 {
		declared = strings.TrimSpace(declared[:idx])
	}
	if declared != "" && (declared != "application/octet-stream" || !s.opts.DetectOctets) {
		return declared
	}
	if len(data) == 0 {
		return declared
	}
	detected := mimetype.Detect(data).String()
	if idx := strings.Index(detected, ";"); idx >= 0 {
		detected = detected[:idx]
	}
	return detected
}
