package product

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/catalog/service/internal/apperror"
	"github.com/catalog/service/internal/storage"
	"github.com/catalog/service/internal/validation"
)

// DefaultMaxImageBytes is the upload ceiling when Options.MaxImageBytes is zero.
const DefaultMaxImageBytes = 5 << 20

var declaredImageType = regexp.MustCompile(`^image/(jpeg|jpg|png|gif|webp)$`)

var sniffedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// maxPrice is the largest value the NUMERIC(12,2) price column holds.
var maxPrice = decimal.New(999999999999, -2)

// Store is the persistence surface of the catalog workflow.
type Store interface {
	FindMany(ctx context.Context, c Criteria, offset, limit int) ([]Product, error)
	Count(ctx context.Context, c Criteria) (int, error)
	FindByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, np NewProduct) (*Product, error)
	Update(ctx context.Context, id string, ch Changes) (*Product, error)
	Delete(ctx context.Context, id string) (*Product, error)
}

// CategoryChecker reports whether a category exists.
type CategoryChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Options tunes a Service. Zero values select defaults.
type Options struct {
	MaxImageBytes int64
	Now           func() time.Time
}

// Service is the catalog workflow. It keeps each product's picture pointing at its one live
// stored image, or nil.
type Service struct {
	store      Store
	categories CategoryChecker
	blobs      storage.Storage
	validate   *validation.Validator
	maxImage   int64
	now        func() time.Time
	log        logrus.FieldLogger
}

// NewService wires the workflow to its providers.
func NewService(store Store, categories CategoryChecker, blobs storage.Storage, validate *validation.Validator, opts Options, log logrus.FieldLogger) *Service {
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:      store,
		categories: categories,
		blobs:      blobs,
		validate:   validate,
		maxImage:   opts.MaxImageBytes,
		now:        opts.Now,
		log:        log.WithField("component", "product"),
	}
}

// MaxImageBytes is the largest accepted image.
func (s *Service) MaxImageBytes() int64 {
	return s.maxImage
}

// Create validates in, uploads file if present, and inserts the product.
//
// The category reference is checked before uploading so an unknown category never leaves a
// blob behind; if the insert still fails, the fresh blob is deleted.
func (s *Service) Create(ctx context.Context, in CreateInput, file *File) (*Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if err := checkPrice(in.Price); err != nil {
		return nil, err
	}
	contentType, err := s.checkFile(file)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	np := NewProduct{
		Name:        in.Name,
		Description: nonEmpty(in.Description),
		Price:       in.Price,
		CategoryID:  in.CategoryID,
	}
	var key string
	if file != nil {
		var url string
		key, url, err = s.upload(ctx, file, contentType)
		if err != nil {
			return nil, err
		}
		np.Picture = &url
	}

	p, err := s.store.Create(ctx, np)
	if err != nil {
		if key != "" {
			s.discard(ctx, key, "product insert failed")
		}
		return nil, classify(err)
	}
	s.log.WithFields(logrus.Fields{"product_id": p.ID, "has_picture": p.Picture != nil}).Info("product created")
	return p, nil
}

// List validates f and returns one page of matching products, newest first.
// The page query and the count query run concurrently.
func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	crit, page, limit, err := s.normalize(f)
	if err != nil {
		return nil, err
	}

	var (
		products []Product
		total    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.store.FindMany(gctx, crit, (page-1)*limit, limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, crit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, classify(err)
	}

	if products == nil {
		products = []Product{}
	}
	return &Page{
		Products: products,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// Get returns one product with its category.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperror.NotFound("product with ID %s not found", id)
	}
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return p, nil
}

// Update applies in and, when file is present, replaces the product's image. An empty
// description clears it.
//
// The new image is uploaded and persisted before the old one is deleted, so a failed upload
// or write never leaves the product pointing at a missing blob. Deleting the old blob is
// best-effort.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput, file *File) (*Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Price != nil {
		if err := checkPrice(*in.Price); err != nil {
			return nil, err
		}
	}
	contentType, err := s.checkFile(file)
	if err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.CategoryID != nil && *in.CategoryID != existing.CategoryID {
		if err := s.ensureCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
	}

	ch := Changes{
		Name:             in.Name,
		Description:      nonEmpty(in.Description),
		ClearDescription: in.Description != nil && *in.Description == "",
		Price:            in.Price,
		CategoryID:       in.CategoryID,
	}
	var key string
	if file != nil {
		var url string
		key, url, err = s.upload(ctx, file, contentType)
		if err != nil {
			return nil, err
		}
		ch.Picture = &url
	}

	p, err := s.store.Update(ctx, id, ch)
	if err != nil {
		if key != "" {
			s.discard(ctx, key, "product update failed")
		}
		return nil, classify(err)
	}

	if file != nil && existing.Picture != nil && *existing.Picture != *p.Picture {
		s.release(ctx, *existing.Picture)
	}
	s.log.WithFields(logrus.Fields{"product_id": id, "picture_replaced": file != nil}).Info("product updated")
	return p, nil
}

// Delete removes the product row, then releases its image. A storage failure is logged and
// does not undo or block the row deletion.
func (s *Service) Delete(ctx context.Context, id string) (*Product, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	p, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	if p.Picture != nil {
		s.release(ctx, *p.Picture)
	}
	s.log.WithField("product_id", id).Info("product deleted")
	return p, nil
}

// normalize validates f before any store access and applies defaults.
func (s *Service) normalize(f Filter) (Criteria, int, int, error) {
	page, limit := defaultPage, defaultLimit
	if f.Page != nil {
		if *f.Page < 1 {
			return Criteria{}, 0, 0, apperror.Validation("page must be greater than or equal to 1")
		}
		page = *f.Page
	}
	if f.Limit != nil {
		if *f.Limit < 1 || *f.Limit > maxLimit {
			return Criteria{}, 0, 0, apperror.Validation("limit must be between 1 and %d", maxLimit)
		}
		limit = *f.Limit
	}
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return Criteria{}, 0, 0, apperror.Validation("minPrice must be greater than or equal to 0")
	}
	if f.MaxPrice != nil && f.MaxPrice.IsNegative() {
		return Criteria{}, 0, 0, apperror.Validation("maxPrice must be greater than or equal to 0")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return Criteria{}, 0, 0, apperror.Validation("minPrice must be less than or equal to maxPrice")
	}
	if f.CategoryID != nil {
		if _, err := uuid.Parse(*f.CategoryID); err != nil {
			return Criteria{}, 0, 0, apperror.Validation("categoryId must be a UUID")
		}
	}
	return Criteria{CategoryID: f.CategoryID, MinPrice: f.MinPrice, MaxPrice: f.MaxPrice}, page, limit, nil
}

// checkPrice rejects prices the price column would round or overflow.
func checkPrice(p decimal.Decimal) error {
	if !p.Equal(p.Truncate(2)) {
		return apperror.Validation("price must have at most 2 decimal places")
	}
	if p.GreaterThan(maxPrice) {
		return apperror.Validation("price must be at most %s", maxPrice.StringFixed(2))
	}
	return nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// checkFile enforces the size ceiling, the declared image type, and that the content really
// is one of the accepted image formats. It returns the detected content type.
func (s *Service) checkFile(file *File) (string, error) {
	if file == nil {
		return "", nil
	}
	if file.Size > s.maxImage {
		return "", apperror.Validation("picture must be at most %d bytes", s.maxImage)
	}
	if !declaredImageType.MatchString(file.ContentType) {
		return "", apperror.Validation("picture must be a jpeg, png, gif or webp image")
	}

	mt, err := mimetype.DetectReader(file.Reader)
	if err != nil {
		return "", apperror.Validation("picture could not be read")
	}
	if _, err := file.Reader.Seek(0, io.SeekStart); err != nil {
		return "", apperror.Internal(fmt.Errorf("rewind upload: %w", err))
	}
	if !mimetype.EqualsAny(mt.String(), sniffedImageTypes...) {
		return "", apperror.Validation("picture content is %s, not an accepted image", mt.String())
	}
	return mt.String(), nil
}

func (s *Service) ensureCategory(ctx context.Context, id string) error {
	ok, err := s.categories.Exists(ctx, id)
	if err != nil {
		return classify(err)
	}
	if !ok {
		return apperror.InvalidReference("category with ID %s does not exist", id)
	}
	return nil
}

// upload stores file under a fresh storage.ObjectName key and returns key and public URL.
func (s *Service) upload(ctx context.Context, file *File, contentType string) (string, string, error) {
	key := storage.ObjectName(s.now(), file.Filename)
	if err := s.blobs.Upload(ctx, key, file.Reader, file.Size, contentType); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("image upload failed")
		return "", "", apperror.Upload(err)
	}
	return key, s.blobs.PublicURL(key), nil
}

// release deletes the blob behind a picture URL, best-effort.
func (s *Service) release(ctx context.Context, pictureURL string) {
	key, ok := s.blobs.ObjectKey(pictureURL)
	if !ok {
		s.log.WithField("picture", pictureURL).Warn("picture is not in the image bucket; skipping delete")
		return
	}
	s.discard(ctx, key, "image superseded")
}

// discard deletes key, best-effort. It runs even if the request context is already done.
func (s *Service) discard(ctx context.Context, key, reason string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"key": key, "reason": reason}).Warn("failed to delete stored image")
	}
}

func classify(err error) error {
	return apperror.FromPg(err, "product")
}
