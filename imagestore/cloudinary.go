// Package imagestore uploads profile images to Cloudinary and removes them
// again, either by public ID or by the delivery URL Cloudinary handed out.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"path"
	"strings"

	"profile-service/config"
	"profile-service/models"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "profile-service/imagestore"
	resourceTypeImage   = "image"
	uploadMarker        = "upload"
)

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

var (
	newCloudinary = cloudinary.NewFromParams
	newPublicID   = uuid.NewString
)

// Store is what the profile handler needs from an image host.
type Store interface {
	Upload(ctx context.Context, file io.Reader) (models.UploadedAsset, error)
	Delete(ctx context.Context, assetURL string) error
	DeleteByPublicID(ctx context.Context, publicID string) error
}

type CloudinaryStore struct {
	api    uploadAPI
	folder string
	tracer trace.Tracer
	ops    metric.Int64Counter
}

func NewCloudinaryStore(cfg config.CloudinaryConfig) (*CloudinaryStore, error) {
	cld, err := newCloudinary(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	return newStore(&cld.Upload, cfg.Folder), nil
}

func newStore(api uploadAPI, folder string) *CloudinaryStore {
	ops, err := otel.Meter(instrumentationName).Int64Counter(
		"imagestore.operations",
		metric.WithDescription("Image store calls by operation and outcome"),
	)
	if err != nil {
		log.Printf("imagestore: metrics disabled: %v", err)
		ops, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("imagestore.operations")
	}

	return &CloudinaryStore{
		api:    api,
		folder: folder,
		tracer: otel.Tracer(instrumentationName),
		ops:    ops,
	}
}

// Upload stores the image under the configured folder. The public ID is chosen
// here so the caller always learns the native identifier with the URL.
func (s *CloudinaryStore) Upload(ctx context.Context, file io.Reader) (models.UploadedAsset, error) {
	ctx, span := s.tracer.Start(ctx, "imagestore.Upload")
	defer span.End()

	result, err := s.api.Upload(ctx, file, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     newPublicID(),
		ResourceType: resourceTypeImage,
	})
	switch {
	case err != nil:
	case result == nil:
		err = errors.New("empty upload response")
	case result.Error.Message != "":
		err = errors.New(result.Error.Message)
	case result.SecureURL == "":
		err = errors.New("upload response has no secure_url")
	}
	if err != nil {
		s.observe(ctx, span, "upload", err)
		return models.UploadedAsset{}, fmt.Errorf("%w: %v", models.ErrUploadFailed, err)
	}

	asset := models.UploadedAsset{URL: result.SecureURL, PublicID: result.PublicID}
	if asset.PublicID == "" {
		if asset.PublicID, err = PublicIDFromURL(asset.URL); err != nil {
			s.observe(ctx, span, "upload", err)
			return models.UploadedAsset{}, fmt.Errorf("%w: %v", models.ErrUploadFailed, err)
		}
	}

	span.SetAttributes(attribute.String("imagestore.public_id", asset.PublicID))
	s.observe(ctx, span, "upload", nil)
	return asset, nil
}

// Delete removes the asset behind a delivery URL.
func (s *CloudinaryStore) Delete(ctx context.Context, assetURL string) error {
	publicID, err := PublicIDFromURL(assetURL)
	if err != nil {
		return err
	}
	return s.DeleteByPublicID(ctx, publicID)
}

// DeleteByPublicID destroys an asset. An asset that is already gone counts as
// deleted.
func (s *CloudinaryStore) DeleteByPublicID(ctx context.Context, publicID string) error {
	ctx, span := s.tracer.Start(ctx, "imagestore.Delete",
		trace.WithAttributes(attribute.String("imagestore.public_id", publicID)))
	defer span.End()

	result, err := s.api.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceTypeImage,
	})
	switch {
	case err != nil:
	case result == nil:
		err = errors.New("empty destroy response")
	case result.Error.Message != "":
		err = errors.New(result.Error.Message)
	case result.Result != "ok" && result.Result != "not found":
		err = fmt.Errorf("unexpected destroy result %q", result.Result)
	}
	if err != nil {
		s.observe(ctx, span, "delete", err)
		return fmt.Errorf("%w: %s: %v", models.ErrDeleteFailed, publicID, err)
	}

	s.observe(ctx, span, "delete", nil)
	return nil
}

func (s *CloudinaryStore) observe(ctx context.Context, span trace.Span, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// PublicIDFromURL recovers the public ID from a Cloudinary delivery URL of the
// form .../upload/<version>/<public id>.<ext>. The segment after "upload" is
// always treated as the version and skipped.
func PublicIDFromURL(assetURL string) (string, error) {
	parsed, err := url.Parse(assetURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidReference, err)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if segment != uploadMarker {
			continue
		}

		idPath := segments[i+1:]
		if len(idPath) < 2 {
			return "", fmt.Errorf("%w: %q has no asset path after the version", models.ErrInvalidReference, assetURL)
		}
		idPath = append([]string(nil), idPath[1:]...)

		last := idPath[len(idPath)-1]
		idPath[len(idPath)-1] = strings.TrimSuffix(last, path.Ext(last))
		for _, part := range idPath {
			if part == "" {
				return "", fmt.Errorf("%w: %q has an empty path segment", models.ErrInvalidReference, assetURL)
			}
		}
		return strings.Join(idPath, "/"), nil
	}

	return "", fmt.Errorf("%w: %q has no %q segment", models.ErrInvalidReference, assetURL, uploadMarker)
}
