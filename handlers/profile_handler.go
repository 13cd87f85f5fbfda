package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"

	"profile-service/config"
	"profile-service/db"
	"profile-service/imagestore"
	"profile-service/middleware"
	"profile-service/models"
	"profile-service/store"
	"profile-service/utils"
)

type JSONResponse map[string]interface{}

const avatarFormField = "avatar"

// scalarFormFields are copied verbatim whenever the form carries the key.
var scalarFormFields = []models.ProfileField{
	models.FieldUsername,
	models.FieldEmail,
	models.FieldBio,
	models.FieldStreamKey,
}

type ProfileHandler struct {
	cfg     config.Config
	images  imagestore.Store
	orphans store.OrphanLedger
}

// NewProfileHandler wires the handler. orphans may be nil, in which case
// assets that cannot be cleaned up are only logged.
func NewProfileHandler(cfg config.Config, images imagestore.Store, orphans store.OrphanLedger) *ProfileHandler {
	return &ProfileHandler{cfg: cfg, images: images, orphans: orphans}
}

func (h *ProfileHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPut && r.Method != http.MethodPatch {
		return middleware.NewAppError(http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	if h.cfg.Upload.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Upload.MaxBytes)
	}
	if err := parseProfileForm(r, h.cfg.Upload.MaxMemory); err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid form data", fmt.Errorf("%w: %v", models.ErrMalformedRequest, err))
	}
	if r.MultipartForm != nil {
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				log.Printf("Error removing temporary upload files: %v", err)
			}
		}()
	}

	wallet, err := middleware.WalletFromRequest(r)
	if err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Wallet address is required", err)
	}

	previousAvatar, err := db.FindProfileAvatar(ctx, wallet)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return middleware.NewAppError(http.StatusNotFound, "User not found", err)
		}
		log.Printf("Error checking profile: wallet=%s err=%v", wallet, err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	update, err := profileUpdateFromForm(r.PostForm)
	if err != nil {
		return middleware.NewAppError(http.StatusBadRequest, "Invalid socialLinks format", err)
	}

	var uploaded *models.UploadedAsset
	if header := avatarFile(r.MultipartForm); header != nil {
		asset, err := h.uploadAvatar(ctx, header)
		if err != nil {
			log.Printf("Error uploading avatar: wallet=%s err=%v", wallet, err)
			return middleware.NewAppError(http.StatusInternalServerError, "Failed to upload avatar", err)
		}
		update[models.FieldAvatar] = asset.URL
		uploaded = &asset
	}

	if len(update) == 0 {
		return middleware.NewAppError(http.StatusBadRequest, "No fields to update", models.ErrNoFieldsProvided)
	}

	profile, err := db.UpdateProfile(ctx, wallet, update)
	if err != nil {
		if uploaded != nil {
			h.discardUpload(ctx, *uploaded, err)
		}
		if errors.Is(err, models.ErrNotFound) {
			return middleware.NewAppError(http.StatusNotFound, "User not found", err)
		}
		log.Printf("Error updating profile: wallet=%s err=%v", wallet, err)
		return middleware.NewAppError(http.StatusInternalServerError, "Failed to update profile", err)
	}

	if uploaded != nil && previousAvatar != "" && previousAvatar != uploaded.URL {
		h.removeReplacedAvatar(ctx, wallet, previousAvatar)
	}

	json.NewEncoder(w).Encode(JSONResponse{
		"message": "Profile updated successfully",
		"user":    profile,
	})
	return nil
}

func parseProfileForm(r *http.Request, maxMemory int64) error {
	err := r.ParseMultipartForm(maxMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

func profileUpdateFromForm(form url.Values) (models.ProfileUpdate, error) {
	update := models.ProfileUpdate{}
	for _, field := range scalarFormFields {
		if values, ok := form[string(field)]; ok && len(values) > 0 {
			update[field] = values[0]
		}
	}

	if values, ok := form[string(models.FieldSocialLinks)]; ok && len(values) > 0 {
		links, err := utils.ParseSocialLinks(values[0])
		if err != nil {
			return nil, err
		}
		update[models.FieldSocialLinks] = links
	}
	return update, nil
}

func avatarFile(form *multipart.Form) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	if headers := form.File[avatarFormField]; len(headers) > 0 {
		return headers[0]
	}
	return nil
}

func (h *ProfileHandler) uploadAvatar(ctx context.Context, header *multipart.FileHeader) (models.UploadedAsset, error) {
	file, err := header.Open()
	if err != nil {
		return models.UploadedAsset{}, fmt.Errorf("%w: open avatar: %v", models.ErrUploadFailed, err)
	}
	defer file.Close()

	return h.images.Upload(ctx, file)
}

// discardUpload removes an avatar that was uploaded for an update that never
// landed. If the image store refuses, the asset goes to the orphan ledger.
func (h *ProfileHandler) discardUpload(ctx context.Context, asset models.UploadedAsset, cause error) {
	ctx = context.WithoutCancel(ctx)
	err := h.images.DeleteByPublicID(ctx, asset.PublicID)
	if err == nil {
		return
	}
	log.Printf("Error discarding uploaded avatar: public_id=%s err=%v", asset.PublicID, err)

	if h.orphans == nil {
		log.Printf("Orphaned avatar left in image store: public_id=%s url=%s", asset.PublicID, asset.URL)
		return
	}
	reason := fmt.Sprintf("profile update failed: %v", cause)
	if err := h.orphans.Record(ctx, asset, reason); err != nil {
		log.Printf("Error recording orphaned avatar: public_id=%s url=%s err=%v", asset.PublicID, asset.URL, err)
	}
}

func (h *ProfileHandler) removeReplacedAvatar(ctx context.Context, wallet, avatarURL string) {
	if err := h.images.Delete(context.WithoutCancel(ctx), avatarURL); err != nil {
		log.Printf("Error removing replaced avatar: wallet=%s url=%s err=%v", wallet, avatarURL, err)
	}
}
