package models

// UploadedAsset is an image held by the remote store.
type UploadedAsset struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}
