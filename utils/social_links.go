package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"profile-service/models"
)

// ParseSocialLinks decodes the socialLinks form value. Anything that is not a
// JSON array of {title, url} objects is rejected.
func ParseSocialLinks(raw string) ([]models.SocialLink, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, fmt.Errorf("%w: expected a JSON array", models.ErrInvalidSocialLinks)
	}

	links := []models.SocialLink{}
	if err := json.Unmarshal([]byte(trimmed), &links); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidSocialLinks, err)
	}
	return links, nil
}
