package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"profile-service/models"
)

// FindProfileAvatar confirms the profile exists and returns its current avatar
// URL, which may be empty.
func FindProfileAvatar(ctx context.Context, wallet string) (string, error) {
	var avatar sql.NullString
	err := DB.QueryRowContext(ctx, "SELECT avatar FROM users WHERE wallet = $1", wallet).Scan(&avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", models.ErrNotFound
		}
		return "", fmt.Errorf("%w: lookup profile: %v", models.ErrPersistence, err)
	}
	return avatar.String, nil
}

// UpdateProfile applies the update in one statement and returns the stored row.
func UpdateProfile(ctx context.Context, wallet string, update models.ProfileUpdate) (models.Profile, error) {
	query, args, err := BuildProfileUpdate(wallet, update)
	if err != nil {
		return models.Profile{}, err
	}

	profile, err := scanProfile(DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Profile{}, models.ErrNotFound
		}
		return models.Profile{}, fmt.Errorf("%w: update profile: %v", models.ErrPersistence, err)
	}
	return profile, nil
}

func scanProfile(row *sql.Row) (models.Profile, error) {
	var (
		profile                                 models.Profile
		username, email, avatar, bio, streamKey sql.NullString
		socialLinks                             []byte
	)
	err := row.Scan(
		&profile.Wallet,
		&username,
		&email,
		&avatar,
		&bio,
		&streamKey,
		&socialLinks,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return models.Profile{}, err
	}

	profile.Username = username.String
	profile.Email = email.String
	profile.Avatar = avatar.String
	profile.Bio = bio.String
	profile.StreamKey = streamKey.String
	profile.SocialLinks = []models.SocialLink{}
	if len(socialLinks) > 0 {
		if err := json.Unmarshal(socialLinks, &profile.SocialLinks); err != nil {
			return models.Profile{}, fmt.Errorf("decode social_links: %w", err)
		}
	}
	return profile, nil
}
