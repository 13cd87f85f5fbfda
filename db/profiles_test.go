package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"profile-service/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func setupMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	original := DB
	DB = mockDB
	t.Cleanup(func() {
		DB = original
		mockDB.Close()
	})
	return mock
}

func profileRowColumns() []string {
	return []string{"wallet", "username", "email", "avatar", "bio", "stream_key", "social_links", "created_at", "updated_at"}
}

func TestFindProfileAvatar(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT avatar FROM users WHERE wallet = \$1`).
		WithArgs("0xabc").
		WillReturnRows(sqlmock.NewRows([]string{"avatar"}).AddRow("https://img/old.png"))

	avatar, err := FindProfileAvatar(context.Background(), "0xabc")
	assert.NoError(t, err)
	assert.Equal(t, "https://img/old.png", avatar)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindProfileAvatarNullAvatar(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT avatar FROM users`).
		WithArgs("0xabc").
		WillReturnRows(sqlmock.NewRows([]string{"avatar"}).AddRow(nil))

	avatar, err := FindProfileAvatar(context.Background(), "0xabc")
	assert.NoError(t, err)
	assert.Empty(t, avatar)
}

func TestFindProfileAvatarNotFound(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT avatar FROM users`).
		WithArgs("0xmissing").
		WillReturnRows(sqlmock.NewRows([]string{"avatar"}))

	_, err := FindProfileAvatar(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFindProfileAvatarQueryError(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT avatar FROM users`).
		WithArgs("0xabc").
		WillReturnError(errors.New("connection reset"))

	_, err := FindProfileAvatar(context.Background(), "0xabc")
	assert.ErrorIs(t, err, models.ErrPersistence)
	assert.NotErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	mock := setupMockDB(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET username = $1, bio = $2, updated_at = NOW() WHERE wallet = $3 RETURNING")).
		WithArgs("nova", "hi", "0xabc").
		WillReturnRows(sqlmock.NewRows(profileRowColumns()).
			AddRow("0xabc", "nova", nil, nil, "hi", nil, []byte(`[{"title":"x","url":"https://x.com/nova"}]`), now, now))

	profile, err := UpdateProfile(context.Background(), "0xabc", models.ProfileUpdate{
		models.FieldUsername: "nova",
		models.FieldBio:      "hi",
	})
	assert.NoError(t, err)
	assert.Equal(t, "0xabc", profile.Wallet)
	assert.Equal(t, "nova", profile.Username)
	assert.Equal(t, "hi", profile.Bio)
	assert.Empty(t, profile.Email)
	assert.Equal(t, []models.SocialLink{{Title: "x", URL: "https://x.com/nova"}}, profile.SocialLinks)
	assert.Equal(t, now, profile.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileNullSocialLinks(t *testing.T) {
	mock := setupMockDB(t)
	now := time.Now()
	mock.ExpectQuery(`UPDATE users SET email = \$1`).
		WithArgs("nova@example.com", "0xabc").
		WillReturnRows(sqlmock.NewRows(profileRowColumns()).
			AddRow("0xabc", nil, "nova@example.com", nil, nil, nil, nil, now, now))

	profile, err := UpdateProfile(context.Background(), "0xabc", models.ProfileUpdate{models.FieldEmail: "nova@example.com"})
	assert.NoError(t, err)
	assert.Equal(t, []models.SocialLink{}, profile.SocialLinks)
}

func TestUpdateProfileNoFieldsSkipsDatabase(t *testing.T) {
	mock := setupMockDB(t)

	_, err := UpdateProfile(context.Background(), "0xabc", models.ProfileUpdate{})
	assert.ErrorIs(t, err, models.ErrNoFieldsProvided)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileRowVanished(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`UPDATE users`).
		WithArgs("b", "0xabc").
		WillReturnRows(sqlmock.NewRows(profileRowColumns()))

	_, err := UpdateProfile(context.Background(), "0xabc", models.ProfileUpdate{models.FieldBio: "b"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateProfileBackendError(t *testing.T) {
	mock := setupMockDB(t)
	mock.ExpectQuery(`UPDATE users`).
		WithArgs("b", "0xabc").
		WillReturnError(errors.New("deadlock detected"))

	_, err := UpdateProfile(context.Background(), "0xabc", models.ProfileUpdate{models.FieldBio: "b"})
	assert.ErrorIs(t, err, models.ErrPersistence)
}
