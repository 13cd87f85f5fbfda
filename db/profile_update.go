package db

import (
	"encoding/json"
	"fmt"
	"strings"

	"profile-service/models"
)

const profileColumns = "wallet, username, email, avatar, bio, stream_key, social_links, created_at, updated_at"

type updateColumn struct {
	field  models.ProfileField
	column string
	encode func(value interface{}) (interface{}, error)
}

// profileUpdateColumns is the only source of column names that may appear in
// an UPDATE statement. Its order fixes the order of the SET clauses.
var profileUpdateColumns = []updateColumn{
	{field: models.FieldUsername, column: "username", encode: encodeText},
	{field: models.FieldEmail, column: "email", encode: encodeText},
	{field: models.FieldAvatar, column: "avatar", encode: encodeText},
	{field: models.FieldBio, column: "bio", encode: encodeText},
	{field: models.FieldStreamKey, column: "stream_key", encode: encodeText},
	{field: models.FieldSocialLinks, column: "social_links", encode: encodeSocialLinks},
}

// BuildProfileUpdate turns a sparse ProfileUpdate into a single UPDATE
// statement for the given wallet. Unknown fields are ignored; updated_at is
// always refreshed.
func BuildProfileUpdate(wallet string, update models.ProfileUpdate) (string, []interface{}, error) {
	clauses := make([]string, 0, len(profileUpdateColumns)+1)
	args := make([]interface{}, 0, len(profileUpdateColumns)+1)

	for _, col := range profileUpdateColumns {
		value, ok := update[col.field]
		if !ok {
			continue
		}
		encoded, err := col.encode(value)
		if err != nil {
			return "", nil, fmt.Errorf("encode %s: %w", col.field, err)
		}
		args = append(args, encoded)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col.column, len(args)))
	}

	if len(clauses) == 0 {
		return "", nil, models.ErrNoFieldsProvided
	}

	clauses = append(clauses, "updated_at = NOW()")
	args = append(args, wallet)

	query := fmt.Sprintf("UPDATE users SET %s WHERE wallet = $%d RETURNING %s",
		strings.Join(clauses, ", "), len(args), profileColumns)
	return query, args, nil
}

func encodeText(value interface{}) (interface{}, error) {
	text, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", value)
	}
	return text, nil
}

// encodeSocialLinks binds the links as JSON text; a nil slice becomes "[]".
func encodeSocialLinks(value interface{}) (interface{}, error) {
	links, ok := value.([]models.SocialLink)
	if !ok {
		return nil, fmt.Errorf("expected []SocialLink, got %T", value)
	}
	if links == nil {
		links = []models.SocialLink{}
	}
	encoded, err := json.Marshal(links)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}
