package repositories

import (
	"testing"

	"chat-relay/domain/chat"
	"chat-relay/errors"

	"github.com/stretchr/testify/require"
)

func Test_User_Store_And_Get(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	user := DiskUser{
		ID:           "user-1",
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$...",
	}
	req.NoError(repository.StoreUser(user))

	fetched, err := repository.GetUser("user-1")
	req.NoError(err)
	req.Equal(user, fetched)
}

func Test_User_Not_Found(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	_, err := repository.GetUser("ghost")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func Test_User_Email_Lookup_Is_Case_Insensitive(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewUserRepository(db)

	req.NoError(repository.StoreUser(DiskUser{
		ID: "user-1", Name: "Alice", Email: "Alice@Example.com", PasswordHash: "h",
	}))

	fetched, found, err := repository.GetByEmail("alice@example.com")
	req.NoError(err)
	req.True(found)
	req.Equal(chat.Principal("user-1"), fetched.ID)

	_, found, err = repository.GetByEmail("nobody@example.com")
	req.NoError(err)
	req.False(found)
}
