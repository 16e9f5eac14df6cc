//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"fmt"
	"strings"

	"chat-relay/domain/chat"
	"chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

type IUserRepository interface {
	StoreUser(u DiskUser) error
	GetUser(id chat.Principal) (DiskUser, error)
	GetByEmail(email string) (DiskUser, bool, error)
}

type DiskUser struct {
	ID           chat.Principal `cbor:"1,keyasint"`
	Name         string         `cbor:"2,keyasint"`
	Email        string         `cbor:"3,keyasint"`
	PasswordHash string         `cbor:"4,keyasint"`
	AvatarURL    string         `cbor:"5,keyasint,omitempty"`
}

// UserRepository stores user records under "user:{id}" with an email
// lookup index under "email:{address}".
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

func userKey(id chat.Principal) []byte {
	return []byte(fmt.Sprintf("user:%s", id))
}

func emailKey(email string) []byte {
	return []byte(fmt.Sprintf("email:%s", strings.ToLower(email)))
}

func (r UserRepository) StoreUser(u DiskUser) error {
	bytes, err := cbor.Marshal(u)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(userKey(u.ID), bytes); err != nil {
			return err
		}
		return txn.Set(emailKey(u.Email), []byte(u.ID))
	})
}

func (r UserRepository) GetUser(id chat.Principal) (DiskUser, error) {
	var u DiskUser
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return cbor.Unmarshal(value, &u)
		})
	})
	if err == badger.ErrKeyNotFound {
		return DiskUser{}, errors.ErrUserNotFound
	}
	return u, err
}

func (r UserRepository) GetByEmail(email string) (DiskUser, bool, error) {
	var id chat.Principal
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			id = chat.Principal(value)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return DiskUser{}, false, nil
	}
	if err != nil {
		return DiskUser{}, false, err
	}
	u, err := r.GetUser(id)
	if err != nil {
		return DiskUser{}, false, err
	}
	return u, true, nil
}

func ToUser(d DiskUser) chat.User {
	return chat.User{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		AvatarURL: d.AvatarURL,
	}
}
