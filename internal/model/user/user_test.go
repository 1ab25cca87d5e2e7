package user_test

import (
	"encoding/json"
	"testing"

	"records-service/internal/model/user"

	"github.com/stretchr/testify/assert"
)

func TestUserModel(t *testing.T) {
	t.Run("User struct fields", func(t *testing.T) {
		user := user.User{
			ID:           1,
			Username:     "testuser",
			Email:        "test@example.com",
			PasswordHash: "hashedpassword",
		}

		assert.Equal(t, uint32(1), user.ID)
		assert.Equal(t, "testuser", user.Username)
		assert.Equal(t, "test@example.com", user.Email)
		assert.Equal(t, "hashedpassword", user.PasswordHash)
	})

	t.Run("password hash never serialized", func(t *testing.T) {
		u := user.User{ID: 2, Email: "a@b.c", PasswordHash: "secret"}
		data, err := json.Marshal(u)
		assert.NoError(t, err)
		assert.NotContains(t, string(data), "secret")
	})
}
