package paseto

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/o1egl/paseto"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"attendance-tracker/models"
)

var (
	pasetoInstance = paseto.NewV2()
	symmetricKey   []byte
)

// Init decodes the base64 URL-encoded symmetric key. Must be called once
// at startup before tokens are issued or validated.
func Init(secretBase64 string) error {
	decodedKey, err := base64.URLEncoding.DecodeString(secretBase64)
	if err != nil {
		return fmt.Errorf("failed to decode PASETO secret: %w", err)
	}
	if len(decodedKey) != 32 {
		return fmt.Errorf("PASETO secret must be exactly 32 bytes after decoding, got %d", len(decodedKey))
	}
	symmetricKey = decodedKey
	return nil
}

func GenerateToken(user *models.User) (string, error) {
	now := time.Now()

	token := paseto.JSONToken{
		IssuedAt:   now,
		Expiration: now.Add(24 * time.Hour),
		NotBefore:  now,
	}

	token.Set("user_id", user.ID.Hex())
	token.Set("email", user.Email)
	token.Set("role", user.Role)

	return pasetoInstance.Encrypt(symmetricKey, token, "")
}

func ValidateToken(tokenString string) (*models.Claims, error) {
	var token paseto.JSONToken
	var footer string

	if err := pasetoInstance.Decrypt(tokenString, symmetricKey, &token, &footer); err != nil {
		return nil, fmt.Errorf("failed to decrypt paseto token: %w", err)
	}

	if err := token.Validate(); err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	userID, err := primitive.ObjectIDFromHex(token.Get("user_id"))
	if err != nil {
		return nil, fmt.Errorf("invalid user_id claim: %w", err)
	}

	return &models.Claims{
		UserID: userID,
		Email:  token.Get("email"),
		Role:   token.Get("role"),
	}, nil
}
