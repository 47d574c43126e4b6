package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Credential binds a principal handle to a secret for token issuance. The
// secret itself is never stored, only its bcrypt hash.
type Credential struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Principal  Principal          `bson:"principal" json:"principal"`
	SecretHash string             `bson:"secret_hash" json:"-"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// RegisterRequest creates a new principal credential.
type RegisterRequest struct {
	Principal Principal `json:"principal"`
	Secret    string    `json:"secret"`
}

// TokenRequest exchanges a principal credential for a bearer token.
type TokenRequest struct {
	Principal Principal `json:"principal"`
	Secret    string    `json:"secret"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	Principal Principal `json:"principal"`
}
