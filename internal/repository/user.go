package repository

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"studyzone/internal/models"
	"studyzone/internal/qerrors"
)

// GetUserByEmail retrieves the user record whose document ID is email.
func (fr *FirebaseRepository) GetUserByEmail(ctx context.Context, email string) (*models.UserRecord, error) {
	if err := validateID(email); err != nil {
		return nil, qerrors.UserNotFoundError
	}

	doc, err := fr.firestoreClient.Collection(models.FirestoreUsersCollection).Doc(email).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, qerrors.UserNotFoundError
	}
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	return decodeUser(doc.Ref.ID, doc.Data())
}

func (fr *FirebaseRepository) CreateUser(ctx context.Context, u *models.UserRecord) error {
	if err := validateID(u.Email); err != nil {
		return qerrors.Validation(err)
	}

	data := map[string]interface{}{
		"email":     u.Email,
		"name":      u.Name,
		"password":  u.Password,
		"isAdmin":   u.IsAdmin,
		"createdAt": u.CreatedAt,
	}
	if !u.DateOfBirth.IsZero() {
		data["dateOfBirth"] = u.DateOfBirth
	}

	_, err := fr.firestoreClient.Collection(models.FirestoreUsersCollection).Doc(u.Email).Create(ctx, data)
	if status.Code(err) == codes.AlreadyExists {
		return qerrors.EmailExistsError
	}
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

// Helpers

func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("id must be a non-empty string")
	}
	if len(id) > 1500 {
		return fmt.Errorf("id string must not be longer than 1500 bytes")
	}
	if strings.Contains(id, "/") {
		return fmt.Errorf("id must not contain '/'")
	}
	return nil
}
