package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/transferpro-backend/internal/auth"
)

// currentUser returns the authenticated caller.
func currentUser(r *http.Request) (uuid.UUID, *AppError) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, ErrMissingToken
	}
	return userID, nil
}

// ownedPathID parses the {id} path value. Ownership of the resource is
// enforced by the service, which reports another user's record as not found.
func ownedPathID(r *http.Request, notFound *AppError) (userID, id uuid.UUID, appErr *AppError) {
	userID, appErr = currentUser(r)
	if appErr != nil {
		return uuid.Nil, uuid.Nil, appErr
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, notFound
	}
	return userID, id, nil
}
