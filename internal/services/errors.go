package services

import (
	"errors"

	"github.com/kurumsal-tedarikci/api/internal/repositories"
)

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isRepoConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// redactUser strips the credential digest before a user leaves the service layer.
func redactUser(u User) User {
	u.PasswordHash = ""
	return u
}
