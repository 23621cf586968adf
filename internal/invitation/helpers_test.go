package invitation

import (
	"time"

	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/repository"
)

func statusChange(status models.ProjectStatus, at time.Time) repository.StatusChange {
	return repository.StatusChange{Status: status, At: at}
}
