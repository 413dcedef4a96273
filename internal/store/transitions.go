package store

import "qrtrack/internal/models"

// transitionMap lists, per current status, the statuses a ticket may move to.
// Every move is allowed, backward ones included; tighten a policy here.
var transitionMap = map[models.Status][]models.Status{
	models.StatusWaiting:   models.Statuses,
	models.StatusNext:      models.Statuses,
	models.StatusServing:   models.Statuses,
	models.StatusCompleted: models.Statuses,
	models.StatusCancelled: models.Statuses,
}

func Allowed(from, to models.Status) bool {
	allowed, ok := transitionMap[from]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == to {
			return true
		}
	}
	return false
}
