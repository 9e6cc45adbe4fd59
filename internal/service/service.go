package service

import (
	"github.com/weatherapp/backend/internal/domain"
)

// KeyValueStore is re-exported from domain for convenience
type KeyValueStore = domain.KeyValueStore
