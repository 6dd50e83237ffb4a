package state

import (
	"github.com/sidereusnuntius/courier/internal/config"
	"github.com/sidereusnuntius/courier/internal/db"
)

type State struct {
	DB     db.DB
	Config config.Configuration
}
