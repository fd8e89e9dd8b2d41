package app

import (
	"database/sql"

	"github.com/go-chi/oauth"
	"github.com/reliefworks/formsync/config"
)

// App bundles the shared server dependencies handed to every route
// handler. Embedding keeps call sites short: app.QueryRow, app.TokenSecret.
type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
}
