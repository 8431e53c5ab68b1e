package api

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/pinto1232/pos-stock-ledger/config"
)

type EnvApi struct {
	cfg *config.Config
}

func NewEnvApi(cfg *config.Config) *EnvApi {
	return &EnvApi{cfg: cfg}
}

func (a *EnvApi) ConfigureRouter(r chi.Router) {
	r.Get("/", a.GetEnv)
}

func (a *EnvApi) GetEnv(w http.ResponseWriter, r *http.Request) {
	Render(w, r, NewEnvResponse(*a.cfg))
}
