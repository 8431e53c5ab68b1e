package api

import (
	"net/http"

	"github.com/pinto1232/pos-stock-ledger/config"
)

type EnvResponse struct {
	config.Config
}

func NewEnvResponse(c config.Config) *EnvResponse {
	return &EnvResponse{Config: c}
}

func (er *EnvResponse) Render(_ http.ResponseWriter, _ *http.Request) error {
	Scrub(er)
	return nil
}
