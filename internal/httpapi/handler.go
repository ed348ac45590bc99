package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/syssam/ugc-subgraph/internal/graphapi"
	"github.com/syssam/ugc-subgraph/internal/loader"
	"github.com/syssam/ugc-subgraph/internal/siblingclient"
)

// graphQLRequestBody is the GraphQL-over-HTTP envelope (§6).
type graphQLRequestBody struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// graphQLHandler decodes the request body, attaches a fresh set of
// request-scoped loaders (§4.3: one batch window per request), and
// delegates to graphapi.Server.Execute.
func graphQLHandler(srv *graphapi.Server, st loader.Store, clients siblingclient.Clients, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body graphQLRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
			return
		}

		ctx := graphapi.WithRequestLoaders(r.Context(), loader.New(st, clients))
		result := srv.Execute(ctx, graphapi.Request{
			Query:         body.Query,
			OperationName: body.OperationName,
			Variables:     body.Variables,
		})

		status := http.StatusOK
		if len(result.Errors) > 0 && result.Data == nil {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, result)
	}
}
