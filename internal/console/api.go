package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"qbadmin/internal/admin"
	"qbadmin/internal/apierr"
	"qbadmin/internal/authz"
	"qbadmin/internal/search"
	"qbadmin/internal/session"
)

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"no console page for zz_1"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError is the JSON error envelope for every /v0 response.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message, Details: details}}
}

// handleError maps core errors onto the envelope. Upstream API failures keep
// their status and message.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, session.ErrNoSession) {
		return newAPIError(http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	}
	if errors.Is(err, search.ErrUnrecognized) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	var fe authz.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{"required": fe.Required})
	}
	e := apierr.Normalize(err)
	switch e.Kind {
	case apierr.API:
		status := e.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		return newAPIError(status, "upstream_error", e.Message, map[string]any{"upstream_status": e.Status})
	case apierr.Network:
		return newAPIError(http.StatusBadGateway, "upstream_unreachable", e.Message, nil)
	}
	if strings.Contains(strings.ToLower(e.Message), "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", e.Message, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": e.Message})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerAPI(router chi.Router, s *Server, basePath string) error {
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	hcfg := huma.DefaultConfig("QuickBee Admin Console API", "0.1.0")
	hcfg.OpenAPIPath = ""
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerMe(group, s)
	registerSession(group, s)
	registerSearch(group, s)
	registerCashoutActions(group)
	registerOpenAPI(router, api, basePath)
	return nil
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var once sync.Once
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>QuickBee Admin Console API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Console health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type MeResponse struct {
	Authenticated bool     `json:"authenticated"`
	Subject       string   `json:"subject,omitempty"`
	Admin         bool     `json:"admin"`
	Permissions   []string `json:"permissions"`
}

func (s *Server) me(ctx context.Context) (MeResponse, error) {
	token, err := s.app.Session.Get(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return MeResponse{Permissions: []string{}}, nil
	}
	if err != nil {
		return MeResponse{}, err
	}
	caps, err := s.app.Capabilities(ctx)
	if err != nil {
		return MeResponse{}, err
	}
	return MeResponse{
		Authenticated: true,
		Subject:       session.Subject(token),
		Admin:         caps.IsAdmin(),
		Permissions:   caps.List(),
	}, nil
}

func registerMe(api huma.API, s *Server) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current session and permissions",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MeResponse `json:"body"`
	}, error) {
		me, err := s.me(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MeResponse `json:"body"`
		}{Body: me}, nil
	})
}

type SessionRequest struct {
	Token string `json:"token" minLength:"1" doc:"Admin bearer JWT"`
}

func registerSession(api huma.API, s *Server) {
	huma.Register(api, huma.Operation{
		OperationID: "session-create",
		Method:      http.MethodPost,
		Path:        "/session",
		Summary:     "Store an admin bearer token",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, in *struct {
		Body SessionRequest
	}) (*struct {
		Body MeResponse `json:"body"`
	}, error) {
		token := strings.TrimSpace(in.Body.Token)
		if _, err := session.ClaimsPermissions(token); err != nil {
			return nil, newAPIError(http.StatusBadRequest, "invalid_token", err.Error(), nil)
		}
		if err := s.app.Session.Set(ctx, token); err != nil {
			return nil, handleError(err)
		}
		me, err := s.me(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MeResponse `json:"body"`
		}{Body: me}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "session-delete",
		Method:        http.MethodDelete,
		Path:          "/session",
		Summary:       "Clear the stored token",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		if err := s.app.Session.Clear(ctx); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

type SearchResponse struct {
	Strategy string        `json:"strategy"`
	Target   search.Target `json:"target"`
}

func registerSearch(api huma.API, s *Server) {
	huma.Register(api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/search",
		Summary:     "Resolve a pasted id to a console route",
		Errors:      []int{http.StatusNotFound, http.StatusBadGateway},
	}, func(ctx context.Context, in *struct {
		Q string `query:"q" required:"true" doc:"Identifier to resolve"`
	}) (*struct {
		Body SearchResponse `json:"body"`
	}, error) {
		target, err := s.app.Search.Resolve(ctx, in.Q)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SearchResponse `json:"body"`
		}{Body: SearchResponse{Strategy: s.app.Search.Strategy(), Target: target}}, nil
	})
}

type CashoutActionsResponse struct {
	Status  string   `json:"status"`
	Actions []string `json:"actions"`
}

// registerCashoutActions exposes the advisory button set; it never gates a
// backend call.
func registerCashoutActions(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "cashout-actions",
		Method:      http.MethodGet,
		Path:        "/cashouts/{status}/actions",
		Summary:     "Advisory cashout actions for a status",
	}, func(ctx context.Context, in *struct {
		Status string `path:"status" enum:"REQUESTED,PROCESSING,PAID,FAILED,CANCELLED"`
	}) (*struct {
		Body CashoutActionsResponse `json:"body"`
	}, error) {
		actions := []string{}
		for _, a := range admin.AllowedCashoutActions(in.Status).List() {
			actions = append(actions, string(a))
		}
		return &struct {
			Body CashoutActionsResponse `json:"body"`
		}{Body: CashoutActionsResponse{Status: strings.ToUpper(in.Status), Actions: actions}}, nil
	})
}
