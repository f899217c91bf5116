package httptransport

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"docket/internal/ingest"
	"docket/internal/platform/middleware"
	"docket/internal/transport/httputil"
	"docket/internal/workqueue"
	dErrors "docket/pkg/domain-errors"
)

// webhookSchema gates the outer envelope before anything touches the pipeline.
// The payload stays opaque here; only its presence and shape are checked.
const webhookSchema = `{
	"type": "object",
	"required": ["correlation_id", "payload"],
	"properties": {
		"correlation_id": {"type": "string", "minLength": 1},
		"type": {"type": "string"},
		"payload": {"type": "string", "minLength": 1}
	},
	"additionalProperties": false
}`

var compiledWebhookSchema = mustCompileSchema("webhook.json", webhookSchema)

func mustCompileSchema(name, raw string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}

type webhookRequest struct {
	CorrelationID string `json:"correlation_id"`
	Type          string `json:"type"`
	Payload       string `json:"payload"`
}

type webhookItem struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Scope      string `json:"scope"`
	Status     int    `json:"status"`
}

type webhookResponse struct {
	CorrelationID string        `json:"correlation_id"`
	Items         []webhookItem `json:"items"`
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.GetTenant(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated tenant"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unreadable request body"))
		return
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := compiledWebhookSchema.Validate(inst); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "envelope does not match schema"))
		return
	}

	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	env := ingest.Envelope{
		CorrelationID: req.CorrelationID,
		TypeHint:      req.Type,
		Payload:       req.Payload,
		Agent:         notifierAgent(r.UserAgent()),
	}
	tenants := ingest.TenantPair{
		DefaultID:   tenant.ID,
		SecondaryID: h.secondaryTenantID,
	}

	created, err := h.ingest.Ingest(r.Context(), env, tenants)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, webhookResponse{
		CorrelationID: req.CorrelationID,
		Items:         toWebhookItems(created),
	})
}

func toWebhookItems(items []*workqueue.WorkItem) []webhookItem {
	out := make([]webhookItem, 0, len(items))
	for _, item := range items {
		out = append(out, webhookItem{
			ID:         item.ID,
			ExternalID: item.ExternalID.String(),
			Scope:      item.Scope.String(),
			Status:     int(item.Status),
		})
	}
	return out
}
