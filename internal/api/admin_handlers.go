package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/artriverapp/artriver-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "adminIndex",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/index",
		Summary:     "Run index command",
		Description: "Executes an index management action: initialize, index_all, sync_recent, rebuild, or validate",
		Tags:        []string{"Admin"},
	}, s.handleAdminIndex)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminIndexStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/index/status",
		Summary:     "Index status",
		Description: "Reports index health and coverage relative to the source database",
		Tags:        []string{"Admin"},
	}, s.handleAdminIndexStatus)
}

// === DTOs ===

// AdminIndexInput wraps the index command request body.
type AdminIndexInput struct {
	Body service.IndexRequest
}

// AdminIndexResponse reports the outcome of an index command.
type AdminIndexResponse struct {
	Success    bool                      `json:"success" doc:"Whether the command completed"`
	Action     string                    `json:"action" doc:"Executed action"`
	Processed  int                       `json:"processed,omitempty" doc:"Number of records processed"`
	Message    string                    `json:"message" doc:"Human-readable outcome"`
	Validation *service.ValidationResult `json:"validation,omitempty" doc:"Validation details for the validate action"`
}

// AdminIndexOutput wraps the index command response for Huma.
type AdminIndexOutput struct {
	Body AdminIndexResponse
}

// AdminIndexStatusOutput wraps the index status response for Huma.
type AdminIndexStatusOutput struct {
	Body service.IndexStatus
}

// === Handlers ===

func (s *Server) handleAdminIndex(ctx context.Context, input *AdminIndexInput) (*AdminIndexOutput, error) {
	result, err := s.services.Admin.Execute(ctx, &input.Body)
	if err != nil {
		s.logger.Error("Index command failed", "action", input.Body.Action, "error", err)
		return nil, err
	}

	return &AdminIndexOutput{
		Body: AdminIndexResponse{
			Success:    true,
			Action:     result.Action,
			Processed:  result.Processed,
			Message:    result.Message,
			Validation: result.Validation,
		},
	}, nil
}

func (s *Server) handleAdminIndexStatus(ctx context.Context, _ *struct{}) (*AdminIndexStatusOutput, error) {
	return &AdminIndexStatusOutput{Body: *s.services.Admin.Status(ctx)}, nil
}
