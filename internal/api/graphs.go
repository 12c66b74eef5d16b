package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/framegraph/internal/api/models"
	"github.com/smazurov/framegraph/internal/compiler"
)

func (s *Server) registerGraphRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-filters",
		Method:      http.MethodGet,
		Path:        "/api/filters",
		Summary:     "List Filters",
		Description: "List the filters a graph description can reference",
		Tags:        []string{"graphs"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.FilterListResponse, error) {
		defs := s.registry.Definitions()
		out := make([]models.FilterInfo, len(defs))
		for i, def := range defs {
			out[i] = models.FilterInfo{
				Name:        def.Name,
				Description: def.Description,
				Options:     def.Options,
			}
		}
		return &models.FilterListResponse{
			Body: models.FilterListData{Filters: out, Count: len(out)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "validate-graph",
		Method:      http.MethodPost,
		Path:        "/api/graphs/validate",
		Summary:     "Validate Graph",
		Description: "Compile a graph description and report its open pads. A description that does not compile is reported with valid=false",
		Tags:        []string{"graphs"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.GraphValidateRequest) (*models.GraphValidateResponse, error) {
		return &models.GraphValidateResponse{Body: s.validateGraph(input.Body.Graph)}, nil
	})
}

func (s *Server) validateGraph(desc string) models.GraphValidateData {
	_, pads, err := compiler.Compile(desc, s.registry)
	if err != nil {
		data := models.GraphValidateData{Error: err.Error(), Position: -1}
		var perr *compiler.ParseError
		if errors.As(err, &perr) {
			data.Position = perr.Position
		}
		return data
	}

	data := models.GraphValidateData{Valid: true, Position: -1, Pads: make([]models.PadInfo, len(pads))}
	for i, p := range pads {
		data.Pads[i] = models.PadInfo{
			Name:      p.Name,
			Direction: p.Direction.String(),
			MediaType: p.MediaType.String(),
			Node:      p.Node,
			Index:     p.Index,
		}
	}
	return data
}
