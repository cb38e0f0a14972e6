package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/frontdesk/internal/domain"
)

type ListKnowledgeInput struct {
	Limit int `query:"limit" default:"100" minimum:"1" maximum:"500"`
}

type ListKnowledgeOutput struct {
	Body struct {
		Entries []*domain.KnowledgeEntry `json:"entries"`
	}
}

func RegisterKnowledgeRoutes(api huma.API, svc RequestService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-knowledge",
		Method:      http.MethodGet,
		Path:        "/knowledge",
		Summary:     "List learned answers, newest first",
		Tags:        []string{"Supervisor"},
	}, func(ctx context.Context, input *ListKnowledgeInput) (*ListKnowledgeOutput, error) {
		entries, err := svc.ListKnowledge(ctx, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list knowledge", err)
		}
		if entries == nil {
			entries = make([]*domain.KnowledgeEntry, 0)
		}
		out := &ListKnowledgeOutput{}
		out.Body.Entries = entries
		return out, nil
	})
}
