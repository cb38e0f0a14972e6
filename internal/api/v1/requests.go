package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/frontdesk/internal/domain"
	"github.com/gosuda/frontdesk/internal/server/middleware"
)

// --- Input/Output types ---

type CreateRequestInput struct {
	Body struct {
		CallerID     *string `json:"caller_id,omitempty" doc:"Opaque caller identifier"`
		QuestionText string  `json:"question_text,omitempty" doc:"The caller's question"`
	}
}

type RequestBody struct {
	Request *domain.HelpRequest `json:"request"`
}

type RequestOutput struct {
	Body RequestBody
}

type GetRequestInput struct {
	ID uuid.UUID `path:"id" doc:"Help request ID"`
}

type ListRequestsInput struct {
	Status string `query:"status" default:"PENDING" doc:"PENDING, RESOLVED, UNRESOLVED or ARCHIVED"`
	Limit  int    `query:"limit" default:"100" minimum:"1" maximum:"500"`
}

type ListRequestsOutput struct {
	Body struct {
		Requests []*domain.HelpRequest `json:"requests"`
	}
}

type ResolveInput struct {
	ID   uuid.UUID `path:"id" doc:"Help request ID"`
	Body struct {
		AnswerText string `json:"answer_text,omitempty" doc:"Supervisor's answer"`
		AnsweredBy string `json:"answered_by,omitempty" doc:"Defaults to the token subject"`
	}
}

type ResolveAndSpeakOutput struct {
	Body struct {
		Request     *domain.HelpRequest   `json:"request"`
		// Audio is null when synthesis failed or is disabled.
		Audio       *domain.AudioArtifact `json:"audio"`
		SpeechError string                `json:"speech_error,omitempty"`
	}
}

type SpeechOutput struct {
	Status       int
	Location     string `header:"Location"`
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

// RegisterCallerRoutes registers the unauthenticated caller-facing routes.
func RegisterCallerRoutes(api huma.API, svc RequestService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-help-request",
		Method:        http.MethodPost,
		Path:          "/requests",
		Summary:       "Open a help request",
		Tags:          []string{"Requests"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateRequestInput) (*RequestOutput, error) {
		req, err := svc.Create(ctx, input.Body.CallerID, input.Body.QuestionText)
		if err != nil {
			return nil, toHumaError("failed to create help request", err)
		}
		return &RequestOutput{Body: RequestBody{Request: req}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-help-request",
		Method:      http.MethodGet,
		Path:        "/requests/{id}",
		Summary:     "Get a help request",
		Tags:        []string{"Requests"},
	}, func(ctx context.Context, input *GetRequestInput) (*RequestOutput, error) {
		req, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError("failed to get help request", err)
		}
		return &RequestOutput{Body: RequestBody{Request: req}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-help-request-speech",
		Method:      http.MethodGet,
		Path:        "/requests/{id}/speech",
		Summary:     "Get synthesized speech for the answer",
		Description: "Returns audio bytes, or redirects to a stored audio URL. Synthesizes on first use.",
		Tags:        []string{"Requests"},
	}, func(ctx context.Context, input *GetRequestInput) (*SpeechOutput, error) {
		audio, err := svc.Speech(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrUnavailable) && svc.SpeechEnabled() {
				return nil, huma.Error503ServiceUnavailable("speech synthesis failed", err)
			}
			return nil, toHumaError("failed to get speech", err)
		}

		if len(audio.Data) == 0 && audio.URL != "" {
			return &SpeechOutput{Status: http.StatusFound, Location: audio.URL}, nil
		}
		return &SpeechOutput{
			Status:       http.StatusOK,
			ContentType:  audio.MIME,
			CacheControl: "private, max-age=300",
			Body:         audio.Data,
		}, nil
	})
}

// RegisterSupervisorRoutes registers the queue and answering routes. They
// must be mounted behind the admin check.
func RegisterSupervisorRoutes(api huma.API, svc RequestService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-help-requests",
		Method:      http.MethodGet,
		Path:        "/requests",
		Summary:     "List help requests by status, oldest first",
		Tags:        []string{"Supervisor"},
	}, func(ctx context.Context, input *ListRequestsInput) (*ListRequestsOutput, error) {
		reqs, err := svc.ListByStatus(ctx, domain.Status(input.Status), input.Limit)
		if err != nil {
			return nil, toHumaError("failed to list help requests", err)
		}
		if reqs == nil {
			reqs = make([]*domain.HelpRequest, 0)
		}
		out := &ListRequestsOutput{}
		out.Body.Requests = reqs
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-help-request",
		Method:      http.MethodPut,
		Path:        "/requests/{id}/resolve",
		Summary:     "Answer a pending help request",
		Tags:        []string{"Supervisor"},
	}, func(ctx context.Context, input *ResolveInput) (*RequestOutput, error) {
		req, err := svc.Resolve(ctx, input.ID, input.Body.AnswerText, answeredBy(ctx, input.Body.AnsweredBy))
		if err != nil {
			return nil, toHumaError("failed to resolve help request", err)
		}
		return &RequestOutput{Body: RequestBody{Request: req}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-and-speak-help-request",
		Method:      http.MethodPut,
		Path:        "/requests/{id}/resolve-and-speak",
		Summary:     "Answer a pending help request and synthesize speech",
		Description: "Speech failure does not fail the call; speech_error then tells the client to fall back to local speech.",
		Tags:        []string{"Supervisor"},
	}, func(ctx context.Context, input *ResolveInput) (*ResolveAndSpeakOutput, error) {
		res, err := svc.ResolveAndSpeak(ctx, input.ID, input.Body.AnswerText, answeredBy(ctx, input.Body.AnsweredBy))
		if err != nil {
			return nil, toHumaError("failed to resolve help request", err)
		}
		out := &ResolveAndSpeakOutput{}
		out.Body.Request = res.Request
		out.Body.Audio = res.Audio
		out.Body.SpeechError = res.SpeechError
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-help-request",
		Method:      http.MethodPut,
		Path:        "/requests/{id}/archive",
		Summary:     "Archive a resolved or unresolved help request",
		Tags:        []string{"Supervisor"},
	}, func(ctx context.Context, input *GetRequestInput) (*RequestOutput, error) {
		req, err := svc.Archive(ctx, input.ID)
		if err != nil {
			return nil, toHumaError("failed to archive help request", err)
		}
		return &RequestOutput{Body: RequestBody{Request: req}}, nil
	})
}

// answeredBy falls back to the authenticated user when the body names no one.
func answeredBy(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	user, _ := middleware.UserFromContext(ctx)
	return user
}
