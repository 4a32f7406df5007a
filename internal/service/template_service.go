package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/arahkita/arah-go-api/internal/dto"
	"github.com/arahkita/arah-go-api/internal/models"
	"github.com/arahkita/arah-go-api/internal/store"
)

// ErrTemplateNotFound indicates an unknown template id.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateService exposes the static roadmap catalog and turns a template
// into a user-owned roadmap. Instantiation always starts from zero progress;
// nothing from the catalog carries completion state.
type TemplateService interface {
	List() []dto.TemplateResponse
	Instantiate(ctx context.Context, sess store.Session, templateID string) (dto.RoadmapResponse, error)
}

type templateService struct {
	sync    SyncService
	catalog []roadmapTemplate
	logger  zerolog.Logger
}

type roadmapTemplate struct {
	ID          string
	Title       string
	Description string
	Steps       []templateItem
	Skills      []templateItem
	Tools       []templateItem
}

type templateItem struct {
	Label         string
	EstimatedTime string
	Link          string
}

// NewTemplateService constructs the template service over the built-in
// catalog.
func NewTemplateService(sync SyncService, logger zerolog.Logger) TemplateService {
	return &templateService{
		sync:    sync,
		catalog: builtinTemplates(),
		logger:  logger.With().Str("component", "template_service").Logger(),
	}
}

func (s *templateService) List() []dto.TemplateResponse {
	responses := make([]dto.TemplateResponse, 0, len(s.catalog))
	for _, tpl := range s.catalog {
		responses = append(responses, dto.TemplateResponse{
			ID:          tpl.ID,
			Title:       tpl.Title,
			Description: tpl.Description,
			ItemCount:   len(tpl.Steps) + len(tpl.Skills) + len(tpl.Tools),
		})
	}
	return responses
}

func (s *templateService) Instantiate(ctx context.Context, sess store.Session, templateID string) (dto.RoadmapResponse, error) {
	tpl, ok := s.find(templateID)
	if !ok {
		return dto.RoadmapResponse{}, ErrTemplateNotFound
	}

	roadmap := models.Roadmap{
		Title:      tpl.Title,
		Provenance: models.ProvenanceTemplate,
	}
	for i, item := range tpl.Steps {
		roadmap.Steps = append(roadmap.Steps, models.RoadmapStep{
			Label: item.Label, Sequence: i + 1, EstimatedTime: item.EstimatedTime, Link: item.Link,
		})
	}
	for i, item := range tpl.Skills {
		roadmap.Skills = append(roadmap.Skills, models.RoadmapSkill{
			Label: item.Label, Sequence: i + 1, EstimatedTime: item.EstimatedTime, Link: item.Link,
		})
	}
	for i, item := range tpl.Tools {
		roadmap.Tools = append(roadmap.Tools, models.RoadmapTool{
			Label: item.Label, Sequence: i + 1, EstimatedTime: item.EstimatedTime, Link: item.Link,
		})
	}

	response, err := s.sync.CreateRoadmap(ctx, sess, roadmap)
	if err != nil {
		return dto.RoadmapResponse{}, err
	}

	s.logger.Info().Str("template_id", templateID).Str("roadmap_id", response.ID).Msg("template instantiated")
	return response, nil
}

func (s *templateService) find(templateID string) (roadmapTemplate, bool) {
	for _, tpl := range s.catalog {
		if tpl.ID == templateID {
			return tpl, true
		}
	}
	return roadmapTemplate{}, false
}

func builtinTemplates() []roadmapTemplate {
	return []roadmapTemplate{
		{
			ID:          "backend-go",
			Title:       "Backend Development with Go",
			Description: "From language basics to a deployed HTTP service.",
			Steps: []templateItem{
				{Label: "Learn Go syntax and tooling", EstimatedTime: "2 weeks", Link: "https://go.dev/tour/"},
				{Label: "Build a REST API with a router and middleware", EstimatedTime: "2 weeks"},
				{Label: "Add a relational database layer", EstimatedTime: "2 weeks"},
				{Label: "Write unit and integration tests", EstimatedTime: "1 week"},
				{Label: "Containerize and deploy the service", EstimatedTime: "1 week"},
			},
			Skills: []templateItem{
				{Label: "Concurrency with goroutines and channels"},
				{Label: "SQL fundamentals"},
			},
			Tools: []templateItem{
				{Label: "Docker", Link: "https://docs.docker.com/"},
				{Label: "PostgreSQL"},
			},
		},
		{
			ID:          "frontend-web",
			Title:       "Frontend Web Development",
			Description: "HTML, CSS and JavaScript up to a framework-based app.",
			Steps: []templateItem{
				{Label: "HTML and semantic markup", EstimatedTime: "1 week"},
				{Label: "CSS layout with flexbox and grid", EstimatedTime: "2 weeks"},
				{Label: "JavaScript fundamentals", EstimatedTime: "3 weeks"},
				{Label: "Build an interactive single-page app", EstimatedTime: "3 weeks"},
			},
			Skills: []templateItem{
				{Label: "Responsive design"},
				{Label: "Browser devtools debugging"},
			},
			Tools: []templateItem{
				{Label: "VS Code"},
				{Label: "Git and GitHub"},
			},
		},
		{
			ID:          "data-analysis",
			Title:       "Data Analysis Foundations",
			Description: "Spreadsheets to SQL to scripted analysis.",
			Steps: []templateItem{
				{Label: "Spreadsheet modeling and pivot tables", EstimatedTime: "1 week"},
				{Label: "Query data with SQL", EstimatedTime: "2 weeks"},
				{Label: "Clean and reshape a real dataset", EstimatedTime: "2 weeks"},
				{Label: "Present findings with charts", EstimatedTime: "1 week"},
			},
			Skills: []templateItem{
				{Label: "Descriptive statistics"},
			},
			Tools: []templateItem{
				{Label: "SQLite"},
			},
		},
	}
}
